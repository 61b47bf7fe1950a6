package registry

import (
	"log/slog"
	"sync"
	"time"

	"object-tracker/internal/platform/metrics"
	"object-tracker/internal/protocol"
)

// Conn is the transport handle the registry delivers to. *websocket.Conn
// satisfies it once wrapped for write serialization (see transport/ws).
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Registry holds the set of currently live connections keyed by opaque id.
// It is an explicitly constructed instance passed by reference into the
// transports and the broadcast publisher; there is no process-wide singleton.
//
// The map is shared between each connection's own read loop (register on
// handshake, unregister on disconnect) and any ingestion goroutine running a
// broadcast, so every read-modify cycle happens under the mutex. Broadcast
// snapshots the map and sends outside the lock: a removal triggered by a
// failed send can never skip or corrupt delivery to unrelated connections.
type Registry struct {
	mu      sync.RWMutex
	conns   map[string]Conn
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New builds an empty registry. metrics may be nil in tests.
func New(logger *slog.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		conns:   make(map[string]Conn),
		logger:  logger,
		metrics: m,
	}
}

// Register stores the mapping id → conn. Re-registering an existing id
// replaces the handle, last write wins.
func (r *Registry) Register(id string, conn Conn) {
	r.mu.Lock()
	r.conns[id] = conn
	total := len(r.conns)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ConnectionsLive.Set(float64(total))
		r.metrics.ConnectionsTotal.Inc()
	}
	r.logger.Info("client connected", "connection_id", id, "active_connections", total)
}

// Unregister removes the mapping; no-op if absent.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	_, present := r.conns[id]
	delete(r.conns, id)
	total := len(r.conns)
	r.mu.Unlock()

	if !present {
		return
	}
	if r.metrics != nil {
		r.metrics.ConnectionsLive.Set(float64(total))
	}
	r.logger.Info("client disconnected", "connection_id", id, "active_connections", total)
}

// Len reports the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// SendTo delivers a message to exactly one connection. A missing id or a
// failed send is logged, never raised: targeted sends must not abort a larger
// operation. A failed send drops the connection.
func (r *Registry) SendTo(id string, message any) {
	r.mu.RLock()
	conn, ok := r.conns[id]
	r.mu.RUnlock()

	if !ok {
		r.logger.Warn("send to unknown connection", "connection_id", id)
		return
	}
	if err := conn.WriteJSON(message); err != nil {
		r.logger.Error("send failed, dropping connection", "connection_id", id, "error", err)
		r.drop(id, conn)
	}
}

// Broadcast delivers message to every currently registered connection with
// best effort. A delivery failure on one connection drops that connection and
// delivery continues to the rest; Broadcast never aborts early.
func (r *Registry) Broadcast(message any) {
	start := time.Now()

	r.mu.RLock()
	targets := make(map[string]Conn, len(r.conns))
	for id, conn := range r.conns {
		targets[id] = conn
	}
	r.mu.RUnlock()

	// Failures are collected during the send pass and removed afterwards so a
	// mid-broadcast disconnect cannot disturb the iteration.
	var failed []string
	for id, conn := range targets {
		if err := conn.WriteJSON(message); err != nil {
			r.logger.Error("broadcast send failed", "connection_id", id, "error", err)
			failed = append(failed, id)
		}
	}
	for _, id := range failed {
		r.drop(id, targets[id])
	}

	if r.metrics != nil {
		r.metrics.BroadcastDuration.Observe(time.Since(start).Seconds())
		r.metrics.BroadcastFanout.Observe(float64(len(targets)))
	}
}

// BroadcastEntityUpdate builds the canonical object_update envelope and fans
// it out.
func (r *Registry) BroadcastEntityUpdate(entityID string, data any) {
	msg, err := protocol.NewObjectUpdate(entityID, data)
	if err != nil {
		r.logger.Error("build object_update envelope", "object_id", entityID, "error", err)
		return
	}
	r.Broadcast(msg)
}

// drop removes a connection whose transport failed and closes the handle.
// Closed is terminal; reconnecting is the client's responsibility.
func (r *Registry) drop(id string, conn Conn) {
	r.mu.Lock()
	// Only remove if the slot still holds the same handle: the id may have
	// been re-registered by a newer connection in the meantime.
	if current, ok := r.conns[id]; ok && current == conn {
		delete(r.conns, id)
	}
	total := len(r.conns)
	r.mu.Unlock()

	_ = conn.Close()
	if r.metrics != nil {
		r.metrics.ConnectionsLive.Set(float64(total))
	}
}
