package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"object-tracker/internal/domain"
	"object-tracker/internal/ingest"
	"object-tracker/internal/protocol"
	"object-tracker/internal/registry"
	"object-tracker/internal/storage"
	dErrors "object-tracker/pkg/domain-errors"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Ingestor processes one validated observation report end to end.
type Ingestor interface {
	Process(ctx context.Context, report ingest.Report) (domain.Observation, error)
}

// Handler serves the two WebSocket channels: the subscription channel map
// clients connect to, and the ingestion channel data sources push reports
// through.
type Handler struct {
	registry *registry.Registry
	entities storage.EntityStore
	sources  storage.SourceStore
	ingestor Ingestor
	logger   *slog.Logger
}

// New creates the WebSocket Handler.
func New(
	reg *registry.Registry,
	entities storage.EntityStore,
	sources storage.SourceStore,
	ingestor Ingestor,
	logger *slog.Logger) *Handler {
	return &Handler{
		registry: reg,
		entities: entities,
		sources:  sources,
		ingestor: ingestor,
		logger:   logger,
	}
}

// Register registers the WebSocket routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/ws/objects/{client_id}", h.handleObjects)
	r.Get("/api/ws/data-source/{source_id}/{client_id}", h.handleDataSource)
}

// handleObjects runs one subscription-channel connection. The connection is
// registered for broadcasts immediately after the upgrade and unregistered
// when the read loop ends, whatever ended it.
func (h *Handler) handleObjects(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "client_id")
	if clientID == "" {
		clientID = uuid.New().String()
	}

	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "client_id", clientID, "error", err)
		return
	}
	conn := newConn(raw)

	h.logger.Info("map client connected",
		"connection_id", clientID,
		"device", deviceName(r.UserAgent()),
		"remote_addr", r.RemoteAddr,
	)
	h.registry.Register(clientID, conn)
	defer h.registry.Unregister(clientID)
	defer conn.Close()

	for {
		_, frame, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("subscription read failed", "connection_id", clientID, "error", err)
			}
			return
		}
		h.handleClientFrame(r.Context(), clientID, frame)
	}
}

// handleClientFrame answers a single subscription-channel frame. Malformed or
// unknown frames get an error envelope and the connection stays open.
func (h *Handler) handleClientFrame(ctx context.Context, clientID string, frame []byte) {
	msg, err := protocol.DecodeClientMessage(frame)
	if err != nil {
		var perr *protocol.ProtocolError
		if errors.As(err, &perr) {
			h.registry.SendTo(clientID, protocol.NewError(perr.Message))
			return
		}
		h.registry.SendTo(clientID, protocol.NewError("Invalid JSON format"))
		return
	}

	switch m := msg.(type) {
	case *protocol.Subscribe:
		// Subscription filters are acknowledged but not enforced; every live
		// connection receives every update.
		h.registry.SendTo(clientID, protocol.NewSubscribeAck(m.ObjectTypes))
	case *protocol.GetObjects:
		h.sendObjects(ctx, clientID, m)
	}
}

func (h *Handler) sendObjects(ctx context.Context, clientID string, req *protocol.GetObjects) {
	entities, err := h.entities.List(ctx, storage.EntityFilter{
		Type:  domain.CanonicalType(req.ObjectType),
		Limit: req.Limit,
	})
	if err != nil {
		h.logger.Error("list entities for get_objects", "connection_id", clientID, "error", err)
		h.registry.SendTo(clientID, protocol.NewError("Failed to fetch objects"))
		return
	}
	snapshots := make([]domain.Snapshot, 0, len(entities))
	for _, entity := range entities {
		snapshots = append(snapshots, entity.Snapshot())
	}
	h.registry.SendTo(clientID, protocol.NewObjectsData(snapshots))
}

// handleDataSource runs one ingestion-channel connection. The handshake is
// gated on a known, active source; each subsequent frame is one observation
// report answered with an ack or an error envelope. Only a transport failure
// ends the connection.
func (h *Handler) handleDataSource(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "source_id")
	clientID := chi.URLParam(r, "client_id")
	if clientID == "" {
		clientID = uuid.New().String()
	}

	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "source_id", sourceID, "error", err)
		return
	}
	conn := newConn(raw)
	defer conn.Close()

	source, err := h.sources.FindByID(r.Context(), sourceID)
	if err != nil || !source.Active {
		h.logger.Warn("data source rejected", "source_id", sourceID, "client_id", clientID)
		h.closePolicyViolation(conn, fmt.Sprintf("Unknown or inactive source: %s", sourceID))
		return
	}

	h.logger.Info("data source connected",
		"source_id", sourceID,
		"source_name", source.Name,
		"client_id", clientID,
		"remote_addr", r.RemoteAddr,
	)
	defer h.logger.Info("data source disconnected", "source_id", sourceID, "client_id", clientID)

	for {
		_, frame, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("ingestion read failed", "source_id", sourceID, "client_id", clientID, "error", err)
			}
			return
		}
		h.handleReportFrame(r.Context(), conn, source, frame)
	}
}

// handleReportFrame processes one ingestion frame. Failures are per-payload:
// the reply is an error envelope and the next frame is read normally.
func (h *Handler) handleReportFrame(ctx context.Context, conn *wsConn, source domain.Source, frame []byte) {
	var report ingest.Report
	if err := json.Unmarshal(frame, &report); err != nil {
		h.reply(conn, protocol.NewError("Invalid JSON format"))
		return
	}

	// The channel already authenticates the feed, so entity creation falls
	// back to the channel's source when the reporter names none. The payload
	// itself is persisted as reported.
	report.SetChannelSource(source.Name)

	obs, err := h.ingestor.Process(ctx, report)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeUnprocessable) || dErrors.Is(err, dErrors.CodeBadRequest) {
			h.reply(conn, protocol.NewError(err.Error()))
			return
		}
		h.logger.Error("ingestion failed", "source_name", source.Name, "error", err)
		h.reply(conn, protocol.NewError("Internal server error"))
		return
	}
	h.reply(conn, protocol.NewAck(obs.EntityID))
}

func (h *Handler) reply(conn *wsConn, message any) {
	if err := conn.WriteJSON(message); err != nil {
		h.logger.Warn("ingestion reply failed", "error", err)
	}
}

// closePolicyViolation sends close code 1008 and drops the connection.
func (h *Handler) closePolicyViolation(conn *wsConn, reason string) {
	payload := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	if err := conn.WriteControl(websocket.CloseMessage, payload); err != nil {
		h.logger.Warn("close frame send failed", "error", err)
	}
}
