//go:build integration

package broadcast

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"object-tracker/internal/domain"
	"object-tracker/internal/protocol"
	"object-tracker/internal/registry"
	"object-tracker/pkg/testutil/containers"
)

type waitConn struct {
	mu       sync.Mutex
	messages []any
	notify   chan struct{}
}

func newWaitConn() *waitConn {
	return &waitConn{notify: make(chan struct{}, 16)}
}

func (c *waitConn) WriteJSON(v any) error {
	c.mu.Lock()
	c.messages = append(c.messages, v)
	c.mu.Unlock()
	c.notify <- struct{}{}
	return nil
}

func (c *waitConn) Close() error { return nil }

// TestRelayAcrossInstances runs two registries against one Redis and checks
// that an update published on one side reaches the other side's connections
// exactly once.
func TestRelayAcrossInstances(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	regA := registry.New(logger, nil)
	regB := registry.New(logger, nil)
	relayA := NewRelay(rc.Client, "object-tracker.updates.test", regA, logger)
	relayB := NewRelay(rc.Client, "object-tracker.updates.test", regB, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = relayA.Run(ctx) }()
	go func() { _ = relayB.Run(ctx) }()

	connA := newWaitConn()
	connB := newWaitConn()
	regA.Register("a", connA)
	regB.Register("b", connB)

	// Give both subscriptions time to establish.
	time.Sleep(500 * time.Millisecond)

	require.NoError(t, relayA.Publish("e-1", domain.Snapshot{ID: "e-1", ExternalID: "track-1"}))

	select {
	case <-connB.notify:
	case <-time.After(5 * time.Second):
		t.Fatal("peer instance never received the relayed update")
	}

	connB.mu.Lock()
	require.Len(t, connB.messages, 1)
	update, ok := connB.messages[0].(protocol.ObjectUpdate)
	connB.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, "e-1", update.ObjectID)

	// The publishing instance skips its own relayed copy.
	time.Sleep(500 * time.Millisecond)
	connA.mu.Lock()
	assert.Empty(t, connA.messages)
	connA.mu.Unlock()
}
