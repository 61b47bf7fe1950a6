package broadcast

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"object-tracker/internal/domain"
	"object-tracker/internal/protocol"
	"object-tracker/internal/registry"
)

type captureConn struct {
	mu       sync.Mutex
	messages []any
}

func (c *captureConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, v)
	return nil
}

func (c *captureConn) Close() error { return nil }

func TestPublishEntityUpdateReachesRegistry(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.New(logger, nil)
	conn := &captureConn{}
	reg.Register("client-1", conn)

	publisher := NewPublisher(reg, nil, logger)
	publisher.PublishEntityUpdate("e-1", domain.Snapshot{
		ID:         "e-1",
		ExternalID: "track-1",
		Type:       "ship",
	})

	require.Len(t, conn.messages, 1)
	update, ok := conn.messages[0].(protocol.ObjectUpdate)
	require.True(t, ok)
	assert.Equal(t, "object_update", update.Type)
	assert.Equal(t, "e-1", update.ObjectID)

	var snapshot domain.Snapshot
	require.NoError(t, json.Unmarshal(update.Data, &snapshot))
	assert.Equal(t, "track-1", snapshot.ExternalID)
}

func TestPublishWithoutRelayIsLocalOnly(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.New(logger, nil)

	// No relay, no connections: publishing must still be safe.
	publisher := NewPublisher(reg, nil, logger)
	publisher.PublishEntityUpdate("e-1", domain.Snapshot{ID: "e-1"})
}
