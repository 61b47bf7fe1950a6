package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"object-tracker/internal/domain"
)

func TestDecodeClientMessage(t *testing.T) {
	t.Run("subscribe with type filters", func(t *testing.T) {
		msg, err := DecodeClientMessage([]byte(`{"type":"subscribe","object_types":["ship","drone"]}`))
		require.NoError(t, err)

		sub, ok := msg.(*Subscribe)
		require.True(t, ok)
		assert.Equal(t, []string{"ship", "drone"}, sub.ObjectTypes)
	})

	t.Run("subscribe without filters", func(t *testing.T) {
		msg, err := DecodeClientMessage([]byte(`{"type":"subscribe"}`))
		require.NoError(t, err)

		sub, ok := msg.(*Subscribe)
		require.True(t, ok)
		assert.Empty(t, sub.ObjectTypes)
	})

	t.Run("get_objects applies default limit", func(t *testing.T) {
		msg, err := DecodeClientMessage([]byte(`{"type":"get_objects","object_type":"ship"}`))
		require.NoError(t, err)

		req, ok := msg.(*GetObjects)
		require.True(t, ok)
		assert.Equal(t, "ship", req.ObjectType)
		assert.Equal(t, DefaultObjectsLimit, req.Limit)
	})

	t.Run("get_objects keeps explicit limit", func(t *testing.T) {
		msg, err := DecodeClientMessage([]byte(`{"type":"get_objects","limit":5}`))
		require.NoError(t, err)

		req, ok := msg.(*GetObjects)
		require.True(t, ok)
		assert.Equal(t, 5, req.Limit)
	})

	t.Run("malformed JSON is a recoverable protocol error", func(t *testing.T) {
		_, err := DecodeClientMessage([]byte(`{not json`))
		var perr *ProtocolError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "Invalid JSON format", perr.Message)
	})

	t.Run("unknown discriminator names the offender", func(t *testing.T) {
		_, err := DecodeClientMessage([]byte(`{"type":"telemetry"}`))
		var perr *ProtocolError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "Unknown message type: telemetry", perr.Message)
	})
}

func TestSubscribeAckMessage(t *testing.T) {
	t.Run("echoes accepted types", func(t *testing.T) {
		ack := NewSubscribeAck([]string{"ship", "drone"})
		assert.Equal(t, TypeSubscribeAck, ack.Type)
		assert.Equal(t, "Subscribed to updates for ship, drone objects", ack.Message)
	})

	t.Run("empty filter means all", func(t *testing.T) {
		ack := NewSubscribeAck(nil)
		assert.Equal(t, "Subscribed to updates for all objects", ack.Message)
	})
}

func TestObjectUpdateRoundTrip(t *testing.T) {
	snapshot := domain.Snapshot{
		ID:         "e-1",
		ExternalID: "track-42",
		Name:       "Vessel",
		Type:       "ship",
		Attributes: map[string]any{"speed": 12.5},
	}

	update, err := NewObjectUpdate("e-1", snapshot)
	require.NoError(t, err)
	assert.Equal(t, TypeObjectUpdate, update.Type)
	assert.Equal(t, "e-1", update.ObjectID)

	wire, err := json.Marshal(update)
	require.NoError(t, err)

	decoded, err := DecodeObjectUpdate(wire)
	require.NoError(t, err)
	assert.Equal(t, update.ObjectID, decoded.ObjectID)
	// The payload travels as opaque bytes and must survive unchanged.
	assert.JSONEq(t, string(update.Data), string(decoded.Data))
}

func TestDecodeObjectUpdateRejectsOtherTypes(t *testing.T) {
	_, err := DecodeObjectUpdate([]byte(`{"type":"ack","object_id":"x"}`))
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Unknown message type: ack", perr.Message)
}

func TestNewObjectsDataNeverNil(t *testing.T) {
	data := NewObjectsData(nil)
	assert.Equal(t, TypeObjectsData, data.Type)
	require.NotNil(t, data.Objects)

	wire, err := json.Marshal(data)
	require.NoError(t, err)
	assert.Contains(t, string(wire), `"objects":[]`)
}

func TestNewAck(t *testing.T) {
	ack := NewAck("track-42")
	assert.Equal(t, TypeAck, ack.Type)
	assert.Equal(t, "Data processed successfully", ack.Message)
	assert.Equal(t, "track-42", ack.ObjectID)
}
