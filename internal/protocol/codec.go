package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"object-tracker/internal/domain"
)

// DefaultObjectsLimit caps get_objects responses when the client does not ask
// for a specific limit.
const DefaultObjectsLimit = 100

// ProtocolError marks a malformed frame or unrecognized discriminator. It is
// recoverable: the caller answers with an error envelope and keeps the
// connection open.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string { return e.Message }

// clientFrame is the first-pass decode used to discriminate message kinds.
type clientFrame struct {
	Type string `json:"type"`
}

// DecodeClientMessage parses one subscription-channel frame into a typed
// message (*Subscribe or *GetObjects). It never fails hard: any malformed or
// unrecognized frame comes back as a *ProtocolError for the caller to answer
// with an error envelope.
func DecodeClientMessage(frame []byte) (any, error) {
	var head clientFrame
	if err := json.Unmarshal(frame, &head); err != nil {
		return nil, &ProtocolError{Message: "Invalid JSON format"}
	}
	switch head.Type {
	case TypeSubscribe:
		var msg Subscribe
		if err := json.Unmarshal(frame, &msg); err != nil {
			return nil, &ProtocolError{Message: "Invalid JSON format"}
		}
		return &msg, nil
	case TypeGetObjects:
		var msg GetObjects
		if err := json.Unmarshal(frame, &msg); err != nil {
			return nil, &ProtocolError{Message: "Invalid JSON format"}
		}
		if msg.Limit <= 0 {
			msg.Limit = DefaultObjectsLimit
		}
		return &msg, nil
	default:
		return nil, &ProtocolError{Message: fmt.Sprintf("Unknown message type: %s", head.Type)}
	}
}

// NewSubscribeAck builds the acknowledgment for a subscribe request, echoing
// the accepted types or "all" when the filter list is empty.
func NewSubscribeAck(objectTypes []string) SubscribeAck {
	accepted := strings.Join(objectTypes, ", ")
	if accepted == "" {
		accepted = "all"
	}
	return SubscribeAck{
		Type:    TypeSubscribeAck,
		Message: fmt.Sprintf("Subscribed to updates for %s objects", accepted),
	}
}

// NewObjectsData wraps entity snapshots for a get_objects response. The
// objects array is always present, even when empty.
func NewObjectsData(objects []domain.Snapshot) ObjectsData {
	if objects == nil {
		objects = []domain.Snapshot{}
	}
	return ObjectsData{Type: TypeObjectsData, Objects: objects}
}

// NewObjectUpdate builds the broadcast envelope for an entity update.
func NewObjectUpdate(objectID string, data any) (ObjectUpdate, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return ObjectUpdate{}, fmt.Errorf("marshal object_update data: %w", err)
	}
	return ObjectUpdate{Type: TypeObjectUpdate, ObjectID: objectID, Data: payload}, nil
}

// DecodeObjectUpdate parses a broadcast envelope. Client-side counterpart of
// NewObjectUpdate.
func DecodeObjectUpdate(frame []byte) (ObjectUpdate, error) {
	var msg ObjectUpdate
	if err := json.Unmarshal(frame, &msg); err != nil {
		return ObjectUpdate{}, &ProtocolError{Message: "Invalid JSON format"}
	}
	if msg.Type != TypeObjectUpdate {
		return ObjectUpdate{}, &ProtocolError{Message: fmt.Sprintf("Unknown message type: %s", msg.Type)}
	}
	return msg, nil
}

// NewAck confirms one processed ingestion frame.
func NewAck(objectID string) Ack {
	return Ack{
		Type:     TypeAck,
		Message:  "Data processed successfully",
		ObjectID: objectID,
	}
}

// NewError builds the error envelope shared by both channels.
func NewError(message string) ErrorEnvelope {
	return ErrorEnvelope{Type: TypeError, Message: message}
}
