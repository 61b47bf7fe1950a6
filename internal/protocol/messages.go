package protocol

import (
	"encoding/json"

	"object-tracker/internal/domain"
)

// Message type discriminators shared by both channels. The wire names are part
// of the public contract with map clients and data sources and must not
// change.
const (
	TypeSubscribe    = "subscribe"
	TypeGetObjects   = "get_objects"
	TypeSubscribeAck = "subscribe_ack"
	TypeObjectsData  = "objects_data"
	TypeObjectUpdate = "object_update"
	TypeAck          = "ack"
	TypeError        = "error"
)

// Subscribe registers interest in entity updates. An empty ObjectTypes list
// means "all". Filters are acknowledged but do not currently suppress
// broadcast delivery.
type Subscribe struct {
	ObjectTypes []string `json:"object_types"`
}

// GetObjects pulls current entity snapshots, optionally filtered by type.
type GetObjects struct {
	ObjectType string `json:"object_type,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// SubscribeAck echoes the accepted subscription back to the client.
type SubscribeAck struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ObjectsData answers a get_objects request.
type ObjectsData struct {
	Type    string            `json:"type"`
	Objects []domain.Snapshot `json:"objects"`
}

// ObjectUpdate is the broadcast envelope fanned out after every successful
// reconciliation. Data stays a RawMessage so relays and tests can treat the
// payload as opaque bytes.
type ObjectUpdate struct {
	Type     string          `json:"type"`
	ObjectID string          `json:"object_id"`
	Data     json.RawMessage `json:"data"`
}

// Ack confirms a processed ingestion frame.
type Ack struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	ObjectID string `json:"object_id"`
}

// ErrorEnvelope reports a recoverable protocol failure. The connection stays
// open after it is sent.
type ErrorEnvelope struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
