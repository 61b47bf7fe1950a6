package domain

import (
	"strings"
	"time"
)

// TrackedEntity is the durable record for one externally identified object
// under surveillance. ExternalID is the reconciliation key: at most one entity
// should exist per distinct external id. Name and Type are set at creation and
// never overwritten by the ingestion path; conflicting reports become
// validation log entries instead.
type TrackedEntity struct {
	ID         string         `json:"id"`
	ExternalID string         `json:"external_id"`
	Name       string         `json:"name,omitempty"`
	Type       string         `json:"type"`
	Attributes map[string]any `json:"attributes,omitempty"`
	SourceID   string         `json:"source_id,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Snapshot is the public view of an entity carried in object_update broadcasts
// and objects_data responses.
type Snapshot struct {
	ID         string         `json:"id"`
	ExternalID string         `json:"external_id"`
	Name       string         `json:"name,omitempty"`
	Type       string         `json:"type"`
	Attributes map[string]any `json:"attributes,omitempty"`
	SourceID   string         `json:"source_id,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Snapshot copies the entity's public fields. Attributes are cloned so the
// caller can hold the snapshot across concurrent updates.
func (e TrackedEntity) Snapshot() Snapshot {
	var attrs map[string]any
	if len(e.Attributes) > 0 {
		attrs = make(map[string]any, len(e.Attributes))
		for k, v := range e.Attributes {
			attrs[k] = v
		}
	}
	return Snapshot{
		ID:         e.ID,
		ExternalID: e.ExternalID,
		Name:       e.Name,
		Type:       e.Type,
		Attributes: attrs,
		SourceID:   e.SourceID,
		UpdatedAt:  e.UpdatedAt,
	}
}

// CanonicalType normalizes a reported object type for lookups and storage.
func CanonicalType(reported string) string {
	return strings.ToLower(strings.TrimSpace(reported))
}
