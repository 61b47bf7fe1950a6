package domain

import "time"

// AutoCreatedSourceName is the sentinel source assigned to entities whose
// reports could not be matched to any registered feed.
const AutoCreatedSourceName = "auto_created"

// Source describes one originating data feed. Entities created by the
// ingestion path are linked to a source resolved by name or, failing that, by
// a case-insensitive substring match against descriptions.
type Source struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
