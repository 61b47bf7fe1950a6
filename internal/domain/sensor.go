package domain

import "time"

// Sensor is a registered reporting device. ExternalID is what the device puts
// on the wire; the ingestion path resolves against it and never creates
// sensors implicitly.
type Sensor struct {
	ID          string    `json:"id"`
	ExternalID  string    `json:"sensor_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type"`
	Active      bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
