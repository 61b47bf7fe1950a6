package domain

import "time"

// ObjectType is a registered type descriptor. Name is the canonical type
// string ("ship", "drone"); DisplayName, Icon and Color drive the map UI.
// Reports carrying a type with no descriptor still ingest, the gap is only
// logged.
type ObjectType struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon"`
	Color       string    `json:"color"`
	Active      bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
