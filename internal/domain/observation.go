package domain

import "time"

// Observation is one timestamped position/attribute report, immutable once
// persisted. SensorID is empty when the report named a sensor we do not
// manage; RawSensorID always keeps the id exactly as reported.
type Observation struct {
	ID          string         `json:"id"`
	EntityID    string         `json:"tracked_entity_id"`
	SensorID    string         `json:"sensor_id,omitempty"`
	RawSensorID string         `json:"raw_sensor_id"`
	Latitude    float64        `json:"latitude"`
	Longitude   float64        `json:"longitude"`
	Altitude    *float64       `json:"altitude,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}
