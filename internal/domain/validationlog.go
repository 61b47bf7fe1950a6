package domain

import "time"

// LogKind grades validation log entries.
type LogKind string

const (
	LogInfo    LogKind = "info"
	LogWarning LogKind = "warning"
	LogError   LogKind = "error"
)

// ValidationLog is an append-only diagnostic record of an ingestion anomaly.
// RawPayload snapshots the report that triggered it so operators can replay
// the decision. Resolved is operator-settable and defaults to false.
type ValidationLog struct {
	ID             string         `json:"id"`
	Kind           LogKind        `json:"log_type"`
	Message        string         `json:"message"`
	RawPayload     map[string]any `json:"raw_data,omitempty"`
	EntityExternal string         `json:"object_id,omitempty"`
	SensorExternal string         `json:"sensor_id,omitempty"`
	Resolved       bool           `json:"resolved"`
	CreatedAt      time.Time      `json:"created_at"`
}
