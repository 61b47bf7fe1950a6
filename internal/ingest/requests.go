package ingest

import (
	"time"

	"github.com/go-playground/validator/v10"

	pkgerrors "object-tracker/pkg/domain-errors"
)

// reportValidate is the shared validator instance for ingestion payloads.
var reportValidate = validator.New()

// Report is the validated ingestion payload, one frame on the ingestion
// channel or one REST ingest body. It replaces the untyped attribute maps of
// earlier feeds: structurally invalid payloads are rejected at this boundary
// and never reach the reconciler.
//
// ExternalObjectID and ObjectType are the only mandatory identity fields;
// their absence is fatal for the payload. Everything else degrades to a
// validation log entry instead.
type Report struct {
	ExternalObjectID string         `json:"external_object_id" validate:"required"`
	ObjectName       string         `json:"object_name,omitempty"`
	ObjectType       string         `json:"object_type"        validate:"required"`
	ExternalSensorID string         `json:"external_sensor_id,omitempty"`
	Latitude         float64        `json:"latitude"           validate:"gte=-90,lte=90"`
	Longitude        float64        `json:"longitude"          validate:"gte=-180,lte=180"`
	Altitude         *float64       `json:"altitude,omitempty"`
	Attributes       map[string]any `json:"attributes,omitempty"`
	Timestamp        *time.Time     `json:"timestamp,omitempty"`

	// channelSource is the authenticated feed name for reports arriving on a
	// source-bound ingestion channel. The transport sets it; it is never
	// decoded from the payload and never persisted with the attributes.
	channelSource string
}

// SetChannelSource records the feed the report arrived through. Entity
// creation falls back to it when the reporter names no source of its own.
func (r *Report) SetChannelSource(name string) {
	r.channelSource = name
}

// Validate rejects payloads missing mandatory identity fields or carrying
// out-of-range coordinates. The returned error is the fatal
// resolution-failure case: nothing gets persisted or broadcast for it.
func (r Report) Validate() error {
	if err := reportValidate.Struct(r); err != nil {
		if fieldErrors, ok := err.(validator.ValidationErrors); ok && len(fieldErrors) > 0 {
			field := fieldErrors[0]
			switch field.Field() {
			case "ExternalObjectID":
				return pkgerrors.New(pkgerrors.CodeUnprocessable, "external_object_id is required")
			case "ObjectType":
				return pkgerrors.New(pkgerrors.CodeUnprocessable, "object_type is required")
			case "Latitude":
				return pkgerrors.New(pkgerrors.CodeUnprocessable, "latitude must be between -90 and 90")
			case "Longitude":
				return pkgerrors.New(pkgerrors.CodeUnprocessable, "longitude must be between -180 and 180")
			}
		}
		return pkgerrors.Wrap(pkgerrors.CodeUnprocessable, "invalid observation payload", err)
	}
	return nil
}

// raw reproduces the payload as a generic map for validation log snapshots.
func (r Report) raw() map[string]any {
	raw := map[string]any{
		"external_object_id": r.ExternalObjectID,
		"object_type":        r.ObjectType,
		"latitude":           r.Latitude,
		"longitude":          r.Longitude,
	}
	if r.ObjectName != "" {
		raw["object_name"] = r.ObjectName
	}
	if r.ExternalSensorID != "" {
		raw["external_sensor_id"] = r.ExternalSensorID
	}
	if r.Altitude != nil {
		raw["altitude"] = *r.Altitude
	}
	if len(r.Attributes) > 0 {
		raw["attributes"] = r.Attributes
	}
	if r.Timestamp != nil {
		raw["timestamp"] = r.Timestamp.Format(time.RFC3339Nano)
	}
	return raw
}

// sourceHint extracts the feed name a report claims to come from, when the
// reporter includes one in its attributes.
func (r Report) sourceHint() string {
	if r.Attributes == nil {
		return ""
	}
	if hint, ok := r.Attributes["source"].(string); ok {
		return hint
	}
	return ""
}
