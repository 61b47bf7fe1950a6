package vlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"object-tracker/internal/domain"
)

// kafkaPayload is the JSON structure published to the validation-log topic.
// Field names match the REST representation so downstream consumers see one
// schema.
type kafkaPayload struct {
	ID             string         `json:"id"`
	Kind           string         `json:"log_type"`
	Message        string         `json:"message"`
	RawPayload     map[string]any `json:"raw_data,omitempty"`
	EntityExternal string         `json:"object_id,omitempty"`
	SensorExternal string         `json:"sensor_id,omitempty"`
	CreatedAt      string         `json:"created_at"`
}

// KafkaSink publishes validation log events with franz-go. The topic is keyed
// by entity external id so anomalies for one object land in one partition.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

func NewKafkaSink(client *kgo.Client, topic string) *KafkaSink {
	return &KafkaSink{client: client, topic: topic}
}

func (s *KafkaSink) Publish(ctx context.Context, entry domain.ValidationLog) error {
	payload := kafkaPayload{
		ID:             entry.ID,
		Kind:           string(entry.Kind),
		Message:        entry.Message,
		RawPayload:     entry.RawPayload,
		EntityExternal: entry.EntityExternal,
		SensorExternal: entry.SensorExternal,
		CreatedAt:      entry.CreatedAt.Format(time.RFC3339Nano),
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal validation log payload: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(entry.EntityExternal),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce validation log: %w", err)
	}
	return nil
}
