package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"object-tracker/internal/protocol"
	"object-tracker/internal/registry"
)

// Relay bridges entity updates between instances over a Redis pub/sub
// channel, so clients connected to one replica still see observations
// ingested by another. Each relay tags messages with its own id and skips its
// own publications on the way back in.
type Relay struct {
	client   *redis.Client
	channel  string
	registry *registry.Registry
	origin   string
	logger   *slog.Logger
}

type relayMessage struct {
	Origin   string                `json:"origin"`
	Envelope protocol.ObjectUpdate `json:"envelope"`
}

func NewRelay(client *redis.Client, channel string, reg *registry.Registry, logger *slog.Logger) *Relay {
	return &Relay{
		client:   client,
		channel:  channel,
		registry: reg,
		origin:   uuid.New().String(),
		logger:   logger,
	}
}

// Publish pushes one entity update onto the relay channel.
func (r *Relay) Publish(entityID string, data any) error {
	envelope, err := protocol.NewObjectUpdate(entityID, data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(relayMessage{Origin: r.origin, Envelope: envelope})
	if err != nil {
		return fmt.Errorf("marshal relay message: %w", err)
	}
	if err := r.client.Publish(context.Background(), r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish relay message: %w", err)
	}
	return nil
}

// Run subscribes to the relay channel and re-broadcasts peer updates to the
// local registry until the context is canceled.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var relayed relayMessage
			if err := json.Unmarshal([]byte(msg.Payload), &relayed); err != nil {
				r.logger.Warn("malformed relay message", "error", err)
				continue
			}
			if relayed.Origin == r.origin {
				continue
			}
			r.registry.Broadcast(relayed.Envelope)
		}
	}
}
