package broadcast

import (
	"log/slog"

	"object-tracker/internal/domain"
	"object-tracker/internal/registry"
)

// Publisher is the thin glue between a committed reconciliation and the
// connection registry. It runs inline with the ingestion call; failures
// during fan-out stay inside the registry and never reach the caller, so a
// slow or dead connection cannot roll back the already-persisted observation.
type Publisher struct {
	registry *registry.Registry
	relay    *Relay
	logger   *slog.Logger
}

// NewPublisher builds a publisher. relay may be nil when the deployment is a
// single instance without Redis.
func NewPublisher(reg *registry.Registry, relay *Relay, logger *slog.Logger) *Publisher {
	return &Publisher{registry: reg, relay: relay, logger: logger}
}

// PublishEntityUpdate fans the entity's current public fields out to every
// live local connection and, when a relay is configured, to peer instances.
func (p *Publisher) PublishEntityUpdate(entityID string, snapshot domain.Snapshot) {
	p.registry.BroadcastEntityUpdate(entityID, snapshot)

	if p.relay != nil {
		if err := p.relay.Publish(entityID, snapshot); err != nil {
			p.logger.Error("relay entity update", "object_id", entityID, "error", err)
		}
	}
}
