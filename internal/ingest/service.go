package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"object-tracker/internal/domain"
	"object-tracker/internal/platform/metrics"
	"object-tracker/internal/storage"
	pkgerrors "object-tracker/pkg/domain-errors"
)

// Publisher fans a committed entity update out to live connections. It runs
// after persistence; its failures stay inside the broadcast layer.
type Publisher interface {
	PublishEntityUpdate(entityID string, snapshot domain.Snapshot)
}

// Recorder appends one validation log entry without ever failing the caller.
type Recorder interface {
	Record(ctx context.Context, entry domain.ValidationLog)
}

// Service is the ingestion reconciler. It resolves a raw report against known
// entities, sensors and catalogs, persists the observation, and triggers the
// broadcast. Anomalies along the way become validation log entries; only a
// payload without its mandatory identity fields is rejected outright.
type Service struct {
	entities  storage.EntityStore
	sensors   storage.SensorStore
	obs       storage.ObservationStore
	sources   storage.SourceStore
	types     storage.ObjectTypeStore
	recorder  Recorder
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	locks     keyedMutex
	now       func() time.Time
}

// Config collects the reconciler's collaborators.
type Config struct {
	Entities     storage.EntityStore
	Sensors      storage.SensorStore
	Observations storage.ObservationStore
	Sources      storage.SourceStore
	ObjectTypes  storage.ObjectTypeStore
	Recorder     Recorder
	Publisher    Publisher
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
}

func NewService(cfg Config) *Service {
	return &Service{
		entities:  cfg.Entities,
		sensors:   cfg.Sensors,
		obs:       cfg.Observations,
		sources:   cfg.Sources,
		types:     cfg.ObjectTypes,
		recorder:  cfg.Recorder,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		tracer:    otel.Tracer("object-tracker/ingest"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Process runs the full resolution procedure for one report and returns the
// persisted observation. Persistence always happens before broadcast; a slow
// or failing connection downstream can never roll back the committed record.
func (s *Service) Process(ctx context.Context, report Report) (domain.Observation, error) {
	ctx, span := s.tracer.Start(ctx, "ingest.Process",
		trace.WithAttributes(attribute.String("object.external_id", report.ExternalObjectID)))
	defer span.End()

	if err := report.Validate(); err != nil {
		if s.metrics != nil {
			s.metrics.IngestRejected.Inc()
		}
		return domain.Observation{}, err
	}

	canonical := domain.CanonicalType(report.ObjectType)
	if canonical == "" {
		if s.metrics != nil {
			s.metrics.IngestRejected.Inc()
		}
		return domain.Observation{}, pkgerrors.New(pkgerrors.CodeUnprocessable, "object_type is required")
	}

	s.checkTypeDescriptor(ctx, report, canonical)
	sensorID := s.resolveSensor(ctx, report)

	entity, err := s.resolveEntity(ctx, report, canonical)
	if err != nil {
		return domain.Observation{}, err
	}

	obs := domain.Observation{
		ID:          uuid.New().String(),
		EntityID:    entity.ID,
		SensorID:    sensorID,
		RawSensorID: report.ExternalSensorID,
		Latitude:    report.Latitude,
		Longitude:   report.Longitude,
		Altitude:    report.Altitude,
		Attributes:  report.Attributes,
		Timestamp:   s.now(),
	}
	if report.Timestamp != nil {
		obs.Timestamp = report.Timestamp.UTC()
	}
	if err := s.obs.Append(ctx, obs); err != nil {
		return domain.Observation{}, pkgerrors.Wrap(pkgerrors.CodeInternal, "persist observation", err)
	}
	if s.metrics != nil {
		s.metrics.ObservationsIngested.Inc()
	}

	// Broadcast strictly after the committed write.
	if s.publisher != nil {
		s.publisher.PublishEntityUpdate(entity.ID, entity.Snapshot())
	}

	return obs, nil
}

// checkTypeDescriptor logs reports whose canonical type has no registered
// descriptor. Absent is non-fatal; the entity keeps the reported type either
// way.
func (s *Service) checkTypeDescriptor(ctx context.Context, report Report, canonical string) {
	_, err := s.types.FindByName(ctx, canonical)
	switch {
	case err == nil:
		return
	case pkgerrors.Is(err, pkgerrors.CodeNotFound):
		s.recorder.Record(ctx, domain.ValidationLog{
			Kind:           domain.LogInfo,
			Message:        fmt.Sprintf("Unknown object type: %s", canonical),
			RawPayload:     report.raw(),
			EntityExternal: report.ExternalObjectID,
		})
	default:
		s.logger.Error("object type lookup", "object_type", canonical, "error", err)
	}
}

// resolveSensor maps the reported sensor id to a managed sensor. Absent is
// non-fatal: the observation still stores the raw id, only unassociated.
func (s *Service) resolveSensor(ctx context.Context, report Report) string {
	if report.ExternalSensorID == "" {
		return ""
	}
	sensor, err := s.sensors.FindByExternalID(ctx, report.ExternalSensorID)
	switch {
	case err == nil:
		return sensor.ID
	case pkgerrors.Is(err, pkgerrors.CodeNotFound):
		s.recorder.Record(ctx, domain.ValidationLog{
			Kind:           domain.LogWarning,
			Message:        fmt.Sprintf("Unknown sensor: %s", report.ExternalSensorID),
			RawPayload:     report.raw(),
			EntityExternal: report.ExternalObjectID,
			SensorExternal: report.ExternalSensorID,
		})
	default:
		s.logger.Error("sensor lookup", "sensor_id", report.ExternalSensorID, "error", err)
	}
	return ""
}

// resolveEntity finds or creates the tracked entity for the report. The
// lookup key is the external object id alone. Lookup-then-create is
// serialized per id so two concurrent first reports cannot mint duplicates.
func (s *Service) resolveEntity(ctx context.Context, report Report, canonical string) (domain.TrackedEntity, error) {
	shard := s.locks.lock(report.ExternalObjectID)
	defer shard.Unlock()

	entity, err := s.entities.FindByExternalID(ctx, report.ExternalObjectID)
	switch {
	case err == nil:
		s.checkIdentityConflict(ctx, report, canonical, entity)
		return entity, nil
	case pkgerrors.Is(err, pkgerrors.CodeNotFound):
		return s.createEntity(ctx, report, canonical)
	default:
		return domain.TrackedEntity{}, pkgerrors.Wrap(pkgerrors.CodeInternal, "entity lookup", err)
	}
}

// checkIdentityConflict compares the reported name and type with the stored
// identity. Differences are logged but the stored values win: established
// identity is protected against noisy or malicious conflicting reports.
func (s *Service) checkIdentityConflict(ctx context.Context, report Report, canonical string, entity domain.TrackedEntity) {
	nameConflict := report.ObjectName != "" && report.ObjectName != entity.Name
	typeConflict := canonical != entity.Type
	if !nameConflict && !typeConflict {
		return
	}
	s.recorder.Record(ctx, domain.ValidationLog{
		Kind: domain.LogWarning,
		Message: fmt.Sprintf("Conflicting identity for object %s: reported name=%q type=%q, stored name=%q type=%q",
			report.ExternalObjectID, report.ObjectName, canonical, entity.Name, entity.Type),
		RawPayload:     report.raw(),
		EntityExternal: report.ExternalObjectID,
	})
}

func (s *Service) createEntity(ctx context.Context, report Report, canonical string) (domain.TrackedEntity, error) {
	now := s.now()
	entity := domain.TrackedEntity{
		ID:         uuid.New().String(),
		ExternalID: report.ExternalObjectID,
		Name:       report.ObjectName,
		Type:       canonical,
		Attributes: map[string]any{},
		SourceID:   s.resolveSource(ctx, report),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.entities.Create(ctx, entity); err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeConflict) {
			// Lost the create race to another instance; the stored entity wins.
			return s.entities.FindByExternalID(ctx, report.ExternalObjectID)
		}
		return domain.TrackedEntity{}, pkgerrors.Wrap(pkgerrors.CodeInternal, "create entity", err)
	}
	if s.metrics != nil {
		s.metrics.EntitiesCreated.Inc()
	}
	s.logger.Info("tracked entity created",
		"entity_id", entity.ID,
		"external_id", entity.ExternalID,
		"object_type", entity.Type,
	)
	return entity, nil
}

// resolveSource picks the source descriptor for a new entity: exact name
// match on the report's source attribute, then a case-insensitive substring
// match against source descriptions, then the channel the report arrived
// through, then the auto_created sentinel.
func (s *Service) resolveSource(ctx context.Context, report Report) string {
	if hint := report.sourceHint(); hint != "" {
		if source, err := s.sources.FindByName(ctx, hint); err == nil {
			return source.ID
		}
		if source, err := s.sources.SearchDescription(ctx, hint); err == nil {
			return source.ID
		}
	}
	if report.channelSource != "" {
		if source, err := s.sources.FindByName(ctx, report.channelSource); err == nil {
			return source.ID
		}
	}
	return s.sentinelSource(ctx)
}

// sentinelSource returns the auto_created source, creating it on first use.
func (s *Service) sentinelSource(ctx context.Context) string {
	source, err := s.sources.FindByName(ctx, domain.AutoCreatedSourceName)
	if err == nil {
		return source.ID
	}
	if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		s.logger.Error("sentinel source lookup", "error", err)
		return ""
	}
	now := s.now()
	source = domain.Source{
		ID:          uuid.New().String(),
		Name:        domain.AutoCreatedSourceName,
		Description: "Fallback source for entities created from unmatched reports",
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.sources.Create(ctx, source); err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeConflict) {
			if existing, findErr := s.sources.FindByName(ctx, domain.AutoCreatedSourceName); findErr == nil {
				return existing.ID
			}
		}
		s.logger.Error("create sentinel source", "error", err)
		return ""
	}
	return source.ID
}
