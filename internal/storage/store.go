package storage

import (
	"context"

	"object-tracker/internal/domain"
)

// Stores are interface-driven to keep the reconciler testable and to allow
// swapping in-memory and Postgres persistence without rewiring business code.

// EntityFilter narrows entity listings. Zero values mean "no constraint";
// Limit of 0 falls back to the store default.
type EntityFilter struct {
	Type   string
	Source string
	Limit  int
	Offset int
}

type EntityStore interface {
	Create(ctx context.Context, entity domain.TrackedEntity) error
	FindByID(ctx context.Context, id string) (domain.TrackedEntity, error)
	FindByExternalID(ctx context.Context, externalID string) (domain.TrackedEntity, error)
	List(ctx context.Context, filter EntityFilter) ([]domain.TrackedEntity, error)
	Update(ctx context.Context, entity domain.TrackedEntity) error
	Delete(ctx context.Context, id string) error
}

// SensorFilter narrows sensor listings.
type SensorFilter struct {
	Active *bool
	Type   string
	Limit  int
	Offset int
}

type SensorStore interface {
	Create(ctx context.Context, sensor domain.Sensor) error
	FindByID(ctx context.Context, id string) (domain.Sensor, error)
	FindByExternalID(ctx context.Context, externalID string) (domain.Sensor, error)
	List(ctx context.Context, filter SensorFilter) ([]domain.Sensor, error)
	Update(ctx context.Context, sensor domain.Sensor) error
	Delete(ctx context.Context, id string) error
}

type ObservationStore interface {
	Append(ctx context.Context, obs domain.Observation) error
	ListByEntity(ctx context.Context, entityID string, limit, offset int) ([]domain.Observation, error)
}

// LogFilter narrows validation log listings. Resolved is a tri-state: nil
// means both resolved and unresolved entries.
type LogFilter struct {
	Kind           domain.LogKind
	EntityExternal string
	SensorExternal string
	Resolved       *bool
	Limit          int
	Offset         int
}

type ValidationLogStore interface {
	Append(ctx context.Context, entry domain.ValidationLog) error
	FindByID(ctx context.Context, id string) (domain.ValidationLog, error)
	List(ctx context.Context, filter LogFilter) ([]domain.ValidationLog, error)
	SetResolved(ctx context.Context, id string, resolved bool) error
	Delete(ctx context.Context, id string) error
}

type SourceStore interface {
	Create(ctx context.Context, source domain.Source) error
	FindByID(ctx context.Context, id string) (domain.Source, error)
	FindByName(ctx context.Context, name string) (domain.Source, error)
	// SearchDescription returns the first source whose description contains
	// needle, compared case-insensitively.
	SearchDescription(ctx context.Context, needle string) (domain.Source, error)
	List(ctx context.Context, limit, offset int) ([]domain.Source, error)
	Update(ctx context.Context, source domain.Source) error
	Delete(ctx context.Context, id string) error
}

type ObjectTypeStore interface {
	Create(ctx context.Context, objectType domain.ObjectType) error
	FindByID(ctx context.Context, id string) (domain.ObjectType, error)
	FindByName(ctx context.Context, canonical string) (domain.ObjectType, error)
	List(ctx context.Context, limit, offset int) ([]domain.ObjectType, error)
	Update(ctx context.Context, objectType domain.ObjectType) error
	Delete(ctx context.Context, id string) error
}
