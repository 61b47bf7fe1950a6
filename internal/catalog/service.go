package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"object-tracker/internal/domain"
	"object-tracker/internal/storage"
	dErrors "object-tracker/pkg/domain-errors"
)

// Service manages the registered object type descriptors. Descriptors are
// advisory for ingestion (a missing one only produces a validation log entry)
// but authoritative for the map UI, which renders icon and color from them.
type Service struct {
	types  storage.ObjectTypeStore
	logger *slog.Logger
	now    func() time.Time
}

func NewService(types storage.ObjectTypeStore, logger *slog.Logger) *Service {
	return &Service{
		types:  types,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create registers a descriptor. Name is canonicalized before storage so
// lookups from the ingestion path always hit.
func (s *Service) Create(ctx context.Context, objectType domain.ObjectType) (domain.ObjectType, error) {
	objectType.Name = domain.CanonicalType(objectType.Name)
	if objectType.Name == "" {
		return domain.ObjectType{}, dErrors.New(dErrors.CodeBadRequest, "name is required")
	}
	if objectType.DisplayName == "" {
		objectType.DisplayName = objectType.Name
	}

	now := s.now()
	objectType.ID = uuid.New().String()
	objectType.Active = true
	objectType.CreatedAt = now
	objectType.UpdatedAt = now

	if err := s.types.Create(ctx, objectType); err != nil {
		return domain.ObjectType{}, err
	}
	s.logger.Info("object type registered", "object_type_id", objectType.ID, "name", objectType.Name)
	return objectType, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.ObjectType, error) {
	return s.types.FindByID(ctx, id)
}

func (s *Service) GetByName(ctx context.Context, name string) (domain.ObjectType, error) {
	return s.types.FindByName(ctx, domain.CanonicalType(name))
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.ObjectType, error) {
	return s.types.List(ctx, limit, offset)
}

// Update replaces the mutable descriptor fields. Name and creation time are
// immutable once registered.
func (s *Service) Update(ctx context.Context, objectType domain.ObjectType) (domain.ObjectType, error) {
	existing, err := s.types.FindByID(ctx, objectType.ID)
	if err != nil {
		return domain.ObjectType{}, err
	}

	existing.DisplayName = objectType.DisplayName
	existing.Description = objectType.Description
	existing.Icon = objectType.Icon
	existing.Color = objectType.Color
	existing.Active = objectType.Active
	existing.UpdatedAt = s.now()

	if err := s.types.Update(ctx, existing); err != nil {
		return domain.ObjectType{}, err
	}
	return existing, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.types.Delete(ctx, id)
}
