package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"object-tracker/internal/domain"
	"object-tracker/internal/storage"
)

// EntityStore is the Postgres implementation of storage.EntityStore.
type EntityStore struct {
	pool *pgxpool.Pool
}

func NewEntityStore(pool *pgxpool.Pool) *EntityStore {
	return &EntityStore{pool: pool}
}

const entityColumns = `id, external_id, name, type, attributes, source_id, created_at, updated_at`

func (s *EntityStore) Create(ctx context.Context, entity domain.TrackedEntity) error {
	attrs, err := json.Marshal(attributesOrEmpty(entity.Attributes))
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO tracked_entities (`+entityColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entity.ID, entity.ExternalID, entity.Name, entity.Type,
		attrs, entity.SourceID, entity.CreatedAt, entity.UpdatedAt)
	return mapError(err)
}

func (s *EntityStore) FindByID(ctx context.Context, id string) (domain.TrackedEntity, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+entityColumns+` FROM tracked_entities WHERE id = $1`, id)
	return scanEntity(row)
}

func (s *EntityStore) FindByExternalID(ctx context.Context, externalID string) (domain.TrackedEntity, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+entityColumns+` FROM tracked_entities WHERE external_id = $1`, externalID)
	return scanEntity(row)
}

func (s *EntityStore) List(ctx context.Context, filter storage.EntityFilter) ([]domain.TrackedEntity, error) {
	query := `SELECT ` + entityColumns + ` FROM tracked_entities WHERE 1=1`
	args := []any{}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if filter.Source != "" {
		args = append(args, filter.Source)
		query += fmt.Sprintf(" AND source_id = $%d", len(args))
	}
	args = append(args, limitOrDefault(filter.Limit))
	query += fmt.Sprintf(" ORDER BY created_at LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []domain.TrackedEntity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, rows.Err()
}

func (s *EntityStore) Update(ctx context.Context, entity domain.TrackedEntity) error {
	attrs, err := json.Marshal(attributesOrEmpty(entity.Attributes))
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE tracked_entities
		 SET external_id = $2, name = $3, type = $4, attributes = $5,
		     source_id = $6, updated_at = $7
		 WHERE id = $1`,
		entity.ID, entity.ExternalID, entity.Name, entity.Type,
		attrs, entity.SourceID, entity.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *EntityStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tracked_entities WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanEntity(row pgx.Row) (domain.TrackedEntity, error) {
	var entity domain.TrackedEntity
	var attrs []byte
	err := row.Scan(&entity.ID, &entity.ExternalID, &entity.Name, &entity.Type,
		&attrs, &entity.SourceID, &entity.CreatedAt, &entity.UpdatedAt)
	if err != nil {
		return domain.TrackedEntity{}, mapError(err)
	}
	if err := json.Unmarshal(attrs, &entity.Attributes); err != nil {
		return domain.TrackedEntity{}, fmt.Errorf("unmarshal attributes: %w", err)
	}
	return entity, nil
}

func attributesOrEmpty(attrs map[string]any) map[string]any {
	if attrs == nil {
		return map[string]any{}
	}
	return attrs
}
