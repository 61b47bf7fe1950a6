package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"object-tracker/internal/domain"
	"object-tracker/internal/storage"
)

// ObjectTypeStore is the Postgres implementation of storage.ObjectTypeStore.
type ObjectTypeStore struct {
	pool *pgxpool.Pool
}

func NewObjectTypeStore(pool *pgxpool.Pool) *ObjectTypeStore {
	return &ObjectTypeStore{pool: pool}
}

const objectTypeColumns = `id, name, display_name, description, icon, color, is_active, created_at, updated_at`

func (s *ObjectTypeStore) Create(ctx context.Context, objectType domain.ObjectType) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO object_types (`+objectTypeColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		objectType.ID, objectType.Name, objectType.DisplayName, objectType.Description,
		objectType.Icon, objectType.Color, objectType.Active,
		objectType.CreatedAt, objectType.UpdatedAt)
	return mapError(err)
}

func (s *ObjectTypeStore) FindByID(ctx context.Context, id string) (domain.ObjectType, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+objectTypeColumns+` FROM object_types WHERE id = $1`, id)
	return scanObjectType(row)
}

func (s *ObjectTypeStore) FindByName(ctx context.Context, canonical string) (domain.ObjectType, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+objectTypeColumns+` FROM object_types WHERE name = $1`, canonical)
	return scanObjectType(row)
}

func (s *ObjectTypeStore) List(ctx context.Context, limit, offset int) ([]domain.ObjectType, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+objectTypeColumns+` FROM object_types
		 ORDER BY created_at LIMIT $1 OFFSET $2`,
		limitOrDefault(limit), offset)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []domain.ObjectType
	for rows.Next() {
		objectType, err := scanObjectType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, objectType)
	}
	return out, rows.Err()
}

func (s *ObjectTypeStore) Update(ctx context.Context, objectType domain.ObjectType) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE object_types
		 SET name = $2, display_name = $3, description = $4, icon = $5,
		     color = $6, is_active = $7, updated_at = $8
		 WHERE id = $1`,
		objectType.ID, objectType.Name, objectType.DisplayName, objectType.Description,
		objectType.Icon, objectType.Color, objectType.Active, objectType.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *ObjectTypeStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM object_types WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanObjectType(row pgx.Row) (domain.ObjectType, error) {
	var objectType domain.ObjectType
	err := row.Scan(&objectType.ID, &objectType.Name, &objectType.DisplayName,
		&objectType.Description, &objectType.Icon, &objectType.Color,
		&objectType.Active, &objectType.CreatedAt, &objectType.UpdatedAt)
	if err != nil {
		return domain.ObjectType{}, mapError(err)
	}
	return objectType, nil
}
