package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"object-tracker/internal/domain"
	"object-tracker/internal/storage"
)

// SourceStore is the Postgres implementation of storage.SourceStore.
type SourceStore struct {
	pool *pgxpool.Pool
}

func NewSourceStore(pool *pgxpool.Pool) *SourceStore {
	return &SourceStore{pool: pool}
}

const sourceColumns = `id, name, description, is_active, created_at, updated_at`

func (s *SourceStore) Create(ctx context.Context, source domain.Source) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sources (`+sourceColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		source.ID, source.Name, source.Description,
		source.Active, source.CreatedAt, source.UpdatedAt)
	return mapError(err)
}

func (s *SourceStore) FindByID(ctx context.Context, id string) (domain.Source, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE id = $1`, id)
	return scanSource(row)
}

func (s *SourceStore) FindByName(ctx context.Context, name string) (domain.Source, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE name = $1`, name)
	return scanSource(row)
}

func (s *SourceStore) SearchDescription(ctx context.Context, needle string) (domain.Source, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sourceColumns+` FROM sources
		 WHERE description ILIKE '%' || $1 || '%'
		 ORDER BY created_at
		 LIMIT 1`, needle)
	return scanSource(row)
}

func (s *SourceStore) List(ctx context.Context, limit, offset int) ([]domain.Source, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+sourceColumns+` FROM sources
		 ORDER BY created_at LIMIT $1 OFFSET $2`,
		limitOrDefault(limit), offset)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []domain.Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, source)
	}
	return out, rows.Err()
}

func (s *SourceStore) Update(ctx context.Context, source domain.Source) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sources
		 SET name = $2, description = $3, is_active = $4, updated_at = $5
		 WHERE id = $1`,
		source.ID, source.Name, source.Description, source.Active, source.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *SourceStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanSource(row pgx.Row) (domain.Source, error) {
	var source domain.Source
	err := row.Scan(&source.ID, &source.Name, &source.Description,
		&source.Active, &source.CreatedAt, &source.UpdatedAt)
	if err != nil {
		return domain.Source{}, mapError(err)
	}
	return source, nil
}
