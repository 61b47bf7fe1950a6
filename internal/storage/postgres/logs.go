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

// ValidationLogStore is the Postgres implementation of storage.ValidationLogStore.
type ValidationLogStore struct {
	pool *pgxpool.Pool
}

func NewValidationLogStore(pool *pgxpool.Pool) *ValidationLogStore {
	return &ValidationLogStore{pool: pool}
}

const logColumns = `id, log_type, message, raw_data, object_id, sensor_id, resolved, created_at`

func (s *ValidationLogStore) Append(ctx context.Context, entry domain.ValidationLog) error {
	var raw []byte
	if entry.RawPayload != nil {
		var err error
		raw, err = json.Marshal(entry.RawPayload)
		if err != nil {
			return fmt.Errorf("marshal raw payload: %w", err)
		}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO validation_logs (`+logColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, string(entry.Kind), entry.Message, raw,
		entry.EntityExternal, entry.SensorExternal, entry.Resolved, entry.CreatedAt)
	return mapError(err)
}

func (s *ValidationLogStore) FindByID(ctx context.Context, id string) (domain.ValidationLog, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+logColumns+` FROM validation_logs WHERE id = $1`, id)
	return scanLog(row)
}

func (s *ValidationLogStore) List(ctx context.Context, filter storage.LogFilter) ([]domain.ValidationLog, error) {
	query := `SELECT ` + logColumns + ` FROM validation_logs WHERE 1=1`
	args := []any{}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		query += fmt.Sprintf(" AND log_type = $%d", len(args))
	}
	if filter.EntityExternal != "" {
		args = append(args, filter.EntityExternal)
		query += fmt.Sprintf(" AND object_id = $%d", len(args))
	}
	if filter.SensorExternal != "" {
		args = append(args, filter.SensorExternal)
		query += fmt.Sprintf(" AND sensor_id = $%d", len(args))
	}
	if filter.Resolved != nil {
		args = append(args, *filter.Resolved)
		query += fmt.Sprintf(" AND resolved = $%d", len(args))
	}
	args = append(args, limitOrDefault(filter.Limit))
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []domain.ValidationLog
	for rows.Next() {
		entry, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *ValidationLogStore) SetResolved(ctx context.Context, id string, resolved bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE validation_logs SET resolved = $2 WHERE id = $1`, id, resolved)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *ValidationLogStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM validation_logs WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanLog(row pgx.Row) (domain.ValidationLog, error) {
	var entry domain.ValidationLog
	var kind string
	var raw []byte
	err := row.Scan(&entry.ID, &kind, &entry.Message, &raw,
		&entry.EntityExternal, &entry.SensorExternal, &entry.Resolved, &entry.CreatedAt)
	if err != nil {
		return domain.ValidationLog{}, mapError(err)
	}
	entry.Kind = domain.LogKind(kind)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &entry.RawPayload); err != nil {
			return domain.ValidationLog{}, fmt.Errorf("unmarshal raw payload: %w", err)
		}
	}
	return entry, nil
}
