package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"object-tracker/internal/domain"
	"object-tracker/internal/storage"
)

// SensorStore is the Postgres implementation of storage.SensorStore.
type SensorStore struct {
	pool *pgxpool.Pool
}

func NewSensorStore(pool *pgxpool.Pool) *SensorStore {
	return &SensorStore{pool: pool}
}

const sensorColumns = `id, external_id, name, description, type, is_active, created_at, updated_at`

func (s *SensorStore) Create(ctx context.Context, sensor domain.Sensor) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sensors (`+sensorColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sensor.ID, sensor.ExternalID, sensor.Name, sensor.Description,
		sensor.Type, sensor.Active, sensor.CreatedAt, sensor.UpdatedAt)
	return mapError(err)
}

func (s *SensorStore) FindByID(ctx context.Context, id string) (domain.Sensor, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sensorColumns+` FROM sensors WHERE id = $1`, id)
	return scanSensor(row)
}

func (s *SensorStore) FindByExternalID(ctx context.Context, externalID string) (domain.Sensor, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sensorColumns+` FROM sensors WHERE external_id = $1`, externalID)
	return scanSensor(row)
}

func (s *SensorStore) List(ctx context.Context, filter storage.SensorFilter) ([]domain.Sensor, error) {
	query := `SELECT ` + sensorColumns + ` FROM sensors WHERE 1=1`
	args := []any{}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		query += fmt.Sprintf(" AND is_active = $%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(" AND type = $%d", len(args))
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

	var out []domain.Sensor
	for rows.Next() {
		sensor, err := scanSensor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sensor)
	}
	return out, rows.Err()
}

func (s *SensorStore) Update(ctx context.Context, sensor domain.Sensor) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sensors
		 SET external_id = $2, name = $3, description = $4, type = $5,
		     is_active = $6, updated_at = $7
		 WHERE id = $1`,
		sensor.ID, sensor.ExternalID, sensor.Name, sensor.Description,
		sensor.Type, sensor.Active, sensor.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *SensorStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sensors WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanSensor(row pgx.Row) (domain.Sensor, error) {
	var sensor domain.Sensor
	err := row.Scan(&sensor.ID, &sensor.ExternalID, &sensor.Name, &sensor.Description,
		&sensor.Type, &sensor.Active, &sensor.CreatedAt, &sensor.UpdatedAt)
	if err != nil {
		return domain.Sensor{}, mapError(err)
	}
	return sensor, nil
}
