package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"object-tracker/internal/domain"
)

// ObservationStore is the Postgres implementation of storage.ObservationStore.
// Observations are append-only; there is no update or delete path.
type ObservationStore struct {
	pool *pgxpool.Pool
}

func NewObservationStore(pool *pgxpool.Pool) *ObservationStore {
	return &ObservationStore{pool: pool}
}

func (s *ObservationStore) Append(ctx context.Context, obs domain.Observation) error {
	attrs, err := json.Marshal(attributesOrEmpty(obs.Attributes))
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO observations
		   (id, tracked_entity_id, sensor_id, raw_sensor_id,
		    latitude, longitude, altitude, attributes, ts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		obs.ID, obs.EntityID, obs.SensorID, obs.RawSensorID,
		obs.Latitude, obs.Longitude, obs.Altitude, attrs, obs.Timestamp)
	return mapError(err)
}

func (s *ObservationStore) ListByEntity(ctx context.Context, entityID string, limit, offset int) ([]domain.Observation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tracked_entity_id, sensor_id, raw_sensor_id,
		        latitude, longitude, altitude, attributes, ts
		 FROM observations
		 WHERE tracked_entity_id = $1
		 ORDER BY ts DESC
		 LIMIT $2 OFFSET $3`,
		entityID, limitOrDefault(limit), offset)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []domain.Observation
	for rows.Next() {
		var obs domain.Observation
		var attrs []byte
		err := rows.Scan(&obs.ID, &obs.EntityID, &obs.SensorID, &obs.RawSensorID,
			&obs.Latitude, &obs.Longitude, &obs.Altitude, &attrs, &obs.Timestamp)
		if err != nil {
			return nil, mapError(err)
		}
		if err := json.Unmarshal(attrs, &obs.Attributes); err != nil {
			return nil, fmt.Errorf("unmarshal attributes: %w", err)
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}
