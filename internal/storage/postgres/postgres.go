package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"object-tracker/internal/storage"
)

// New opens a pgx pool against url and verifies connectivity.
func New(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Migrate applies the schema. Statements are idempotent so startup can run
// them unconditionally.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tracked_entities (
			id          UUID PRIMARY KEY,
			external_id TEXT NOT NULL,
			name        TEXT NOT NULL DEFAULT '',
			type        TEXT NOT NULL,
			attributes  JSONB NOT NULL DEFAULT '{}',
			source_id   TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		)`,
		// Backstop for the reconciler's one-entity-per-external-id invariant.
		`CREATE UNIQUE INDEX IF NOT EXISTS tracked_entities_external_id_key
			ON tracked_entities (external_id)`,
		`CREATE TABLE IF NOT EXISTS sensors (
			id          UUID PRIMARY KEY,
			external_id TEXT NOT NULL,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			type        TEXT NOT NULL DEFAULT '',
			is_active   BOOLEAN NOT NULL DEFAULT TRUE,
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS sensors_external_id_key
			ON sensors (external_id)`,
		`CREATE TABLE IF NOT EXISTS observations (
			id                UUID PRIMARY KEY,
			tracked_entity_id UUID NOT NULL,
			sensor_id         TEXT NOT NULL DEFAULT '',
			raw_sensor_id     TEXT NOT NULL DEFAULT '',
			latitude          DOUBLE PRECISION NOT NULL,
			longitude         DOUBLE PRECISION NOT NULL,
			altitude          DOUBLE PRECISION,
			attributes        JSONB NOT NULL DEFAULT '{}',
			ts                TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS observations_entity_ts_idx
			ON observations (tracked_entity_id, ts DESC)`,
		`CREATE TABLE IF NOT EXISTS sources (
			id          UUID PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			is_active   BOOLEAN NOT NULL DEFAULT TRUE,
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS sources_name_key ON sources (name)`,
		`CREATE TABLE IF NOT EXISTS object_types (
			id           UUID PRIMARY KEY,
			name         TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			description  TEXT NOT NULL DEFAULT '',
			icon         TEXT NOT NULL DEFAULT '',
			color        TEXT NOT NULL DEFAULT '',
			is_active    BOOLEAN NOT NULL DEFAULT TRUE,
			created_at   TIMESTAMPTZ NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS object_types_name_key ON object_types (name)`,
		`CREATE TABLE IF NOT EXISTS validation_logs (
			id         UUID PRIMARY KEY,
			log_type   TEXT NOT NULL,
			message    TEXT NOT NULL,
			raw_data   JSONB,
			object_id  TEXT NOT NULL DEFAULT '',
			sensor_id  TEXT NOT NULL DEFAULT '',
			resolved   BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS validation_logs_created_idx
			ON validation_logs (created_at DESC)`,
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// uniqueViolation is the Postgres error code for a violated unique constraint.
const uniqueViolation = "23505"

// mapError translates pgx-level failures into the storage sentinels the rest
// of the code matches on.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if pgErr.ConstraintName == "sources_name_key" || pgErr.ConstraintName == "object_types_name_key" {
			return storage.ErrDuplicateName
		}
		return storage.ErrDuplicateExternalID
	}
	return err
}

// limitOrDefault mirrors the in-memory stores' listing defaults.
func limitOrDefault(limit int) int {
	if limit <= 0 {
		return storage.DefaultLimit
	}
	return limit
}
