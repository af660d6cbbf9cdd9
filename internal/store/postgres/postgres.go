package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

func (db *DB) Migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS clinics (
			id               TEXT PRIMARY KEY,
			name             TEXT NOT NULL,
			latitude         DOUBLE PRECISION NOT NULL,
			longitude        DOUBLE PRECISION NOT NULL,
			partner          BOOLEAN NOT NULL DEFAULT FALSE,
			push_token       TEXT NOT NULL DEFAULT '',
			messaging_number TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS dispatch_results (
			request_id           TEXT PRIMARY KEY,
			overall_status       TEXT NOT NULL CHECK (overall_status IN ('FULLY_SENT', 'PARTIALLY_SENT', 'NONE_SENT')),
			matched_clinic_count INT NOT NULL,
			no_candidates        BOOLEAN NOT NULL DEFAULT FALSE,
			attempts             JSONB NOT NULL,
			dispatched_at        TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS dispatch_attempts (
			id           BIGSERIAL PRIMARY KEY,
			request_id   TEXT NOT NULL,
			clinic_id    TEXT NOT NULL,
			channel      TEXT NOT NULL,
			outcome      TEXT NOT NULL,
			message_id   TEXT,
			simulated    BOOLEAN NOT NULL DEFAULT FALSE,
			error        TEXT,
			attempted_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_dispatch_results_status ON dispatch_results(overall_status);
		CREATE INDEX IF NOT EXISTS idx_dispatch_attempts_request_id ON dispatch_attempts(request_id);
		CREATE INDEX IF NOT EXISTS idx_dispatch_attempts_clinic_id ON dispatch_attempts(clinic_id);
	`

	_, err := db.Pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
