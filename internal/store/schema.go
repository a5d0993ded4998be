package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements are idempotent and run in order at boot.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS athletes (
		id_number           VARCHAR(6) PRIMARY KEY,
		first_name          TEXT NOT NULL DEFAULT '',
		last_name           TEXT NOT NULL DEFAULT '',
		credential_hash     TEXT,
		first_login_pending BOOLEAN NOT NULL DEFAULT TRUE,
		security_answers    JSONB,
		reset_count         INTEGER NOT NULL DEFAULT 0 CHECK (reset_count >= 0),
		reset_blocked       BOOLEAN NOT NULL DEFAULT FALSE,
		reset_last_at       TIMESTAMPTZ,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS admins (
		id            UUID PRIMARY KEY,
		pincode       VARCHAR(6) NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		first_name    TEXT NOT NULL DEFAULT '',
		last_name     TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS service_transactions (
		id                   UUID PRIMARY KEY,
		athlete_id           VARCHAR(6) NOT NULL,
		service_type         TEXT NOT NULL CHECK (service_type IN ('standard', 'deep')),
		status               TEXT NOT NULL CHECK (status IN ('in-progress', 'completed', 'error')),
		amount               BIGINT NOT NULL,
		duration_sec         INTEGER NOT NULL,
		expected_complete_at TIMESTAMPTZ NOT NULL,
		failure_reason       TEXT,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_service_transactions_status_created
		ON service_transactions (status, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS machine_states (
		id          BIGSERIAL PRIMARY KEY,
		status      TEXT NOT NULL,
		operation   TEXT NOT NULL DEFAULT '',
		temperature DOUBLE PRECISION,
		humidity    DOUBLE PRECISION,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_machine_states_created
		ON machine_states (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id         UUID PRIMARY KEY,
		actor_id   TEXT NOT NULL DEFAULT '',
		actor_role TEXT NOT NULL DEFAULT '',
		actor_name TEXT NOT NULL DEFAULT '',
		action     TEXT NOT NULL,
		target     TEXT NOT NULL DEFAULT '',
		details    JSONB NOT NULL DEFAULT '{}'::jsonb,
		ip         TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the service tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for i, statement := range schemaStatements {
		if _, err := db.Exec(ctx, statement); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
