// Package pg implements the store contract on Postgres, for deployments
// where several service instances share one database.
package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/adpilot/adpilot/internal/store"
)

// NewStores connects to Postgres and returns all stores backed by it.
func NewStores(dsn string) (*store.Stores, error) {
	db, err := OpenDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := Migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}

	s := &store.Stores{
		Tenants:     NewTenantStore(db),
		Credentials: NewCredentialStore(db),
		Configs:     NewConfigStore(db),
		Logs:        NewLogStore(db),
		Jobs:        NewJobStore(db),
	}
	s.SetCloser(db.Close)
	return s, nil
}

// OpenDB opens a pgx-backed *sql.DB and verifies connectivity.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tenants (
			id BIGINT PRIMARY KEY,
			username TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			premium_until TIMESTAMPTZ,
			active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS credentials (
			tenant_id BIGINT PRIMARY KEY,
			token TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS configs (
			tenant_id BIGINT PRIMARY KEY,
			allow_chats JSONB NOT NULL DEFAULT '[]',
			templates JSONB NOT NULL DEFAULT '[]',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS logs (
			ts TIMESTAMPTZ NOT NULL DEFAULT now(),
			tenant_id BIGINT NOT NULL,
			level TEXT NOT NULL,
			message TEXT NOT NULL,
			meta JSONB NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_ts ON logs(ts DESC)`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id UUID PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			chat_id BIGINT NOT NULL,
			template_idx INT NOT NULL,
			run_at TIMESTAMPTZ NOT NULL,
			cron TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_due ON jobs(status, run_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}
