// Package sqlite implements the store contract on a local SQLite database.
// It is the default backend for single-host deployments.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/adpilot/adpilot/internal/store"
)

// NewStores opens (or creates) the SQLite database at path and returns all
// stores backed by it.
func NewStores(path string) (*store.Stores, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}

	if err := Migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
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

// Open opens a SQLite database with the pragmas the service needs. SQLite
// allows one writer at a time, so the pool is capped at a single connection
// to avoid SQLITE_BUSY under concurrent appends.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tenants (
			id INTEGER PRIMARY KEY,
			username TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			premium_until INTEGER NOT NULL DEFAULT 0,
			active INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS credentials (
			tenant_id INTEGER PRIMARY KEY,
			token TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS configs (
			tenant_id INTEGER PRIMARY KEY,
			allow_chats TEXT NOT NULL DEFAULT '[]',
			templates TEXT NOT NULL DEFAULT '[]',
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS logs (
			ts INTEGER NOT NULL,
			tenant_id INTEGER NOT NULL,
			level TEXT NOT NULL,
			message TEXT NOT NULL,
			meta TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_ts ON logs(ts DESC)`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			tenant_id INTEGER NOT NULL,
			chat_id INTEGER NOT NULL,
			template_idx INTEGER NOT NULL,
			run_at INTEGER NOT NULL,
			cron TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_due ON jobs(status, run_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:30], err)
		}
	}
	return nil
}
