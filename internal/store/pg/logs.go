package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/adpilot/adpilot/internal/store"
)

const maxLogLimit = 1000

// LogStore implements store.LogStore on Postgres.
type LogStore struct {
	db *sql.DB
}

func NewLogStore(db *sql.DB) *LogStore {
	return &LogStore{db: db}
}

func (s *LogStore) Append(ctx context.Context, e store.LogEntry) error {
	if e.TS.IsZero() {
		e.TS = time.Now()
	}
	meta := []byte("{}")
	if len(e.Meta) > 0 {
		data, err := json.Marshal(e.Meta)
		if err != nil {
			return err
		}
		meta = data
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (ts, tenant_id, level, message, meta) VALUES ($1, $2, $3, $4, $5)`,
		e.TS, e.TenantID, e.Level, e.Message, meta,
	)
	return err
}

func (s *LogStore) Recent(ctx context.Context, limit int) ([]store.LogEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, tenant_id, level, message, meta FROM logs ORDER BY ts DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.LogEntry
	for rows.Next() {
		var e store.LogEntry
		var meta []byte
		if err := rows.Scan(&e.TS, &e.TenantID, &e.Level, &e.Message, &meta); err != nil {
			return nil, err
		}
		if len(meta) > 0 && string(meta) != "{}" {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				e.Meta = nil
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
