package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/adpilot/adpilot/internal/store"
)

const maxLogLimit = 1000

// LogStore implements store.LogStore on SQLite.
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
	meta := "{}"
	if len(e.Meta) > 0 {
		data, err := json.Marshal(e.Meta)
		if err != nil {
			return err
		}
		meta = string(data)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (ts, tenant_id, level, message, meta) VALUES (?, ?, ?, ?, ?)`,
		e.TS.Unix(), e.TenantID, e.Level, e.Message, meta,
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
		`SELECT ts, tenant_id, level, message, meta FROM logs ORDER BY ts DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.LogEntry
	for rows.Next() {
		var e store.LogEntry
		var ts int64
		var meta string
		if err := rows.Scan(&ts, &e.TenantID, &e.Level, &e.Message, &meta); err != nil {
			return nil, err
		}
		e.TS = time.Unix(ts, 0)
		if meta != "" && meta != "{}" {
			if err := json.Unmarshal([]byte(meta), &e.Meta); err != nil {
				e.Meta = nil
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
