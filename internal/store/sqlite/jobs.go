package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/adpilot/adpilot/internal/store"
)

// JobStore implements store.JobStore on SQLite.
type JobStore struct {
	db *sql.DB
}

func NewJobStore(db *sql.DB) *JobStore {
	return &JobStore{db: db}
}

func (s *JobStore) Add(ctx context.Context, j store.Job) error {
	if j.Status == "" {
		j.Status = store.JobPending
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, tenant_id, chat_id, template_idx, run_at, cron, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.TenantID, j.ChatID, j.TemplateIdx, j.RunAt.Unix(), j.Cron, j.Status,
	)
	return err
}

func (s *JobStore) Due(ctx context.Context, now time.Time, limit int) ([]store.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, chat_id, template_idx, run_at, cron, status
		 FROM jobs WHERE status = ? AND run_at <= ? ORDER BY run_at LIMIT ?`,
		store.JobPending, now.Unix(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Job
	for rows.Next() {
		var j store.Job
		var runAt int64
		if err := rows.Scan(&j.ID, &j.TenantID, &j.ChatID, &j.TemplateIdx, &runAt, &j.Cron, &j.Status); err != nil {
			return nil, err
		}
		j.RunAt = time.Unix(runAt, 0)
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *JobStore) MarkDone(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ? WHERE id = ?`, store.JobDone, id)
	return err
}

func (s *JobStore) Reschedule(ctx context.Context, id string, runAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET run_at = ? WHERE id = ?`, runAt.Unix(), id)
	return err
}
