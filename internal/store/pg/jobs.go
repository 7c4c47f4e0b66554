package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/adpilot/adpilot/internal/store"
)

// JobStore implements store.JobStore on Postgres.
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
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		j.ID, j.TenantID, j.ChatID, j.TemplateIdx, j.RunAt, j.Cron, j.Status,
	)
	return err
}

func (s *JobStore) Due(ctx context.Context, now time.Time, limit int) ([]store.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, chat_id, template_idx, run_at, cron, status
		 FROM jobs WHERE status = $1 AND run_at <= $2 ORDER BY run_at LIMIT $3`,
		store.JobPending, now, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Job
	for rows.Next() {
		var j store.Job
		if err := rows.Scan(&j.ID, &j.TenantID, &j.ChatID, &j.TemplateIdx, &j.RunAt, &j.Cron, &j.Status); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *JobStore) MarkDone(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = $1 WHERE id = $2`, store.JobDone, id)
	return err
}

func (s *JobStore) Reschedule(ctx context.Context, id string, runAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET run_at = $1 WHERE id = $2`, runAt, id)
	return err
}
