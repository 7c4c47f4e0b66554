// Package scheduler provides durable at-least-once delivery of scheduled
// posts. Jobs live in the store; a poll loop picks up due ones and runs the
// dispatch pipeline.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"
	"github.com/google/uuid"

	"github.com/adpilot/adpilot/internal/store"
	"github.com/adpilot/adpilot/internal/userbot"
)

// Defaults per the service contract.
const (
	DefaultPollInterval = 3 * time.Second
	DefaultBatchSize    = 30
	DefaultMinDelay     = 5 * time.Second
)

// ErrBadCron is returned for an invalid cron expression.
var ErrBadCron = errors.New("scheduler: invalid cron expression")

// DispatchFunc runs the scheduled dispatch pipeline for one job.
type DispatchFunc func(ctx context.Context, tenantID, chatID int64, templateIdx int) userbot.Outcome

// Scheduler owns the job queue poll loop.
type Scheduler struct {
	jobs     store.JobStore
	dispatch DispatchFunc

	interval  time.Duration
	batchSize int
	minDelay  time.Duration
	cron      *gronx.Gronx
}

// Options tunes the poll loop. Zero values fall back to defaults.
type Options struct {
	PollInterval time.Duration
	BatchSize    int
	MinDelay     time.Duration
}

func New(jobs store.JobStore, dispatch DispatchFunc, opts Options) *Scheduler {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MinDelay <= 0 {
		opts.MinDelay = DefaultMinDelay
	}
	return &Scheduler{
		jobs:      jobs,
		dispatch:  dispatch,
		interval:  opts.PollInterval,
		batchSize: opts.BatchSize,
		minDelay:  opts.MinDelay,
		cron:      gronx.New(),
	}
}

// Schedule enqueues a one-time post after delay. The delay is floored to
// avoid racing the poll loop; the returned job ID is globally unique.
func (s *Scheduler) Schedule(ctx context.Context, tenantID, chatID int64, templateIdx int, delay time.Duration) (string, error) {
	if delay < s.minDelay {
		delay = s.minDelay
	}
	job := store.Job{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		ChatID:      chatID,
		TemplateIdx: templateIdx,
		RunAt:       time.Now().Add(delay),
		Status:      store.JobPending,
	}
	if err := s.jobs.Add(ctx, job); err != nil {
		return "", fmt.Errorf("add job: %w", err)
	}
	return job.ID, nil
}

// ScheduleCron enqueues a recurring post. After each run the job is moved
// to the next cron tick instead of being marked done.
func (s *Scheduler) ScheduleCron(ctx context.Context, tenantID, chatID int64, templateIdx int, expr string) (string, error) {
	if !s.cron.IsValid(expr) {
		return "", fmt.Errorf("%w: %q", ErrBadCron, expr)
	}
	next, err := gronx.NextTick(expr, false)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrBadCron, expr)
	}
	job := store.Job{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		ChatID:      chatID,
		TemplateIdx: templateIdx,
		RunAt:       next,
		Cron:        expr,
		Status:      store.JobPending,
	}
	if err := s.jobs.Add(ctx, job); err != nil {
		return "", fmt.Errorf("add job: %w", err)
	}
	return job.ID, nil
}

// Run polls for due jobs until ctx is cancelled. A store error in one
// iteration is logged and the loop retries on the next tick.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("job scheduler started", "interval", s.interval, "batch", s.batchSize)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("job scheduler stopped")
			return
		case <-ticker.C:
			if err := s.runOnce(ctx, time.Now()); err != nil {
				slog.Error("scheduler poll failed", "error", err)
			}
		}
	}
}

// runOnce processes one batch of due jobs synchronously. Jobs are marked
// done regardless of dispatch outcome: delivery is at-least-once, and a
// failed send is not retried.
func (s *Scheduler) runOnce(ctx context.Context, now time.Time) error {
	due, err := s.jobs.Due(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("fetch due jobs: %w", err)
	}

	for _, job := range due {
		outcome := s.dispatch(ctx, job.TenantID, job.ChatID, job.TemplateIdx)
		slog.Debug("scheduled job dispatched",
			"job_id", job.ID, "tenant_id", job.TenantID, "chat_id", job.ChatID, "outcome", outcome)

		if job.Cron != "" {
			next, nextErr := gronx.NextTickAfter(job.Cron, now, false)
			if nextErr == nil {
				if err := s.jobs.Reschedule(ctx, job.ID, next); err != nil {
					slog.Error("job reschedule failed", "job_id", job.ID, "error", err)
				}
				continue
			}
			slog.Error("cron expression stopped parsing, completing job", "job_id", job.ID, "error", nextErr)
		}
		if err := s.jobs.MarkDone(ctx, job.ID); err != nil {
			slog.Error("job mark-done failed", "job_id", job.ID, "error", err)
		}
	}
	return nil
}
