// Package userbot manages tenant provider connections and the two automated
// dispatch paths: the activity monitor (post when a monitored chat goes
// quiet) and scheduled posts handed in by the job scheduler.
package userbot

import (
	"context"
	"log/slog"
	"time"

	"github.com/adpilot/adpilot/internal/audit"
	"github.com/adpilot/adpilot/internal/provider"
	"github.com/adpilot/adpilot/internal/store"
)

const fireTimeout = 30 * time.Second

// Options tunes the automation core. Zero values fall back to defaults.
type Options struct {
	QuietWindow     time.Duration
	IgnoredAccounts []string
	DefaultAsset    string
	SendsPerMinute  int
}

// Service composes the session pool, activity monitor, authorization gate,
// and dispatcher into the surface the command layer and scheduler consume.
type Service struct {
	pool       *Pool
	monitor    *Monitor
	gate       *Gate
	dispatcher *Dispatcher
	audit      *audit.Logger
}

func NewService(connector provider.Connector, stores *store.Stores, auditLog *audit.Logger, opts Options) *Service {
	monitor := NewMonitor(stores.Configs, opts.QuietWindow, opts.IgnoredAccounts)
	s := &Service{
		monitor:    monitor,
		pool:       NewPool(connector, stores.Credentials, monitor, auditLog),
		gate:       NewGate(stores.Tenants, stores.Configs, auditLog),
		dispatcher: NewDispatcher(stores.Configs, auditLog, opts.DefaultAsset, opts.SendsPerMinute),
		audit:      auditLog,
	}
	monitor.SetFire(s.fireQuiet)
	return s
}

// Ensure returns the tenant's live connection, establishing it if needed.
func (s *Service) Ensure(ctx context.Context, tenantID int64) (provider.Conn, error) {
	return s.pool.Ensure(ctx, tenantID)
}

// Restart tears down and re-establishes the tenant's connection so config
// changes take effect.
func (s *Service) Restart(ctx context.Context, tenantID int64) error {
	_, err := s.pool.Restart(ctx, tenantID)
	return err
}

// PostNow runs the manual dispatch path. The result collapses to a single
// boolean: true only when the post was authorized and sent.
func (s *Service) PostNow(ctx context.Context, tenantID, chatID int64, templateIdx int) bool {
	conn, err := s.pool.Ensure(ctx, tenantID)
	if err != nil {
		slog.Info("manual post without connection", "tenant_id", tenantID, "error", err)
		return false
	}
	if !s.gate.Authorize(ctx, conn, tenantID, chatID, ModeManual) {
		return false
	}
	return s.dispatcher.Dispatch(ctx, conn, tenantID, chatID, templateIdx) == OutcomeSent
}

// DispatchScheduled runs the scheduled dispatch path for one due job.
func (s *Service) DispatchScheduled(ctx context.Context, tenantID, chatID int64, templateIdx int) Outcome {
	conn, err := s.pool.Ensure(ctx, tenantID)
	if err != nil {
		s.audit.Error(ctx, tenantID, "scheduled post without connection", map[string]string{
			"chat_id": formatChatID(chatID),
		})
		return OutcomeFailed
	}
	if !s.gate.Authorize(ctx, conn, tenantID, chatID, ModeScheduled) {
		return OutcomeBlocked
	}
	return s.dispatcher.Dispatch(ctx, conn, tenantID, chatID, templateIdx)
}

// fireQuiet is the monitor's callback: a monitored chat stayed quiet for a
// full window. Runs on the timer goroutine.
func (s *Service) fireQuiet(tenantID, chatID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()

	conn, ok := s.pool.Lookup(tenantID)
	if !ok {
		// Connection went away between arming and firing.
		return
	}
	if !s.gate.Authorize(ctx, conn, tenantID, chatID, ModeMonitor) {
		return
	}
	s.dispatcher.Dispatch(ctx, conn, tenantID, chatID, RandomTemplate)
}

// Shutdown stops all timers and connections. Never fails.
func (s *Service) Shutdown(ctx context.Context) {
	s.pool.Shutdown(ctx)
}
