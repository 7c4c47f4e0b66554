// Package audit writes tenant-scoped events to the durable log and fans
// them out to live observers. Process-level logging stays on slog; the
// audit log is domain data the tenant can see on their dashboard.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/adpilot/adpilot/internal/bus"
	"github.com/adpilot/adpilot/internal/store"
)

// Log levels.
const (
	LevelInfo  = "INFO"
	LevelError = "ERROR"
)

// Logger appends audit events and broadcasts them on the bus.
type Logger struct {
	logs store.LogStore
	pub  bus.Publisher
}

// New creates an audit logger. pub may be nil (no live feed).
func New(logs store.LogStore, pub bus.Publisher) *Logger {
	return &Logger{logs: logs, pub: pub}
}

func (l *Logger) Info(ctx context.Context, tenantID int64, message string, meta map[string]string) {
	l.append(ctx, store.LogEntry{TenantID: tenantID, Level: LevelInfo, Message: message, Meta: meta})
}

func (l *Logger) Error(ctx context.Context, tenantID int64, message string, meta map[string]string) {
	l.append(ctx, store.LogEntry{TenantID: tenantID, Level: LevelError, Message: message, Meta: meta})
}

func (l *Logger) append(ctx context.Context, e store.LogEntry) {
	e.TS = time.Now()
	if err := l.logs.Append(ctx, e); err != nil {
		// Audit failures must never take the dispatch path down.
		slog.Warn("audit append failed", "tenant_id", e.TenantID, "error", err)
	}
	if l.pub != nil {
		l.pub.Broadcast(bus.Event{Name: bus.EventLog, Payload: e})
	}
}
