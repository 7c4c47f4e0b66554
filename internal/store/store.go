package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Job status values.
const (
	JobPending = "pending"
	JobDone    = "done"
)

// Tenant is an end user who connected their own messaging account.
type Tenant struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	PremiumUntil time.Time `json:"premium_until,omitempty"`
	Active       bool      `json:"active"`
}

// Template is one advertisement template. Image is optional; when empty the
// dispatcher still accepts the legacy "image:<path>" convention inside Text.
type Template struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// TenantConfig holds the per-tenant automation settings. AllowChats doubles
// as the monitored-chat set for the activity monitor.
type TenantConfig struct {
	TenantID   int64      `json:"tenant_id"`
	AllowChats []int64    `json:"allow_chats"`
	Templates  []Template `json:"templates"`
}

// Job is a durable record of a future post. One-shot jobs have an empty Cron;
// recurring jobs carry a cron expression and are rescheduled after each run.
type Job struct {
	ID          string    `json:"id"`
	TenantID    int64     `json:"tenant_id"`
	ChatID      int64     `json:"chat_id"`
	TemplateIdx int       `json:"template_idx"`
	RunAt       time.Time `json:"run_at"`
	Cron        string    `json:"cron,omitempty"`
	Status      string    `json:"status"`
}

// LogEntry is one tenant-scoped audit event.
type LogEntry struct {
	TS       time.Time         `json:"ts"`
	TenantID int64             `json:"tenant_id"`
	Level    string            `json:"level"`
	Message  string            `json:"message"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// TenantStore manages tenant profiles and premium grants.
type TenantStore interface {
	Upsert(ctx context.Context, id int64, username string) error
	Get(ctx context.Context, id int64) (*Tenant, error)
	SetPremium(ctx context.Context, id int64, until time.Time) error
	// PremiumActive reports whether the tenant's grant extends past now,
	// together with its expiry. A missing tenant is simply inactive.
	PremiumActive(ctx context.Context, id int64) (bool, time.Time, error)
}

// CredentialStore manages the opaque provider session tokens. Tokens are
// read-only to the automation core; only the command surface writes them.
type CredentialStore interface {
	Set(ctx context.Context, id int64, token string) error
	// Get returns ErrNotFound when the tenant never connected a credential.
	Get(ctx context.Context, id int64) (string, error)
	// TenantIDs lists every tenant with a stored credential, used to
	// resurrect userbot connections on startup.
	TenantIDs(ctx context.Context) ([]int64, error)
}

// ConfigStore manages per-tenant automation config.
type ConfigStore interface {
	// Get never fails on absence: a tenant without a stored config gets
	// an empty allow-list and the default templates.
	Get(ctx context.Context, id int64) (*TenantConfig, error)
	SetAllowChats(ctx context.Context, id int64, chats []int64) error
	SetTemplates(ctx context.Context, id int64, templates []Template) error
}

// LogStore is an append-only tenant-scoped audit log.
type LogStore interface {
	Append(ctx context.Context, e LogEntry) error
	Recent(ctx context.Context, limit int) ([]LogEntry, error)
}

// JobStore manages the scheduled-post queue. Delivery is at-least-once: a
// crash between dispatch and MarkDone redelivers on restart.
type JobStore interface {
	Add(ctx context.Context, j Job) error
	// Due returns up to limit pending jobs with run_at <= now, oldest first.
	Due(ctx context.Context, now time.Time, limit int) ([]Job, error)
	MarkDone(ctx context.Context, id string) error
	// Reschedule moves a pending job's run_at forward (recurring jobs).
	Reschedule(ctx context.Context, id string, runAt time.Time) error
}

// Stores is the top-level container for all storage backends.
type Stores struct {
	Tenants     TenantStore
	Credentials CredentialStore
	Configs     ConfigStore
	Logs        LogStore
	Jobs        JobStore

	closer func() error
}

// SetCloser registers the backend cleanup hook. Factories call this.
func (s *Stores) SetCloser(fn func() error) { s.closer = fn }

// Close releases the underlying backend.
func (s *Stores) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// DefaultTemplates are used when a tenant has no stored templates.
func DefaultTemplates() []Template {
	return []Template{
		{Text: "Hello! This is a scheduled update."},
		{Text: "Reminder: Please check the pinned message."},
	}
}
