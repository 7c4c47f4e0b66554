package userbot

import (
	"context"
	"sync"
	"time"

	"github.com/adpilot/adpilot/internal/audit"
	"github.com/adpilot/adpilot/internal/provider"
	"github.com/adpilot/adpilot/internal/store"
)

// memConfigs is an in-memory ConfigStore with the same absence semantics as
// the real backends: a missing tenant gets an empty allow-list and the
// default templates.
type memConfigs struct {
	mu      sync.Mutex
	configs map[int64]*store.TenantConfig
	err     error
}

func newMemConfigs() *memConfigs {
	return &memConfigs{configs: make(map[int64]*store.TenantConfig)}
}

func (m *memConfigs) Get(_ context.Context, id int64) (*store.TenantConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if cfg, ok := m.configs[id]; ok {
		cp := *cfg
		return &cp, nil
	}
	return &store.TenantConfig{TenantID: id, Templates: store.DefaultTemplates()}, nil
}

func (m *memConfigs) SetAllowChats(_ context.Context, id int64, chats []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg := m.ensure(id)
	cfg.AllowChats = chats
	return nil
}

func (m *memConfigs) SetTemplates(_ context.Context, id int64, templates []store.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg := m.ensure(id)
	cfg.Templates = templates
	return nil
}

func (m *memConfigs) ensure(id int64) *store.TenantConfig {
	cfg, ok := m.configs[id]
	if !ok {
		cfg = &store.TenantConfig{TenantID: id, Templates: store.DefaultTemplates()}
		m.configs[id] = cfg
	}
	return cfg
}

// memTenants is an in-memory TenantStore.
type memTenants struct {
	mu      sync.Mutex
	premium map[int64]time.Time
	err     error
}

func newMemTenants() *memTenants {
	return &memTenants{premium: make(map[int64]time.Time)}
}

func (m *memTenants) Upsert(context.Context, int64, string) error { return nil }

func (m *memTenants) Get(_ context.Context, id int64) (*store.Tenant, error) {
	return &store.Tenant{ID: id, Active: true}, nil
}

func (m *memTenants) SetPremium(_ context.Context, id int64, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.premium[id] = until
	return nil
}

func (m *memTenants) PremiumActive(_ context.Context, id int64) (bool, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, time.Time{}, m.err
	}
	until, ok := m.premium[id]
	if !ok {
		return false, time.Time{}, nil
	}
	return until.After(time.Now()), until, nil
}

// memCreds is an in-memory CredentialStore.
type memCreds struct {
	mu     sync.Mutex
	tokens map[int64]string
}

func newMemCreds() *memCreds {
	return &memCreds{tokens: make(map[int64]string)}
}

func (m *memCreds) Set(_ context.Context, id int64, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[id] = token
	return nil
}

func (m *memCreds) Get(_ context.Context, id int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[id]
	if !ok {
		return "", store.ErrNotFound
	}
	return token, nil
}

func (m *memCreds) TenantIDs(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.tokens))
	for id := range m.tokens {
		ids = append(ids, id)
	}
	return ids, nil
}

// memLogs is an in-memory append-only LogStore.
type memLogs struct {
	mu      sync.Mutex
	entries []store.LogEntry
}

func (m *memLogs) Append(_ context.Context, e store.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memLogs) Recent(_ context.Context, limit int) ([]store.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.entries) {
		limit = len(m.entries)
	}
	out := make([]store.LogEntry, limit)
	copy(out, m.entries[len(m.entries)-limit:])
	return out, nil
}

// messages returns the recorded audit messages, oldest first.
func (m *memLogs) messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Message
	}
	return out
}

func newTestAudit() (*audit.Logger, *memLogs) {
	logs := &memLogs{}
	return audit.New(logs, nil), logs
}

// fakeConn records sends and serves a fixed role. A non-nil closeGate makes
// Close block until the gate is closed; closeEntered is closed when the
// first Close call arrives.
type fakeConn struct {
	mu      sync.Mutex
	texts   []string
	photos  []string
	role    provider.Role
	roleErr error
	sendErr error
	closed  bool

	closeGate    chan struct{}
	closeEntered chan struct{}
	enterOnce    sync.Once
}

func (c *fakeConn) AccountID() int64 { return 42 }

func (c *fakeConn) SendText(_ context.Context, _ int64, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.texts = append(c.texts, text)
	return nil
}

func (c *fakeConn) SendPhoto(_ context.Context, _ int64, path, caption string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.photos = append(c.photos, path+"|"+caption)
	return nil
}

func (c *fakeConn) SelfRole(context.Context, int64) (provider.Role, error) {
	if c.roleErr != nil {
		return "", c.roleErr
	}
	return c.role, nil
}

func (c *fakeConn) Close(ctx context.Context) error {
	if c.closeEntered != nil {
		c.enterOnce.Do(func() { close(c.closeEntered) })
	}
	if c.closeGate != nil {
		select {
		case <-c.closeGate:
		case <-ctx.Done():
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) sent() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.texts) + len(c.photos)
}

// fakeConnector counts connect attempts and hands out fresh fakeConns. An
// optional gate channel stalls connects so tests can observe in-flight
// attempts.
type fakeConnector struct {
	mu        sync.Mutex
	attempts  int
	err       error
	gate      chan struct{}
	closeGate chan struct{}
	handlers  map[int]provider.EventHandler
	conns     []*fakeConn
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{handlers: make(map[int]provider.EventHandler)}
}

func (f *fakeConnector) Connect(_ context.Context, _ string, handler provider.EventHandler) (provider.Conn, error) {
	f.mu.Lock()
	n := f.attempts
	f.attempts++
	f.handlers[n] = handler
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if f.err != nil {
		return nil, f.err
	}
	conn := &fakeConn{role: provider.RoleAdmin}
	f.mu.Lock()
	if f.closeGate != nil && len(f.conns) == 0 {
		conn.closeGate = f.closeGate
		conn.closeEntered = make(chan struct{})
	}
	f.conns = append(f.conns, conn)
	f.mu.Unlock()
	return conn, nil
}

func (f *fakeConnector) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}
