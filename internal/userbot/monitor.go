package userbot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/adpilot/adpilot/internal/provider"
	"github.com/adpilot/adpilot/internal/store"
)

// DefaultQuietWindow is the debounce window: a monitored chat must stay
// quiet this long after its last message before a post fires.
const DefaultQuietWindow = 15 * time.Second

// FireFunc runs the dispatch pipeline for a (tenant, chat) whose quiet
// window elapsed. It runs on the timer goroutine.
type FireFunc func(tenantID, chatID int64)

type timerKey struct {
	tenantID int64
	chatID   int64
}

type quietTimer struct {
	cancel chan struct{}
}

// Monitor debounces chat activity per (tenant, chat). Each qualifying
// inbound message cancels the previous timer and arms a fresh one, so only
// the last message of a burst can result in a dispatch. Timers live in
// process memory only; a restart simply re-observes the next message.
type Monitor struct {
	configs store.ConfigStore
	fire    FireFunc
	window  time.Duration
	ignored map[string]struct{}

	mu      sync.Mutex
	watched map[int64]map[int64]struct{}
	timers  map[timerKey]*quietTimer
	stopped bool
}

// NewMonitor creates an activity monitor. ignoredAccounts are usernames of
// well-known automation bots whose messages never count as activity.
func NewMonitor(configs store.ConfigStore, window time.Duration, ignoredAccounts []string) *Monitor {
	if window <= 0 {
		window = DefaultQuietWindow
	}
	ignored := make(map[string]struct{}, len(ignoredAccounts))
	for _, name := range ignoredAccounts {
		ignored[name] = struct{}{}
	}
	return &Monitor{
		configs: configs,
		window:  window,
		ignored: ignored,
		watched: make(map[int64]map[int64]struct{}),
		timers:  make(map[timerKey]*quietTimer),
	}
}

// SetFire installs the dispatch callback. Must be called before any
// connection starts delivering events.
func (m *Monitor) SetFire(fn FireFunc) { m.fire = fn }

// Register loads the tenant's monitored-chat set. A tenant with an empty
// allow-list gets no registration and no timers.
func (m *Monitor) Register(ctx context.Context, tenantID int64) error {
	cfg, err := m.configs.Get(ctx, tenantID)
	if err != nil {
		return err
	}
	if len(cfg.AllowChats) == 0 {
		return nil
	}

	chats := make(map[int64]struct{}, len(cfg.AllowChats))
	for _, id := range cfg.AllowChats {
		chats[id] = struct{}{}
	}

	m.mu.Lock()
	m.watched[tenantID] = chats
	m.mu.Unlock()

	slog.Debug("monitor registered", "tenant_id", tenantID, "chats", len(chats))
	return nil
}

// Unregister drops the tenant's monitored set and cancels every pending
// timer for that tenant. Used on session restart and teardown.
func (m *Monitor) Unregister(tenantID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.watched, tenantID)
	for key, t := range m.timers {
		if key.tenantID == tenantID {
			close(t.cancel)
			delete(m.timers, key)
		}
	}
}

// HandleInbound observes one inbound event for a tenant connection and
// re-arms the (tenant, chat) timer when the event qualifies. Never blocks.
func (m *Monitor) HandleInbound(tenantID int64, ev provider.Event) {
	if ev.IsSelf {
		return
	}
	if _, ok := m.ignored[ev.SenderUsername]; ok {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}
	chats, ok := m.watched[tenantID]
	if !ok {
		return
	}
	if _, ok := chats[ev.ChatID]; !ok {
		return
	}

	key := timerKey{tenantID: tenantID, chatID: ev.ChatID}
	if prev, ok := m.timers[key]; ok {
		close(prev.cancel)
	}
	t := &quietTimer{cancel: make(chan struct{})}
	m.timers[key] = t

	go m.wait(key, t)
}

// wait sleeps out the quiet window, then fires unless superseded.
// Cancellation is normal control flow, not an error.
func (m *Monitor) wait(key timerKey, t *quietTimer) {
	timer := time.NewTimer(m.window)
	defer timer.Stop()

	select {
	case <-t.cancel:
		return
	case <-timer.C:
	}

	m.mu.Lock()
	if m.stopped || m.timers[key] != t {
		m.mu.Unlock()
		return
	}
	delete(m.timers, key)
	m.mu.Unlock()

	if m.fire != nil {
		m.fire(key.tenantID, key.chatID)
	}
}

// Shutdown cancels every pending timer. No new timers are armed after.
func (m *Monitor) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopped = true
	for key, t := range m.timers {
		close(t.cancel)
		delete(m.timers, key)
	}
	m.watched = make(map[int64]map[int64]struct{})
}
