package userbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adpilot/adpilot/internal/audit"
	"github.com/adpilot/adpilot/internal/provider"
	"github.com/adpilot/adpilot/internal/store"
)

// Pool errors. All mean "connection unavailable"; ErrNoCredential and
// ErrConnectFailed let callers report the right cause to the tenant.
var (
	ErrNoCredential  = errors.New("userbot: no credential stored")
	ErrConnectFailed = errors.New("userbot: connection attempt failed")
	ErrPoolClosed    = errors.New("userbot: pool shut down")
)

const closeTimeout = 5 * time.Second

type poolEntry struct {
	ready chan struct{} // closed once the connect attempt finishes
	conn  provider.Conn // nil when the attempt failed
	err   error         // why the attempt failed, written before ready closes
}

// Pool owns at most one live provider connection per tenant. Connection
// establishment happens outside the registry lock; concurrent Ensure calls
// for the same tenant coalesce onto a single connect attempt.
type Pool struct {
	connector provider.Connector
	creds     store.CredentialStore
	monitor   *Monitor
	audit     *audit.Logger

	mu      sync.Mutex
	conns   map[int64]*poolEntry
	stopped bool
}

func NewPool(connector provider.Connector, creds store.CredentialStore, monitor *Monitor, auditLog *audit.Logger) *Pool {
	return &Pool{
		connector: connector,
		creds:     creds,
		monitor:   monitor,
		audit:     auditLog,
		conns:     make(map[int64]*poolEntry),
	}
}

// Ensure returns the tenant's live connection, establishing one from the
// stored credential if needed. Idempotent: an existing connection is
// returned unchanged with no provider I/O.
func (p *Pool) Ensure(ctx context.Context, tenantID int64) (provider.Conn, error) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if e, ok := p.conns[tenantID]; ok {
		p.mu.Unlock()
		return p.await(ctx, tenantID, e)
	}

	e := &poolEntry{ready: make(chan struct{})}
	p.conns[tenantID] = e
	p.mu.Unlock()

	p.connect(ctx, tenantID, e)
	return p.await(ctx, tenantID, e)
}

// await blocks until the entry's connect attempt settles.
func (p *Pool) await(ctx context.Context, tenantID int64, e *poolEntry) (provider.Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-e.ready:
	}
	if e.conn == nil {
		err := e.err
		if err == nil {
			err = ErrNoCredential
		}
		return nil, fmt.Errorf("tenant %d: %w", tenantID, err)
	}
	return e.conn, nil
}

// connect performs the provider handshake for a fresh entry. All I/O runs
// outside the registry lock; only the final map edit is guarded.
func (p *Pool) connect(ctx context.Context, tenantID int64, e *poolEntry) {
	defer close(e.ready)

	cred, err := p.creds.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.err = ErrNoCredential
		} else {
			slog.Error("credential lookup failed", "tenant_id", tenantID, "error", err)
			e.err = fmt.Errorf("credential lookup: %w", err)
		}
		p.remove(tenantID, e)
		return
	}

	conn, err := p.connector.Connect(ctx, cred, func(ev provider.Event) {
		p.monitor.HandleInbound(tenantID, ev)
	})
	if err != nil {
		p.audit.Error(ctx, tenantID, "userbot start failed", map[string]string{"error": err.Error()})
		e.err = fmt.Errorf("%w: %v", ErrConnectFailed, err)
		p.remove(tenantID, e)
		return
	}

	e.conn = conn
	p.audit.Info(ctx, tenantID, "userbot connected", map[string]string{
		"account_id": fmt.Sprintf("%d", conn.AccountID()),
	})

	// Monitoring starts as a side effect of the first successful connect.
	if err := p.monitor.Register(ctx, tenantID); err != nil {
		slog.Error("monitor registration failed", "tenant_id", tenantID, "error", err)
	}
}

func (p *Pool) remove(tenantID int64, e *poolEntry) {
	p.mu.Lock()
	if p.conns[tenantID] == e {
		delete(p.conns, tenantID)
	}
	p.mu.Unlock()
}

// Lookup returns the tenant's live connection without creating one.
func (p *Pool) Lookup(tenantID int64) (provider.Conn, bool) {
	p.mu.Lock()
	e, ok := p.conns[tenantID]
	p.mu.Unlock()
	if !ok {
		return nil, false
	}
	select {
	case <-e.ready:
	default:
		return nil, false
	}
	if e.conn == nil {
		return nil, false
	}
	return e.conn, true
}

// Restart tears down the tenant's connection and pending timers, then
// re-runs Ensure so config changes (new allowed chats) take effect. Safe to
// call concurrently with itself and with Ensure.
func (p *Pool) Restart(ctx context.Context, tenantID int64) (provider.Conn, error) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	e, ok := p.conns[tenantID]
	if ok {
		delete(p.conns, tenantID)
	}
	// Unregister while still holding the registry lock. A concurrent Ensure
	// can only insert its entry, and therefore register the monitor, after
	// this section ends, so its registration is never wiped by this teardown.
	p.monitor.Unregister(tenantID)
	p.mu.Unlock()

	if ok {
		<-e.ready
		if e.conn != nil {
			closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			if err := e.conn.Close(closeCtx); err != nil {
				slog.Warn("connection close failed", "tenant_id", tenantID, "error", err)
			}
			cancel()
		}
	}

	return p.Ensure(ctx, tenantID)
}

// Shutdown cancels all timers and closes every live connection best-effort.
// No new work is accepted after shutdown begins.
func (p *Pool) Shutdown(ctx context.Context) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	entries := make(map[int64]*poolEntry, len(p.conns))
	for id, e := range p.conns {
		entries[id] = e
	}
	p.conns = make(map[int64]*poolEntry)
	p.mu.Unlock()

	p.monitor.Shutdown()

	for id, e := range entries {
		select {
		case <-e.ready:
		case <-ctx.Done():
			continue
		}
		if e.conn != nil {
			if err := e.conn.Close(ctx); err != nil {
				slog.Debug("connection close failed during shutdown", "tenant_id", id, "error", err)
			}
		}
	}
}
