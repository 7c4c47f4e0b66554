package userbot

import (
	"context"
	"testing"
	"time"

	"github.com/adpilot/adpilot/internal/store"
)

// newTestService wires a full Service over in-memory stores and a fake
// connector.
func newTestService(connector *fakeConnector) (*Service, *memTenants, *memConfigs, *memCreds) {
	tenants := newMemTenants()
	configs := newMemConfigs()
	creds := newMemCreds()
	auditLog, _ := newTestAudit()
	stores := &store.Stores{
		Tenants:     tenants,
		Credentials: creds,
		Configs:     configs,
		Logs:        &memLogs{},
	}
	svc := NewService(connector, stores, auditLog, Options{QuietWindow: time.Second})
	return svc, tenants, configs, creds
}

// TestPostNowSends verifies the full manual path: ensure, authorize, send.
func TestPostNowSends(t *testing.T) {
	ctx := context.Background()
	connector := newFakeConnector()
	svc, tenants, configs, creds := newTestService(connector)

	creds.Set(ctx, 1, "token-1")
	grantPremium(t, tenants, configs, 1, 100)
	configs.SetTemplates(ctx, 1, []store.Template{{Text: "ad"}})

	if !svc.PostNow(ctx, 1, 100, 0) {
		t.Fatal("post now failed, want success")
	}
	if got := connector.conns[0].sent(); got != 1 {
		t.Fatalf("sends = %d, want 1", got)
	}
}

// TestPostNowWithoutCredential verifies a tenant who never connected gets a
// clean false, not a panic or a send.
func TestPostNowWithoutCredential(t *testing.T) {
	connector := newFakeConnector()
	svc, tenants, configs, _ := newTestService(connector)
	grantPremium(t, tenants, configs, 1, 100)

	if svc.PostNow(context.Background(), 1, 100, 0) {
		t.Fatal("post now succeeded without credential")
	}
}

// TestPostNowDeniedNotSent verifies a gate denial produces no send.
func TestPostNowDeniedNotSent(t *testing.T) {
	ctx := context.Background()
	connector := newFakeConnector()
	svc, _, _, creds := newTestService(connector)
	creds.Set(ctx, 1, "token-1")

	// No premium grant: the gate must deny before the dispatcher runs.
	if svc.PostNow(ctx, 1, 100, 0) {
		t.Fatal("post now succeeded without premium")
	}
	if got := connector.conns[0].sent(); got != 0 {
		t.Fatalf("sends = %d, want 0", got)
	}
}

// TestDispatchScheduledOutcomes verifies the scheduled path maps
// unavailability and denial to the right outcomes.
func TestDispatchScheduledOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("no connection", func(t *testing.T) {
		svc, tenants, configs, _ := newTestService(newFakeConnector())
		grantPremium(t, tenants, configs, 1, 100)
		if got := svc.DispatchScheduled(ctx, 1, 100, 0); got != OutcomeFailed {
			t.Fatalf("outcome = %q, want %q", got, OutcomeFailed)
		}
	})

	t.Run("denied", func(t *testing.T) {
		svc, _, _, creds := newTestService(newFakeConnector())
		creds.Set(ctx, 1, "token-1")
		if got := svc.DispatchScheduled(ctx, 1, 100, 0); got != OutcomeBlocked {
			t.Fatalf("outcome = %q, want %q", got, OutcomeBlocked)
		}
	})

	t.Run("sent", func(t *testing.T) {
		svc, tenants, configs, creds := newTestService(newFakeConnector())
		creds.Set(ctx, 1, "token-1")
		grantPremium(t, tenants, configs, 1, 100)
		configs.SetTemplates(ctx, 1, []store.Template{{Text: "ad"}})
		if got := svc.DispatchScheduled(ctx, 1, 100, 0); got != OutcomeSent {
			t.Fatalf("outcome = %q, want %q", got, OutcomeSent)
		}
	})
}
