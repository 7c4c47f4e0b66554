package userbot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adpilot/adpilot/internal/provider"
)

func newTestGate() (*Gate, *memTenants, *memConfigs, *memLogs) {
	tenants := newMemTenants()
	configs := newMemConfigs()
	auditLog, logs := newTestAudit()
	return NewGate(tenants, configs, auditLog), tenants, configs, logs
}

// grantPremium gives the tenant an active grant and allow-lists the chat.
func grantPremium(t *testing.T, tenants *memTenants, configs *memConfigs, tenantID, chatID int64) {
	t.Helper()
	ctx := context.Background()
	if err := tenants.SetPremium(ctx, tenantID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("set premium: %v", err)
	}
	if err := configs.SetAllowChats(ctx, tenantID, []int64{chatID}); err != nil {
		t.Fatalf("set allow chats: %v", err)
	}
}

// lastDenialReason returns the reason meta of the most recent denial entry.
func lastDenialReason(t *testing.T, logs *memLogs) string {
	t.Helper()
	entries, _ := logs.Recent(context.Background(), 0)
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Message == "post not authorized" {
			return entries[i].Meta["reason"]
		}
	}
	t.Fatal("no denial entry recorded")
	return ""
}

// TestGateDenials walks each denial branch and checks the recorded reason.
func TestGateDenials(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(t *testing.T, tenants *memTenants, configs *memConfigs, conn *fakeConn)
		mode       Mode
		wantReason string
	}{
		{
			name:       "no premium grant",
			setup:      func(*testing.T, *memTenants, *memConfigs, *fakeConn) {},
			mode:       ModeManual,
			wantReason: ReasonPremiumInactive,
		},
		{
			name: "expired premium grant",
			setup: func(t *testing.T, tenants *memTenants, configs *memConfigs, _ *fakeConn) {
				tenants.SetPremium(context.Background(), 1, time.Now().Add(-time.Hour))
				configs.SetAllowChats(context.Background(), 1, []int64{100})
			},
			mode:       ModeScheduled,
			wantReason: ReasonPremiumInactive,
		},
		{
			name: "chat not allow-listed",
			setup: func(t *testing.T, tenants *memTenants, configs *memConfigs, _ *fakeConn) {
				tenants.SetPremium(context.Background(), 1, time.Now().Add(time.Hour))
				configs.SetAllowChats(context.Background(), 1, []int64{999})
			},
			mode:       ModeMonitor,
			wantReason: ReasonChatNotAllowed,
		},
		{
			name: "manual without admin rights",
			setup: func(t *testing.T, tenants *memTenants, configs *memConfigs, conn *fakeConn) {
				grantPremium(t, tenants, configs, 1, 100)
				conn.role = provider.RoleMember
			},
			mode:       ModeManual,
			wantReason: ReasonNotAdmin,
		},
		{
			name: "manual with failed role lookup",
			setup: func(t *testing.T, tenants *memTenants, configs *memConfigs, conn *fakeConn) {
				grantPremium(t, tenants, configs, 1, 100)
				conn.roleErr = errors.New("chat unreachable")
			},
			mode:       ModeManual,
			wantReason: ReasonNotAdmin,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate, tenants, configs, logs := newTestGate()
			conn := &fakeConn{role: provider.RoleAdmin}
			tt.setup(t, tenants, configs, conn)

			if gate.Authorize(context.Background(), conn, 1, 100, tt.mode) {
				t.Fatal("authorized, want denied")
			}
			if got := lastDenialReason(t, logs); got != tt.wantReason {
				t.Fatalf("denial reason = %q, want %q", got, tt.wantReason)
			}
		})
	}
}

// TestGateAuthorizes verifies the allow paths per mode, including that only
// the manual path consults the live role.
func TestGateAuthorizes(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		role provider.Role
	}{
		{"manual as creator", ModeManual, provider.RoleOwner},
		{"manual as administrator", ModeManual, provider.RoleAdmin},
		{"scheduled as plain member", ModeScheduled, provider.RoleMember},
		{"monitor as plain member", ModeMonitor, provider.RoleMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate, tenants, configs, _ := newTestGate()
			grantPremium(t, tenants, configs, 1, 100)
			conn := &fakeConn{role: tt.role}

			if !gate.Authorize(context.Background(), conn, 1, 100, tt.mode) {
				t.Fatal("denied, want authorized")
			}
		})
	}
}

// TestGateStoreFailureDenies verifies that a premium lookup failure counts
// as not authorized rather than an open gate.
func TestGateStoreFailureDenies(t *testing.T) {
	gate, tenants, _, _ := newTestGate()
	tenants.err = errors.New("db down")
	conn := &fakeConn{role: provider.RoleAdmin}

	if gate.Authorize(context.Background(), conn, 1, 100, ModeScheduled) {
		t.Fatal("authorized despite store failure")
	}
}
