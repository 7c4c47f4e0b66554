package userbot

import (
	"context"
	"log/slog"

	"github.com/adpilot/adpilot/internal/audit"
	"github.com/adpilot/adpilot/internal/provider"
	"github.com/adpilot/adpilot/internal/store"
)

// Mode identifies which dispatch path is asking for authorization.
type Mode string

const (
	ModeManual    Mode = "manual"
	ModeScheduled Mode = "scheduled"
	ModeMonitor   Mode = "monitor"
)

// Denial reason codes, recorded in the audit log.
const (
	ReasonPremiumInactive = "premium_inactive"
	ReasonChatNotAllowed  = "chat_not_allowed"
	ReasonNotAdmin        = "not_admin"
)

// Gate evaluates premium status, chat allow-listing, and (for manual posts)
// admin rights before any dispatch.
type Gate struct {
	tenants store.TenantStore
	configs store.ConfigStore
	audit   *audit.Logger
}

func NewGate(tenants store.TenantStore, configs store.ConfigStore, auditLog *audit.Logger) *Gate {
	return &Gate{tenants: tenants, configs: configs, audit: auditLog}
}

// Authorize reports whether the tenant may post into the chat. All modes
// require an active premium grant and an allow-listed chat. Manual posts
// additionally require the connection to hold admin rights in the chat,
// verified live; a failed lookup counts as not authorized. Every denial is
// logged with its reason code.
func (g *Gate) Authorize(ctx context.Context, conn provider.Conn, tenantID, chatID int64, mode Mode) bool {
	active, _, err := g.tenants.PremiumActive(ctx, tenantID)
	if err != nil {
		slog.Error("premium lookup failed", "tenant_id", tenantID, "error", err)
		return false
	}
	if !active {
		g.deny(ctx, tenantID, chatID, mode, ReasonPremiumInactive)
		return false
	}

	cfg, err := g.configs.Get(ctx, tenantID)
	if err != nil {
		slog.Error("config lookup failed", "tenant_id", tenantID, "error", err)
		return false
	}
	if !containsChat(cfg.AllowChats, chatID) {
		g.deny(ctx, tenantID, chatID, mode, ReasonChatNotAllowed)
		return false
	}

	if mode == ModeManual {
		role, err := conn.SelfRole(ctx, chatID)
		if err != nil || !role.Admin() {
			g.deny(ctx, tenantID, chatID, mode, ReasonNotAdmin)
			return false
		}
	}

	return true
}

func (g *Gate) deny(ctx context.Context, tenantID, chatID int64, mode Mode, reason string) {
	g.audit.Info(ctx, tenantID, "post not authorized", map[string]string{
		"chat_id": formatChatID(chatID),
		"mode":    string(mode),
		"reason":  reason,
	})
}

func containsChat(chats []int64, chatID int64) bool {
	for _, id := range chats {
		if id == chatID {
			return true
		}
	}
	return false
}
