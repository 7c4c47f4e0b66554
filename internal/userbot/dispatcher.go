package userbot

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/adpilot/adpilot/internal/audit"
	"github.com/adpilot/adpilot/internal/provider"
	"github.com/adpilot/adpilot/internal/store"
)

// Outcome is the result of one dispatch attempt.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeBlocked Outcome = "blocked"
	OutcomeFailed  Outcome = "failed"
)

// RandomTemplate selects a uniformly random template (monitor path).
const RandomTemplate = -1

// Dispatcher selects a template, resolves media, and sends. One attempt per
// call: rate-limited or failed sends are never retried here.
type Dispatcher struct {
	configs      store.ConfigStore
	audit        *audit.Logger
	defaultAsset string

	// Per-tenant outbound pacing, independent of provider backpressure.
	sendRate rate.Limit
	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
}

// NewDispatcher creates a dispatcher. defaultAsset replaces photo paths that
// do not exist on the serving host. sendsPerMinute caps outbound sends per
// tenant (0 disables pacing).
func NewDispatcher(configs store.ConfigStore, auditLog *audit.Logger, defaultAsset string, sendsPerMinute int) *Dispatcher {
	limit := rate.Inf
	if sendsPerMinute > 0 {
		limit = rate.Limit(float64(sendsPerMinute) / 60.0)
	}
	return &Dispatcher{
		configs:      configs,
		audit:        auditLog,
		defaultAsset: defaultAsset,
		sendRate:     limit,
		limiters:     make(map[int64]*rate.Limiter),
	}
}

// Dispatch sends one templated post to chatID over conn. templateIdx is
// clamped into range, or RandomTemplate for a uniform random choice.
func (d *Dispatcher) Dispatch(ctx context.Context, conn provider.Conn, tenantID, chatID int64, templateIdx int) Outcome {
	cfg, err := d.configs.Get(ctx, tenantID)
	if err != nil {
		d.audit.Error(ctx, tenantID, "config load failed", map[string]string{"error": err.Error()})
		return OutcomeFailed
	}
	if len(cfg.Templates) == 0 {
		d.audit.Error(ctx, tenantID, "no templates configured", map[string]string{"chat_id": formatChatID(chatID)})
		return OutcomeFailed
	}

	var tpl store.Template
	if templateIdx == RandomTemplate {
		tpl = cfg.Templates[rand.IntN(len(cfg.Templates))]
	} else {
		tpl = cfg.Templates[ClampIndex(templateIdx, len(cfg.Templates))]
	}

	path, caption := ResolveMedia(tpl)
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			path = d.defaultAsset
		}
	}

	if err := d.limiter(tenantID).Wait(ctx); err != nil {
		return OutcomeFailed
	}

	if path != "" {
		err = conn.SendPhoto(ctx, chatID, path, caption)
	} else {
		if caption == "" {
			d.audit.Error(ctx, tenantID, "template resolved empty", map[string]string{"chat_id": formatChatID(chatID)})
			return OutcomeFailed
		}
		err = conn.SendText(ctx, chatID, caption)
	}

	switch {
	case err == nil:
		d.audit.Info(ctx, tenantID, "ad posted", map[string]string{"chat_id": formatChatID(chatID)})
		return OutcomeSent

	case isRateLimited(err):
		wait, _ := provider.AsRateLimited(err)
		d.audit.Error(ctx, tenantID, "rate limited by provider", map[string]string{
			"chat_id": formatChatID(chatID),
			"wait":    wait.String(),
		})
		// Honor the provider-mandated wait, then give up on this attempt.
		sleep(ctx, wait)
		return OutcomeFailed

	case errors.Is(err, provider.ErrWriteForbidden):
		d.audit.Error(ctx, tenantID, "posting forbidden in chat", map[string]string{"chat_id": formatChatID(chatID)})
		return OutcomeBlocked

	default:
		d.audit.Error(ctx, tenantID, "post failed", map[string]string{
			"chat_id": formatChatID(chatID),
			"error":   err.Error(),
		})
		return OutcomeFailed
	}
}

func (d *Dispatcher) limiter(tenantID int64) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.limiters[tenantID]
	if !ok {
		l = rate.NewLimiter(d.sendRate, 1)
		d.limiters[tenantID] = l
	}
	return l
}

func isRateLimited(err error) bool {
	_, ok := provider.AsRateLimited(err)
	return ok
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func formatChatID(chatID int64) string {
	return fmt.Sprintf("%d", chatID)
}
