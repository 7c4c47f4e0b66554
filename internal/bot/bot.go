// Package bot implements the operator-facing Telegram bot: the command
// surface tenants use to connect credentials, manage allow-lists and
// templates, and trigger or schedule posts.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/adpilot/adpilot/internal/audit"
	"github.com/adpilot/adpilot/internal/config"
	"github.com/adpilot/adpilot/internal/scheduler"
	"github.com/adpilot/adpilot/internal/store"
	"github.com/adpilot/adpilot/internal/userbot"
)

// Bot is the service bot, long polling for tenant commands.
type Bot struct {
	bot      *telego.Bot
	cfg      config.BotConfig
	stores   *store.Stores
	userbots *userbot.Service
	sched    *scheduler.Scheduler
	audit    *audit.Logger

	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

func New(cfg config.BotConfig, stores *store.Stores, userbots *userbot.Service, sched *scheduler.Scheduler, auditLog *audit.Logger) (*Bot, error) {
	b, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create service bot: %w", err)
	}
	return &Bot{
		bot:      b,
		cfg:      cfg,
		stores:   stores,
		userbots: userbots,
		sched:    sched,
		audit:    auditLog,
	}, nil
}

// Start begins long polling for commands.
func (b *Bot) Start(ctx context.Context) error {
	slog.Info("starting service bot (polling mode)")

	pollCtx, cancel := context.WithCancel(ctx)
	b.pollCancel = cancel
	b.pollDone = make(chan struct{})

	updates, err := b.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("start long polling: %w", err)
	}

	slog.Info("service bot connected", "username", b.bot.Username())
	b.audit.Info(ctx, 0, "service bot started", map[string]string{"username": b.bot.Username()})

	go func() {
		defer close(b.pollDone)
		for {
			select {
			case <-pollCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					slog.Info("service bot updates channel closed")
					return
				}
				if update.Message != nil {
					b.handleMessage(pollCtx, update.Message)
				}
			}
		}
	}()

	return nil
}

// Stop shuts the service bot down and waits for the polling goroutine.
func (b *Bot) Stop(_ context.Context) error {
	slog.Info("stopping service bot")
	if b.pollCancel != nil {
		b.pollCancel()
	}
	if b.pollDone != nil {
		select {
		case <-b.pollDone:
		case <-time.After(10 * time.Second):
			slog.Warn("service bot polling goroutine did not exit within timeout")
		}
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *telego.Message) {
	if msg.From == nil || msg.Chat.Type != "private" {
		return
	}

	tenantID := msg.From.ID
	username := msg.From.Username
	if err := b.stores.Tenants.Upsert(ctx, tenantID, username); err != nil {
		slog.Error("tenant upsert failed", "tenant_id", tenantID, "error", err)
	}

	// Payment proofs: forward photo/document DMs to the admin for manual review.
	if msg.Text == "" && (msg.Photo != nil || msg.Document != nil) {
		b.forwardPaymentProof(ctx, msg, tenantID, username)
		return
	}

	if !strings.HasPrefix(msg.Text, "/") {
		return
	}

	fields := strings.Fields(msg.Text)
	command := strings.TrimSuffix(fields[0], "@"+b.bot.Username())
	args := fields[1:]

	switch command {
	case "/start":
		b.reply(ctx, msg.Chat.ID, startText(b.cfg.PriceWeek))
	case "/help":
		b.reply(ctx, msg.Chat.ID, helpText())
	case "/pricing":
		b.reply(ctx, msg.Chat.ID, pricingText(b.cfg.PriceWeek))
	case "/buy":
		b.reply(ctx, msg.Chat.ID, buyText())
	case "/login":
		b.reply(ctx, msg.Chat.ID, loginText())
	case "/dashboard":
		b.handleDashboard(ctx, msg.Chat.ID, tenantID, username)
	case "/connect":
		b.handleConnect(ctx, msg, tenantID, args)
	case "/allow":
		b.handleAllow(ctx, msg.Chat.ID, tenantID, args)
	case "/allowlist":
		b.handleAllowlist(ctx, msg.Chat.ID, tenantID)
	case "/settpl":
		b.handleSetTemplate(ctx, msg, tenantID)
	case "/cleartpl":
		b.handleClearTemplates(ctx, msg.Chat.ID, tenantID)
	case "/post":
		b.handlePost(ctx, msg.Chat.ID, tenantID, args)
	case "/schedule":
		b.handleSchedule(ctx, msg.Chat.ID, tenantID, args)
	case "/schedulecron":
		b.handleScheduleCron(ctx, msg.Chat.ID, tenantID, args)
	case "/restart":
		b.handleRestart(ctx, msg.Chat.ID, tenantID)
	case "/approve":
		b.handleApprove(ctx, msg.Chat.ID, tenantID, msg.Text)
	default:
		b.reply(ctx, msg.Chat.ID, "Unknown command. Try /help.")
	}
}

func (b *Bot) handleDashboard(ctx context.Context, chatID, tenantID int64, username string) {
	premiumOK, premiumUntil, err := b.stores.Tenants.PremiumActive(ctx, tenantID)
	if err != nil {
		slog.Error("premium lookup failed", "tenant_id", tenantID, "error", err)
	}
	_, credErr := b.stores.Credentials.Get(ctx, tenantID)
	hasCred := credErr == nil
	cfg, err := b.stores.Configs.Get(ctx, tenantID)
	allowCount := 0
	if err == nil {
		allowCount = len(cfg.AllowChats)
	}
	b.reply(ctx, chatID, dashboardText(tenantID, username, premiumOK, premiumUntil, hasCred, allowCount))
}

func (b *Bot) handleConnect(ctx context.Context, msg *telego.Message, tenantID int64, args []string) {
	if len(args) < 1 || len(args[0]) < minCredentialLen {
		b.reply(ctx, msg.Chat.ID, "Usage: /connect <BOT_TOKEN>")
		return
	}
	token := args[0]
	if err := b.stores.Credentials.Set(ctx, tenantID, token); err != nil {
		slog.Error("credential store failed", "tenant_id", tenantID, "error", err)
		b.reply(ctx, msg.Chat.ID, "Could not save the credential, try again later.")
		return
	}
	b.audit.Info(ctx, tenantID, "credential connected", nil)

	// Verify the credential by starting the userbot once.
	if _, err := b.userbots.Ensure(ctx, tenantID); err != nil {
		b.reply(ctx, msg.Chat.ID, "Credential saved, but the connection test failed. Double-check the token.")
		return
	}
	b.reply(ctx, msg.Chat.ID, "Connected! See /dashboard for status.")
}

func (b *Bot) handleAllow(ctx context.Context, chatID, tenantID int64, args []string) {
	if len(args) < 1 {
		b.reply(ctx, chatID, "Usage: /allow <chat_id>")
		return
	}
	target, err := parseChatID(args[0])
	if err != nil {
		b.reply(ctx, chatID, "That does not look like a chat ID. Example: /allow -1001234567890")
		return
	}

	cfg, err := b.stores.Configs.Get(ctx, tenantID)
	if err != nil {
		slog.Error("config load failed", "tenant_id", tenantID, "error", err)
		return
	}
	for _, id := range cfg.AllowChats {
		if id == target {
			b.reply(ctx, chatID, "That chat is already allow-listed.")
			return
		}
	}
	chats := append(cfg.AllowChats, target)
	if err := b.stores.Configs.SetAllowChats(ctx, tenantID, chats); err != nil {
		slog.Error("allow-list update failed", "tenant_id", tenantID, "error", err)
		return
	}
	b.audit.Info(ctx, tenantID, "chat allow-listed", map[string]string{"chat_id": args[0]})

	// Restart the session so monitoring covers the new chat.
	if err := b.userbots.Restart(ctx, tenantID); err != nil {
		slog.Info("session restart after allow failed", "tenant_id", tenantID, "error", err)
	}
	b.reply(ctx, chatID, fmt.Sprintf("Allow-listed %d (%d total).", target, len(chats)))
}

func (b *Bot) handleAllowlist(ctx context.Context, chatID, tenantID int64) {
	cfg, err := b.stores.Configs.Get(ctx, tenantID)
	if err != nil || len(cfg.AllowChats) == 0 {
		b.reply(ctx, chatID, "No chats allow-listed yet. Add one with /allow <chat_id>.")
		return
	}
	var sb strings.Builder
	sb.WriteString("Allow-listed chats:\n")
	for _, id := range cfg.AllowChats {
		fmt.Fprintf(&sb, "• %d\n", id)
	}
	b.reply(ctx, chatID, sb.String())
}

func (b *Bot) handleSetTemplate(ctx context.Context, msg *telego.Message, tenantID int64) {
	_, body, found := strings.Cut(msg.Text, " ")
	body = strings.TrimSpace(body)
	if !found || body == "" {
		b.reply(ctx, msg.Chat.ID, "Usage: /settpl <template text>\nPrefix with \"image:<path>\" on the first line to attach a photo.")
		return
	}

	cfg, err := b.stores.Configs.Get(ctx, tenantID)
	if err != nil {
		slog.Error("config load failed", "tenant_id", tenantID, "error", err)
		return
	}
	templates := append(cfg.Templates, store.Template{Text: body})
	if err := b.stores.Configs.SetTemplates(ctx, tenantID, templates); err != nil {
		slog.Error("template update failed", "tenant_id", tenantID, "error", err)
		return
	}
	b.reply(ctx, msg.Chat.ID, fmt.Sprintf("Template #%d saved.", len(templates)-1))
}

func (b *Bot) handleClearTemplates(ctx context.Context, chatID, tenantID int64) {
	if err := b.stores.Configs.SetTemplates(ctx, tenantID, nil); err != nil {
		slog.Error("template clear failed", "tenant_id", tenantID, "error", err)
		return
	}
	b.reply(ctx, chatID, "Templates cleared. Defaults apply until you /settpl new ones.")
}

func (b *Bot) handlePost(ctx context.Context, chatID, tenantID int64, args []string) {
	target, idx, err := parsePostArgs(args)
	if err != nil {
		b.reply(ctx, chatID, "Usage: /post <chat_id> <template_idx>")
		return
	}
	if b.userbots.PostNow(ctx, tenantID, target, idx) {
		b.reply(ctx, chatID, "Posted.")
	} else {
		b.reply(ctx, chatID, "Post failed or not authorized. Check /dashboard and the chat allow-list.")
	}
}

func (b *Bot) handleSchedule(ctx context.Context, chatID, tenantID int64, args []string) {
	target, idx, delay, err := parseScheduleArgs(args)
	if err != nil {
		b.reply(ctx, chatID, "Usage: /schedule <chat_id> <template_idx> <seconds>")
		return
	}
	jobID, err := b.sched.Schedule(ctx, tenantID, target, idx, delay)
	if err != nil {
		slog.Error("schedule failed", "tenant_id", tenantID, "error", err)
		b.reply(ctx, chatID, "Could not schedule the post, try again later.")
		return
	}
	b.audit.Info(ctx, tenantID, "post scheduled", map[string]string{"job_id": jobID, "chat_id": args[0]})
	b.reply(ctx, chatID, fmt.Sprintf("Scheduled. Job ID: %s", jobID))
}

func (b *Bot) handleScheduleCron(ctx context.Context, chatID, tenantID int64, args []string) {
	if len(args) < 3 {
		b.reply(ctx, chatID, "Usage: /schedulecron <chat_id> <template_idx> <cron expression>\nExample: /schedulecron -1001234567890 0 0 9 * * *")
		return
	}
	target, idx, err := parsePostArgs(args[:2])
	if err != nil {
		b.reply(ctx, chatID, "Usage: /schedulecron <chat_id> <template_idx> <cron expression>")
		return
	}
	expr := strings.Join(args[2:], " ")
	jobID, err := b.sched.ScheduleCron(ctx, tenantID, target, idx, expr)
	if err != nil {
		b.reply(ctx, chatID, "That cron expression did not parse.")
		return
	}
	b.audit.Info(ctx, tenantID, "recurring post scheduled", map[string]string{"job_id": jobID, "cron": expr})
	b.reply(ctx, chatID, fmt.Sprintf("Recurring post scheduled. Job ID: %s", jobID))
}

func (b *Bot) handleRestart(ctx context.Context, chatID, tenantID int64) {
	if err := b.userbots.Restart(ctx, tenantID); err != nil {
		if errors.Is(err, userbot.ErrNoCredential) {
			b.reply(ctx, chatID, "Restart failed: no credential connected. See /login.")
		} else {
			b.reply(ctx, chatID, "Restart failed: could not reconnect with the stored credential. Double-check the token with /connect.")
		}
		return
	}
	b.reply(ctx, chatID, "Session restarted.")
}

func (b *Bot) handleApprove(ctx context.Context, chatID, senderID int64, text string) {
	if b.cfg.AdminID == 0 || senderID != b.cfg.AdminID {
		return
	}
	target, duration, ok := parseApprove(text)
	if !ok {
		b.reply(ctx, chatID, "Usage: /approve <tenant_id> <7_days|7d>")
		return
	}
	until := time.Now().Add(duration)
	if err := b.stores.Tenants.SetPremium(ctx, target, until); err != nil {
		slog.Error("premium grant failed", "tenant_id", target, "error", err)
		b.reply(ctx, chatID, "Grant failed, see logs.")
		return
	}
	b.audit.Info(ctx, target, "premium approved", map[string]string{"until": until.Format(time.RFC3339)})
	b.reply(ctx, chatID, approvedText(target, until))

	// Tell the tenant, best-effort.
	b.reply(ctx, target, fmt.Sprintf("Premium activated until %s. Happy posting!", until.Format("2006-01-02 15:04")))
}

func (b *Bot) forwardPaymentProof(ctx context.Context, msg *telego.Message, tenantID int64, username string) {
	if b.cfg.AdminID == 0 {
		return
	}
	_, err := b.bot.ForwardMessage(ctx, &telego.ForwardMessageParams{
		ChatID:     tu.ID(b.cfg.AdminID),
		FromChatID: tu.ID(msg.Chat.ID),
		MessageID:  msg.MessageID,
	})
	if err != nil {
		slog.Warn("payment proof forward failed", "tenant_id", tenantID, "error", err)
		return
	}
	b.reply(ctx, b.cfg.AdminID, paymentCaption(tenantID, username))
	b.reply(ctx, msg.Chat.ID, "Received! The admin will verify your payment and activate premium.")
	b.audit.Info(ctx, tenantID, "payment proof submitted", nil)
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		slog.Warn("service bot reply failed", "chat_id", chatID, "error", err)
	}
}
