package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/adpilot/adpilot/internal/audit"
	"github.com/adpilot/adpilot/internal/bot"
	"github.com/adpilot/adpilot/internal/bus"
	"github.com/adpilot/adpilot/internal/config"
	httpapi "github.com/adpilot/adpilot/internal/http"
	"github.com/adpilot/adpilot/internal/provider/telegram"
	"github.com/adpilot/adpilot/internal/scheduler"
	"github.com/adpilot/adpilot/internal/store"
	"github.com/adpilot/adpilot/internal/store/pg"
	"github.com/adpilot/adpilot/internal/store/sqlite"
	"github.com/adpilot/adpilot/internal/userbot"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the automation service",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
}

func runServe() {
	setupLogging()

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	if cfg.Bot.Token == "" {
		slog.Error("no service bot token configured, set ADPILOT_BOT_TOKEN")
		os.Exit(1)
	}

	stores, err := openStores(cfg)
	if err != nil {
		slog.Error("store open failed", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	broadcaster := bus.NewBroadcaster()
	auditLog := audit.New(stores.Logs, broadcaster)

	userbots := userbot.NewService(telegram.NewConnector(), stores, auditLog, userbot.Options{
		QuietWindow:     cfg.Userbot.QuietWindow(),
		IgnoredAccounts: cfg.Userbot.IgnoredAccounts,
		DefaultAsset:    cfg.Userbot.DefaultImage,
		SendsPerMinute:  cfg.Userbot.SendsPerMinute,
	})

	sched := scheduler.New(stores.Jobs, userbots.DispatchScheduled, scheduler.Options{
		PollInterval: cfg.Scheduler.PollInterval(),
		BatchSize:    cfg.Scheduler.BatchSize,
		MinDelay:     cfg.Scheduler.MinDelay(),
	})

	serviceBot, err := bot.New(cfg.Bot, stores, userbots, sched, auditLog)
	if err != nil {
		slog.Error("service bot create failed", "error", err)
		os.Exit(1)
	}

	apiServer := httpapi.NewServer(stores.Logs, broadcaster)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := serviceBot.Start(ctx); err != nil {
		slog.Error("service bot start failed", "error", err)
		os.Exit(1)
	}
	if err := apiServer.Start(cfg.HTTP.Host, cfg.HTTP.Port); err != nil {
		slog.Error("http start failed", "error", err)
		os.Exit(1)
	}
	go sched.Run(ctx)

	resurrectSessions(ctx, stores, userbots)

	auditLog.Info(ctx, 0, "service started", nil)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	slog.Info("shutting down")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := serviceBot.Stop(shutdownCtx); err != nil {
		slog.Warn("service bot stop failed", "error", err)
	}
	userbots.Shutdown(shutdownCtx)
	if err := apiServer.Stop(shutdownCtx); err != nil {
		slog.Warn("http stop failed", "error", err)
	}
}

// resurrectSessions re-establishes userbot connections for every tenant
// with a stored credential, so monitoring resumes after a restart.
func resurrectSessions(ctx context.Context, stores *store.Stores, userbots *userbot.Service) {
	ids, err := stores.Credentials.TenantIDs(ctx)
	if err != nil {
		slog.Error("credential listing failed", "error", err)
		return
	}
	for _, id := range ids {
		if _, err := userbots.Ensure(ctx, id); err != nil {
			slog.Info("session resurrection failed", "tenant_id", id, "error", err)
		}
	}
	slog.Info("session resurrection complete", "tenants", len(ids))
}

func openStores(cfg *config.Config) (*store.Stores, error) {
	if cfg.Database.PostgresDSN != "" {
		slog.Info("using postgres store")
		return pg.NewStores(cfg.Database.PostgresDSN)
	}
	slog.Info("using sqlite store", "path", cfg.Database.SQLitePath)
	return sqlite.NewStores(cfg.Database.SQLitePath)
}
