package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/adpilot/adpilot/internal/config"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations and exit",
		Run: func(cmd *cobra.Command, args []string) {
			setupLogging()
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				slog.Error("config load failed", "error", err)
				os.Exit(1)
			}
			stores, err := openStores(cfg)
			if err != nil {
				slog.Error("migration failed", "error", err)
				os.Exit(1)
			}
			stores.Close()
			slog.Info("schema up to date")
		},
	}
}
