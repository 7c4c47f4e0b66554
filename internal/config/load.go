package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Bot: BotConfig{
			PriceWeek: 100,
		},
		Database: DatabaseConfig{
			SQLitePath: "adpilot.db",
		},
		HTTP: HTTPConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Userbot: UserbotConfig{
			QuietWindowSeconds: 15,
			IgnoredAccounts:    []string{"MissRose_bot", "GroupHelpBot"},
			DefaultImage:       "assets/default.jpg",
			SendsPerMinute:     20,
		},
		Scheduler: SchedulerConfig{
			PollIntervalSeconds: 3,
			BatchSize:           30,
			MinDelaySeconds:     5,
		},
	}
}

// Load reads config from a JSON file, then overlays env vars. A missing
// file is not an error: env-only configuration is supported.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envInt64 := func(key string, dst *int64) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				*dst = n
			}
		}
	}

	envStr("ADPILOT_BOT_TOKEN", &c.Bot.Token)
	envInt64("ADPILOT_ADMIN_ID", &c.Bot.AdminID)
	envStr("ADPILOT_POSTGRES_DSN", &c.Database.PostgresDSN)
	envStr("ADPILOT_SQLITE_PATH", &c.Database.SQLitePath)
	envStr("ADPILOT_HTTP_HOST", &c.HTTP.Host)
	if v := os.Getenv("ADPILOT_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.HTTP.Port = n
		}
	}
}
