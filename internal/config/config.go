// Package config holds the root service configuration.
package config

import "time"

// Config is the root configuration for the adpilot service.
type Config struct {
	Bot       BotConfig       `json:"bot"`
	Database  DatabaseConfig  `json:"database,omitempty"`
	HTTP      HTTPConfig      `json:"http"`
	Userbot   UserbotConfig   `json:"userbot"`
	Scheduler SchedulerConfig `json:"scheduler"`
}

// BotConfig configures the operator-facing service bot.
type BotConfig struct {
	Token     string `json:"-"` // from env ADPILOT_BOT_TOKEN only
	AdminID   int64  `json:"admin_id,omitempty"`
	PriceWeek int    `json:"price_week,omitempty"` // premium price shown in /pricing
}

// DatabaseConfig selects the storage backend. A non-empty PostgresDSN wins;
// otherwise the SQLite file is used.
// PostgresDSN is never read from the config file, only from the
// ADPILOT_POSTGRES_DSN environment variable.
type DatabaseConfig struct {
	PostgresDSN string `json:"-"`
	SQLitePath  string `json:"sqlite_path,omitempty"`
}

// HTTPConfig configures the dashboard API listener.
type HTTPConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// UserbotConfig tunes tenant connections and the activity monitor.
type UserbotConfig struct {
	QuietWindowSeconds int      `json:"quiet_window_seconds,omitempty"`
	IgnoredAccounts    []string `json:"ignored_accounts,omitempty"`
	DefaultImage       string   `json:"default_image,omitempty"`
	SendsPerMinute     int      `json:"sends_per_minute,omitempty"`
}

// QuietWindow returns the debounce window as a duration.
func (c UserbotConfig) QuietWindow() time.Duration {
	return time.Duration(c.QuietWindowSeconds) * time.Second
}

// SchedulerConfig tunes the job poll loop.
type SchedulerConfig struct {
	PollIntervalSeconds int `json:"poll_interval_seconds,omitempty"`
	BatchSize           int `json:"batch_size,omitempty"`
	MinDelaySeconds     int `json:"min_delay_seconds,omitempty"`
}

// PollInterval returns the poll interval as a duration.
func (c SchedulerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// MinDelay returns the scheduling delay floor as a duration.
func (c SchedulerConfig) MinDelay() time.Duration {
	return time.Duration(c.MinDelaySeconds) * time.Second
}
