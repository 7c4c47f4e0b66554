package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeConfig writes a config file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// TestLoadMissingFileUsesDefaults verifies a missing file is not an error.
func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Userbot.QuietWindowSeconds != 15 {
		t.Errorf("quiet window = %d, want 15", cfg.Userbot.QuietWindowSeconds)
	}
	if cfg.Scheduler.PollIntervalSeconds != 3 {
		t.Errorf("poll interval = %d, want 3", cfg.Scheduler.PollIntervalSeconds)
	}
	if cfg.Database.SQLitePath != "adpilot.db" {
		t.Errorf("sqlite path = %q, want adpilot.db", cfg.Database.SQLitePath)
	}
}

// TestLoadFileOverridesDefaults verifies file values replace defaults while
// untouched fields keep theirs. The parser accepts JSON5 (comments and
// trailing commas).
func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		// local overrides
		"http": {"port": 9090},
		"userbot": {"quiet_window_seconds": 30,},
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.HTTP.Port)
	}
	if cfg.Userbot.QuietWindowSeconds != 30 {
		t.Errorf("quiet window = %d, want 30", cfg.Userbot.QuietWindowSeconds)
	}
	if cfg.HTTP.Host != "0.0.0.0" {
		t.Errorf("host = %q, want default", cfg.HTTP.Host)
	}
}

// TestLoadEnvOverridesFile verifies env vars win over file values and carry
// the secrets that never live in a file.
func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `{"http": {"port": 9090}}`)
	t.Setenv("ADPILOT_BOT_TOKEN", "123:env-token")
	t.Setenv("ADPILOT_HTTP_PORT", "7070")
	t.Setenv("ADPILOT_ADMIN_ID", "424242")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Bot.Token != "123:env-token" {
		t.Errorf("token = %q, want env value", cfg.Bot.Token)
	}
	if cfg.HTTP.Port != 7070 {
		t.Errorf("port = %d, want 7070 from env", cfg.HTTP.Port)
	}
	if cfg.Bot.AdminID != 424242 {
		t.Errorf("admin id = %d, want 424242", cfg.Bot.AdminID)
	}
}

// TestLoadMalformedFile verifies a broken file fails loudly instead of
// silently running on defaults.
func TestLoadMalformedFile(t *testing.T) {
	path := writeConfig(t, `{"http": `)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for malformed config")
	}
}

// TestDurationHelpers verifies the second-count fields convert correctly.
func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	if got := cfg.Userbot.QuietWindow(); got != 15*time.Second {
		t.Errorf("quiet window = %v, want 15s", got)
	}
	if got := cfg.Scheduler.PollInterval(); got != 3*time.Second {
		t.Errorf("poll interval = %v, want 3s", got)
	}
	if got := cfg.Scheduler.MinDelay(); got != 5*time.Second {
		t.Errorf("min delay = %v, want 5s", got)
	}
}
