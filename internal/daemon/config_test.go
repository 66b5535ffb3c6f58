package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 7351 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 7351)
	}
	if !cfg.API.Metrics {
		t.Error("API.Metrics should default to true")
	}
	if cfg.Storage.SweepInterval != "15s" {
		t.Errorf("Storage.SweepInterval = %q, want %q", cfg.Storage.SweepInterval, "15s")
	}
	if cfg.Society.RosterFile == "" {
		t.Error("Society.RosterFile should have a default")
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("STRATA_HOME", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Port != DefaultConfig().API.Port {
		t.Errorf("missing config file should yield defaults, got port %d", cfg.API.Port)
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("STRATA_HOME", home)

	cfg := DefaultConfig()
	cfg.Society.ID = "soc-42"
	cfg.API.Port = 9999
	cfg.Escalation.WebhookURL = "http://gateway.local/notify"

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, "config.toml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Society.ID != "soc-42" || loaded.API.Port != 9999 {
		t.Fatalf("round trip lost values: %+v", loaded)
	}
	if loaded.Escalation.WebhookURL != cfg.Escalation.WebhookURL {
		t.Fatalf("webhook url lost: %q", loaded.Escalation.WebhookURL)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"30s", 30 * time.Second},
		{"5m", 5 * time.Minute},
		{"", 10 * time.Second},        // empty → fallback
		{"not-a-time", 10 * time.Second}, // invalid → fallback
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseDuration(tt.input, 10*time.Second); got != tt.want {
				t.Errorf("parseDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
