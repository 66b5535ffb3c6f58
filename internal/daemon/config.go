// Package daemon manages the strata daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all daemon configuration.
type Config struct {
	Society    SocietyConfig    `toml:"society"`
	API        APIConfig        `toml:"api"`
	Storage    StorageConfig    `toml:"storage"`
	Escalation EscalationConfig `toml:"escalation"`
	Logging    LoggingConfig    `toml:"logging"`
}

// SocietyConfig identifies the society this daemon governs and where its
// residency roster lives.
type SocietyConfig struct {
	ID         string `toml:"id"`
	RosterFile string `toml:"roster_file"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// StorageConfig controls persistence and background flushing.
type StorageConfig struct {
	Dir                string `toml:"dir"`
	SweepInterval      string `toml:"sweep_interval"`       // campaign auto activate/close
	AuditFlushInterval string `toml:"audit_flush_interval"` // buffered audit retry
}

// EscalationConfig controls notification delivery. An empty webhook URL
// means dispatches go to the process log.
type EscalationConfig struct {
	WebhookURL     string `toml:"webhook_url"`
	WebhookTimeout string `toml:"webhook_timeout"`
	TokenSecret    string `toml:"token_secret"` // HMAC secret for anonymous voter tokens
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	home := strataHome()
	return Config{
		Society: SocietyConfig{
			RosterFile: filepath.Join(home, "roster.json"),
		},
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    7351,
			Metrics: true,
		},
		Storage: StorageConfig{
			Dir:                home,
			SweepInterval:      "15s",
			AuditFlushInterval: "30s",
		},
		Escalation: EscalationConfig{
			WebhookTimeout: "10s",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(home, "strata.log"),
		},
	}
}

// LoadConfig reads config from ~/.strata/config.toml, falling back to
// defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(strataHome(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet; use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the config to ~/.strata/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(strataHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// strataHome returns the strata data directory.
func strataHome() string {
	if env := os.Getenv("STRATA_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".strata")
}

// StrataHome is exported for use by other packages.
func StrataHome() string {
	return strataHome()
}
