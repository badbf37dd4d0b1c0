// Package config loads and persists the tool configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	RequestTimeout  = 10 * time.Minute
	UserAgent       = "daytrip/1.0"
	DefaultMaxTries = 3

	// Client id of a registered public application; users can override it
	// with their own via the config file.
	DefaultClientID = "65b708073fc0480ea92a077233ca87bd"
)

// Config is the persisted tool configuration. CLI flags override it.
type Config struct {
	DownloadLocation string `json:"DownloadLocation"`
	Format           string `json:"Format"`
	NameFormat       string `json:"NameFormat"`
	CleanupRegex     string `json:"CleanupRegex,omitempty"`
	Parallelism      int    `json:"Parallelism"`
	MaxTries         int    `json:"MaxTries"`
	ClientID         string `json:"ClientID"`
	ClientSecret     string `json:"ClientSecret,omitempty"`
}

// DefaultConfig returns the configuration used when no file exists yet.
func DefaultConfig() *Config {
	return &Config{
		DownloadLocation: ".",
		Format:           "opus",
		NameFormat:       "%a - %t",
		Parallelism:      4,
		MaxTries:         DefaultMaxTries,
		ClientID:         DefaultClientID,
	}
}

// ApplyDefaults fills empty fields with their default values.
func (cfg *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if cfg.DownloadLocation == "" {
		cfg.DownloadLocation = defaults.DownloadLocation
	}
	if cfg.Format == "" {
		cfg.Format = defaults.Format
	}
	if cfg.NameFormat == "" {
		cfg.NameFormat = defaults.NameFormat
	}
	if cfg.Parallelism < 1 {
		cfg.Parallelism = defaults.Parallelism
	}
	if cfg.MaxTries < 1 {
		cfg.MaxTries = defaults.MaxTries
	}
	if cfg.ClientID == "" {
		cfg.ClientID = defaults.ClientID
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(dir, "daytrip", "config.json"), nil
}

// Load reads configuration from a JSON file and applies defaults. A missing
// file yields the default configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Save writes configuration to a JSON file, creating its directory if needed.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
