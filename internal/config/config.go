// Package config loads and validates the daemon configuration from YAML,
// with environment overrides for secrets.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Nightscout NightscoutConfig `yaml:"nightscout"`
	Sync       SyncConfig       `yaml:"sync"`
	Store      StoreConfig      `yaml:"store"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
	Dosing     DosingConfig     `yaml:"dosing"`
}

type NightscoutConfig struct {
	URL       string `yaml:"url"`
	APISecret string `yaml:"api_secret"`
}

type SyncConfig struct {
	Account         string `yaml:"account"`
	IntervalSeconds int    `yaml:"interval_seconds"`
	LookbackHours   int    `yaml:"lookback_hours"`
	MaxEntries      int    `yaml:"max_entries"`
}

// Interval returns the pause between sync runs.
func (s SyncConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// Lookback returns how far back each run's fetch window reaches.
func (s SyncConfig) Lookback() time.Duration {
	return time.Duration(s.LookbackHours) * time.Hour
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type DosingConfig struct {
	LargeDoseThreshold float64 `yaml:"large_dose_threshold"`
}

// Load reads the YAML config at path, applies .env / environment overrides
// for the upstream credentials, fills defaults and validates. The secret in
// config is the raw API secret; its hash is derived at request time.
func Load(path string) (*Config, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if v := os.Getenv("NIGHTSCOUT_URL"); v != "" {
		config.Nightscout.URL = strings.TrimSpace(v)
	}
	if v := os.Getenv("NIGHTSCOUT_API_SECRET"); v != "" {
		config.Nightscout.APISecret = strings.TrimSpace(v)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Sync.Account == "" {
		cfg.Sync.Account = "primary"
	}
	if cfg.Sync.IntervalSeconds <= 0 {
		cfg.Sync.IntervalSeconds = 300
	}
	if cfg.Sync.LookbackHours <= 0 {
		cfg.Sync.LookbackHours = 24
	}
	if cfg.Sync.MaxEntries <= 0 {
		cfg.Sync.MaxEntries = 288
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "readings.db"
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = ":9090"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Dosing.LargeDoseThreshold <= 0 {
		cfg.Dosing.LargeDoseThreshold = 10.0
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Nightscout.URL == "" {
		return fmt.Errorf("nightscout.url is required")
	}

	if cfg.Sync.Lookback() < cfg.Sync.Interval() {
		return fmt.Errorf("sync.lookback_hours must cover at least sync.interval_seconds, got %s < %s", cfg.Sync.Lookback(), cfg.Sync.Interval())
	}

	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be 'text' or 'json', got '%s'", cfg.Logging.Format)
	}

	return nil
}
