package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
nightscout:
  url: https://example.herokuapp.com
  api_secret: my-raw-secret
sync:
  account: alice
  interval_seconds: 60
  lookback_hours: 6
  max_entries: 100
store:
  path: /tmp/readings.db
metrics:
  enabled: true
  listen: ":9091"
logging:
  level: debug
  format: json
  output: stdout
dosing:
  large_dose_threshold: 12.5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Nightscout.URL != "https://example.herokuapp.com" {
		t.Errorf("URL = %q", cfg.Nightscout.URL)
	}
	if cfg.Sync.Interval() != time.Minute {
		t.Errorf("Interval() = %v, want 1m", cfg.Sync.Interval())
	}
	if cfg.Sync.Lookback() != 6*time.Hour {
		t.Errorf("Lookback() = %v, want 6h", cfg.Sync.Lookback())
	}
	if cfg.Dosing.LargeDoseThreshold != 12.5 {
		t.Errorf("LargeDoseThreshold = %v, want 12.5", cfg.Dosing.LargeDoseThreshold)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
nightscout:
  url: https://example.herokuapp.com
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Sync.Account != "primary" {
		t.Errorf("Account = %q, want primary", cfg.Sync.Account)
	}
	if cfg.Sync.Interval() != 5*time.Minute {
		t.Errorf("Interval() = %v, want 5m", cfg.Sync.Interval())
	}
	if cfg.Sync.Lookback() != 24*time.Hour {
		t.Errorf("Lookback() = %v, want 24h", cfg.Sync.Lookback())
	}
	if cfg.Sync.MaxEntries != 288 {
		t.Errorf("MaxEntries = %d, want 288", cfg.Sync.MaxEntries)
	}
	if cfg.Store.Path != "readings.db" {
		t.Errorf("Store.Path = %q, want readings.db", cfg.Store.Path)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want info/text defaults", cfg.Logging)
	}
	if cfg.Dosing.LargeDoseThreshold != 10.0 {
		t.Errorf("LargeDoseThreshold = %v, want 10.0", cfg.Dosing.LargeDoseThreshold)
	}
}

func TestLoad_EnvOverridesSecret(t *testing.T) {
	path := writeConfig(t, `
nightscout:
  url: https://example.herokuapp.com
  api_secret: from-file
`)
	t.Setenv("NIGHTSCOUT_API_SECRET", "  from-env  ")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Nightscout.APISecret != "from-env" {
		t.Errorf("APISecret = %q, want env override trimmed", cfg.Nightscout.APISecret)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing url", `
sync:
  interval_seconds: 60
`},
		{"lookback shorter than interval", `
nightscout:
  url: https://example.herokuapp.com
sync:
  interval_seconds: 7200
  lookback_hours: 1
`},
		{"bad logging format", `
nightscout:
  url: https://example.herokuapp.com
logging:
  format: xml
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("Load() succeeded, want validation error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() succeeded for missing file, want error")
	}
}
