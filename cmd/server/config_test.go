package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Address != ":8080" {
		t.Errorf("address = %q, want :8080", cfg.Server.Address)
	}
	if cfg.ClickHouse.Database != "emberwatch" {
		t.Errorf("database = %q, want emberwatch", cfg.ClickHouse.Database)
	}
	if cfg.Cache.MaxSize != 10 || cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("cache = %d/%v, want 10/5m", cfg.Cache.MaxSize, cfg.Cache.TTL)
	}
	if cfg.Ingest.Mode != "direct" {
		t.Errorf("ingest mode = %q, want direct", cfg.Ingest.Mode)
	}
	if cfg.Scheduler.Period != time.Minute || cfg.Scheduler.InitialDelay != 10*time.Second {
		t.Errorf("scheduler = %v/%v, want 1m/10s", cfg.Scheduler.Period, cfg.Scheduler.InitialDelay)
	}
	if cfg.Scheduler.Disabled {
		t.Error("scheduler disabled by default, want it running")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ":9090"
  metrics_enabled: true
clickhouse:
  addresses: ["ch1:9000", "ch2:9000"]
  database: logs
redis:
  address: "redis:6379"
ingest:
  mode: streaming
  consumers: 3
scheduler:
  period: 30s
rules:
  - id: error.rate.high
    metric: error_count
    window_minutes: 5
    trigger_threshold: 5
    recovery_threshold: 3
    severity: HIGH
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.Server.Address != ":9090" || !cfg.Server.MetricsEnabled {
		t.Errorf("server = %+v, want :9090 with metrics", cfg.Server)
	}
	if len(cfg.ClickHouse.Addresses) != 2 || cfg.ClickHouse.Database != "logs" {
		t.Errorf("clickhouse = %+v", cfg.ClickHouse)
	}
	if cfg.Ingest.Mode != "streaming" || cfg.Ingest.Consumers != 3 {
		t.Errorf("ingest = %+v, want streaming with 3 consumers", cfg.Ingest)
	}
	if cfg.Scheduler.Period != 30*time.Second {
		t.Errorf("period = %v, want 30s", cfg.Scheduler.Period)
	}
	if cfg.Scheduler.Disabled {
		t.Error("scheduler disabled without scheduler.disabled, want it running")
	}
	if len(cfg.Rules) != 1 || cfg.Rules[0].RecoveryThreshold != 3 {
		t.Errorf("rules = %+v", cfg.Rules)
	}

	// Unset sections still pick up defaults.
	if cfg.SQLite.Path != "data/emberwatch.db" {
		t.Errorf("sqlite path = %q, want default", cfg.SQLite.Path)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{
			name:   "bad ingest mode",
			yaml:   "ingest:\n  mode: firehose\n",
			errMsg: "ingest.mode",
		},
		{
			name:   "bad rule",
			yaml:   "rules:\n  - id: broken\n",
			errMsg: "rules[0]",
		},
		{
			name:   "malformed yaml",
			yaml:   "server: [not a map\n",
			errMsg: "parse config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error = %q, want it to contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestLoadConfigSchedulerOptOut(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "scheduler:\n  disabled: true\n"))
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if !cfg.Scheduler.Disabled {
		t.Error("scheduler.disabled not honored")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
