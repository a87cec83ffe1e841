// Package main provides the Emberwatch server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/emberwatch/internal/alerting"
)

// Config represents the server configuration.
type Config struct {
	Server     ServerConfig         `yaml:"server"`
	ClickHouse ClickHouseConfig     `yaml:"clickhouse"`
	SQLite     SQLiteConfig         `yaml:"sqlite"`
	Redis      RedisConfig          `yaml:"redis"`
	Cache      CacheConfig          `yaml:"cache"`
	Ingest     IngestConfig         `yaml:"ingest"`
	Scheduler  SchedulerConfig      `yaml:"scheduler"`
	Rules      []alerting.RuleConfig `yaml:"rules"`
	Verbose    bool                 `yaml:"-"` // set via CLI flag
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address         string `yaml:"address"`            // HTTP listen address (default: :8080)
	IngestRatePerIP int    `yaml:"ingest_rate_per_ip"` // ingest requests per minute per IP
	MetricsEnabled  bool   `yaml:"metrics_enabled"`    // expose /metrics
}

// ClickHouseConfig contains log store settings.
type ClickHouseConfig struct {
	Addresses     []string      `yaml:"addresses"`
	Database      string        `yaml:"database"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	MaxOpenConns  int           `yaml:"max_open_conns"`
	MaxIdleConns  int           `yaml:"max_idle_conns"`
	DialTimeout   time.Duration `yaml:"dial_timeout"`
	Compression   bool          `yaml:"compression"`
	RetentionDays int           `yaml:"retention_days"`
}

// SQLiteConfig contains alert store settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CacheConfig contains recent-log cache settings.
type CacheConfig struct {
	Variant string        `yaml:"variant"`  // replace or pushtrim
	MaxSize int           `yaml:"max_size"` // entries kept (default: 10)
	TTL     time.Duration `yaml:"ttl"`      // expiry (default: 5m)
}

// IngestConfig contains ingestion pipeline settings.
type IngestConfig struct {
	Mode      string `yaml:"mode"`      // direct or streaming
	QueueKey  string `yaml:"queue_key"` // Redis list for streaming mode
	Consumers int    `yaml:"consumers"` // consumer goroutines in streaming mode
}

// SchedulerConfig contains alert evaluation loop settings. The loop is
// a core component; Disabled exists for debugging and one-off tooling,
// so the zero-valued config keeps it running.
type SchedulerConfig struct {
	Disabled     bool          `yaml:"disabled"`
	Period       time.Duration `yaml:"period"`
	InitialDelay time.Duration `yaml:"initial_delay"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.IngestRatePerIP == 0 {
		c.Server.IngestRatePerIP = 600
	}
	if len(c.ClickHouse.Addresses) == 0 {
		c.ClickHouse.Addresses = []string{"localhost:9000"}
	}
	if c.ClickHouse.Database == "" {
		c.ClickHouse.Database = "emberwatch"
	}
	if c.ClickHouse.RetentionDays == 0 {
		c.ClickHouse.RetentionDays = 30
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = "data/emberwatch.db"
	}
	if c.Redis.Address == "" {
		c.Redis.Address = "localhost:6379"
	}
	if c.Cache.MaxSize == 0 {
		c.Cache.MaxSize = 10
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if c.Ingest.Mode == "" {
		c.Ingest.Mode = "direct"
	}
	if c.Ingest.Consumers == 0 {
		c.Ingest.Consumers = 1
	}
	if c.Scheduler.Period == 0 {
		c.Scheduler.Period = time.Minute
	}
	if c.Scheduler.InitialDelay == 0 {
		c.Scheduler.InitialDelay = 10 * time.Second
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if len(c.ClickHouse.Addresses) == 0 {
		return fmt.Errorf("clickhouse.addresses is required")
	}
	if c.SQLite.Path == "" {
		return fmt.Errorf("sqlite.path is required")
	}
	if c.Ingest.Mode != "direct" && c.Ingest.Mode != "streaming" {
		return fmt.Errorf("ingest.mode must be direct or streaming")
	}
	if c.Ingest.Consumers < 1 {
		return fmt.Errorf("ingest.consumers must be at least 1")
	}
	for i := range c.Rules {
		if err := c.Rules[i].Validate(); err != nil {
			return fmt.Errorf("rules[%d]: %w", i, err)
		}
	}
	return nil
}
