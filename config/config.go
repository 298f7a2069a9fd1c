// Package config loads application configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"cryptotrackerv1/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Provider struct {
		BaseURL   string `yaml:"base_url"`
		StreamURL string `yaml:"stream_url"`
		UseStream bool   `yaml:"use_stream"`
	} `yaml:"provider"`

	Cache struct {
		Backend    string `yaml:"backend"` // memory | sqlite | redis
		SQLitePath string `yaml:"sqlite_path"`
		RedisAddr  string `yaml:"redis_addr"`
		RedisPass  string `yaml:"redis_pass"`
		RedisDB    int    `yaml:"redis_db"`
		MaxEntries int    `yaml:"max_entries"` // memory backend cap
	} `yaml:"cache"`

	Refresh struct {
		Watchlist  []string `yaml:"watchlist"`  // internal tickers, e.g. BTC, ETH
		Timeframes []string `yaml:"timeframes"` // e.g. 1m, 1h, 1d
		LiveTTL    string   `yaml:"live_ttl"`
		SlowTTL    string   `yaml:"slow_ttl"`
		FetchLimit int      `yaml:"fetch_limit"`
	} `yaml:"refresh"`

	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"` // cron with seconds field
		SweepCron   string `yaml:"sweep_cron"`
	} `yaml:"schedule"`

	HTTPAddr    string `yaml:"http_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Load reads config from a YAML file (missing file is fine), applies env
// overrides, then fills defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("PROVIDER_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("PROVIDER_STREAM_URL"); v != "" {
		cfg.Provider.StreamURL = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Cache.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPass = v
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		cfg.Refresh.Watchlist = splitList(v)
	}
	if v := os.Getenv("TIMEFRAMES"); v != "" {
		cfg.Refresh.Timeframes = splitList(v)
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.SQLitePath == "" {
		c.Cache.SQLitePath = "data/cache.db"
	}
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = "localhost:6379"
	}
	if len(c.Refresh.Watchlist) == 0 {
		c.Refresh.Watchlist = []string{"BTC", "ETH", "SOL"}
	}
	if len(c.Refresh.Timeframes) == 0 {
		c.Refresh.Timeframes = []string{"1h", "1d"}
	}
	if c.Refresh.LiveTTL == "" {
		c.Refresh.LiveTTL = "90s"
	}
	if c.Refresh.SlowTTL == "" {
		c.Refresh.SlowTTL = "5m"
	}
	if c.Refresh.FetchLimit <= 0 {
		c.Refresh.FetchLimit = 100
	}
	if c.Schedule.RefreshCron == "" {
		c.Schedule.RefreshCron = "0 */1 * * * *" // every minute
	}
	if c.Schedule.SweepCron == "" {
		c.Schedule.SweepCron = "30 */5 * * * *" // every 5 minutes
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9090"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Timeframes parses and validates the configured timeframes, skipping
// unsupported values.
func (c *Config) Timeframes() []model.Timeframe {
	out := make([]model.Timeframe, 0, len(c.Refresh.Timeframes))
	for _, s := range c.Refresh.Timeframes {
		if tf, ok := model.ParseTimeframe(strings.TrimSpace(s)); ok {
			out = append(out, tf)
		}
	}
	return out
}

// LiveTTL returns the parsed live-bundle TTL.
func (c *Config) LiveTTL() time.Duration { return parseDuration(c.Refresh.LiveTTL, 90*time.Second) }

// SlowTTL returns the parsed slow-bundle TTL.
func (c *Config) SlowTTL() time.Duration { return parseDuration(c.Refresh.SlowTTL, 5*time.Minute) }

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
