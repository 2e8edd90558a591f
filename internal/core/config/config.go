package config

import (
	"fmt"
	"strings"
	"time"

	coreerrors "github.com/Fulvio75/fpdb/internal/core/errors"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the top-level application config.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Logging  LoggingConfig  `koanf:"logging"`
	Import   ImportConfig   `koanf:"import"`
	Rebuild  RebuildConfig  `koanf:"rebuild"`
	Lock     LockConfig     `koanf:"lock"`
	Hud      HudConfig      `koanf:"hud"`
	Watch    WatchConfig    `koanf:"watch"`
}

type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

type DatabaseConfig struct {
	Driver       string `koanf:"driver"` // postgres | sqlite
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type LoggingConfig struct {
	Level string `koanf:"level"` // debug | info | warn | error
}

// ImportConfig carries the values the aggregation core consumes.
type ImportConfig struct {
	SessionTimeout    int               `koanf:"session_timeout"` // minutes of idle gap
	FastStoreHudCache bool              `koanf:"fast_store_hud_cache"`
	CacheSessions     bool              `koanf:"cache_sessions"`
	CallFpdbHud       bool              `koanf:"call_fpdb_hud"`
	DayStart          int               `koanf:"day_start"` // hours
	Timezone          string            `koanf:"timezone"`
	FlushWorkers      int               `koanf:"flush_workers"`
	Heroes            map[string]string `koanf:"heroes"` // site name -> screen name
}

type RebuildConfig struct {
	PageSize int `koanf:"page_size"`
}

type LockConfig struct {
	RetryInterval string `koanf:"retry_interval"`
	Wait          bool   `koanf:"wait"`
}

type HudConfig struct {
	StatRange     string `koanf:"stat_range"` // A | T | S
	Days          int    `koanf:"days"`
	HeroStatRange string `koanf:"hero_stat_range"`
	HeroDays      int    `koanf:"hero_days"`
	SeatsStyle    string `koanf:"seats_style"` // A | C | E
	SeatsMin      int    `koanf:"seats_min"`
	SeatsMax      int    `koanf:"seats_max"`
	CacheTTL      string `koanf:"cache_ttl"`
	CacheSize     int    `koanf:"cache_size"`
}

type WatchConfig struct {
	Dir               string `koanf:"dir"`
	Interval          string `koanf:"interval"`
	MaxBatchesPerTick int    `koanf:"max_batches_per_tick"`
	// Settle is how long a file must see no write before it is imported.
	Settle string `koanf:"settle"`
}

// SessionThreshold is the idle gap that separates two sessions.
func (c ImportConfig) SessionThreshold() time.Duration {
	return time.Duration(c.SessionTimeout) * time.Minute
}

// Location resolves the configured time zone used for week/month buckets.
func (c ImportConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Hero returns the configured screen name for a site. Site names compare
// case-insensitively because env overrides arrive lowercased.
func (c ImportConfig) Hero(site string) (string, bool) {
	name, ok := c.Heroes[strings.ToLower(site)]
	return name, ok
}

func (c LockConfig) RetryDuration() time.Duration {
	d, err := time.ParseDuration(c.RetryInterval)
	if err != nil || d <= 0 {
		return 10 * time.Millisecond
	}
	return d
}

func (c HudConfig) TTL() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return 0
	}
	return d
}

func (c WatchConfig) TickInterval() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

func (c WatchConfig) SettleDuration() time.Duration {
	d, err := time.ParseDuration(c.Settle)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

func invalid(field, format string, args ...any) error {
	return &coreerrors.ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return invalid("server.port", "invalid port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return invalid("server.host", "is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return invalid("server.max_body_size_mb", "must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return invalid("server.mode", "invalid mode %q (must be debug or release)", c.Server.Mode)
	}

	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return invalid("database.driver", "unsupported driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return invalid("database.dsn", "is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return invalid("database.max_open_conns", "must be > 0")
	}
	if c.Database.MaxIdleConns <= 0 {
		return invalid("database.max_idle_conns", "must be > 0")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("logging.level", "unknown level %q", c.Logging.Level)
	}

	if c.Import.DayStart < 0 || c.Import.DayStart > 23 {
		return invalid("import.day_start", "must be within 0-23 hours, got %d", c.Import.DayStart)
	}
	if _, err := c.Import.Location(); err != nil {
		return invalid("import.timezone", "unknown time zone %q: %v", c.Import.Timezone, err)
	}
	if c.Import.FlushWorkers <= 0 {
		return invalid("import.flush_workers", "must be > 0")
	}
	if len(c.Import.Heroes) == 0 {
		return invalid("import.heroes", "at least one site hero is required")
	}
	for site, name := range c.Import.Heroes {
		if strings.TrimSpace(name) == "" {
			return invalid("import.heroes."+site, "hero name is empty")
		}
	}

	if c.Rebuild.PageSize <= 0 {
		return invalid("rebuild.page_size", "must be > 0")
	}
	if _, err := time.ParseDuration(c.Lock.RetryInterval); err != nil {
		return invalid("lock.retry_interval", "invalid duration %q: %v", c.Lock.RetryInterval, err)
	}

	for field, r := range map[string]string{"hud.stat_range": c.Hud.StatRange, "hud.hero_stat_range": c.Hud.HeroStatRange} {
		if r != "A" && r != "T" && r != "S" {
			return invalid(field, "unknown stat range %q (must be A, T or S)", r)
		}
	}
	if c.Hud.SeatsStyle != "A" && c.Hud.SeatsStyle != "C" && c.Hud.SeatsStyle != "E" {
		return invalid("hud.seats_style", "unknown seats style %q (must be A, C or E)", c.Hud.SeatsStyle)
	}
	if c.Hud.SeatsMin > c.Hud.SeatsMax {
		return invalid("hud.seats_min", "greater than hud.seats_max")
	}
	if _, err := time.ParseDuration(c.Hud.CacheTTL); err != nil {
		return invalid("hud.cache_ttl", "invalid duration %q: %v", c.Hud.CacheTTL, err)
	}
	if c.Hud.CacheSize <= 0 {
		return invalid("hud.cache_size", "must be > 0")
	}
	if c.Watch.MaxBatchesPerTick <= 0 {
		return invalid("watch.max_batches_per_tick", "must be > 0")
	}
	if d, err := time.ParseDuration(c.Watch.Settle); err != nil || d <= 0 {
		return invalid("watch.settle", "invalid duration %q (must be > 0)", c.Watch.Settle)
	}

	return nil
}

// Load parses config from defaults, file and env, then validates it.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                 8080,
		"server.host":                 "0.0.0.0",
		"server.max_body_size_mb":     8,
		"server.mode":                 "release",
		"database.driver":             "sqlite",
		"database.dsn":                "fpdb.db3",
		"database.max_open_conns":     10,
		"database.max_idle_conns":     10,
		"database.auto_migrate":       true,
		"logging.level":               "info",
		"import.session_timeout":      30,
		"import.fast_store_hud_cache": false,
		"import.cache_sessions":       true,
		"import.call_fpdb_hud":        true,
		"import.day_start":            5,
		"import.timezone":             "UTC",
		"import.flush_workers":        2,
		"rebuild.page_size":           5000,
		"lock.retry_interval":         "10ms",
		"lock.wait":                   true,
		"hud.stat_range":              "A",
		"hud.days":                    90,
		"hud.hero_stat_range":         "S",
		"hud.hero_days":               90,
		"hud.seats_style":             "A",
		"hud.seats_min":               0,
		"hud.seats_max":               10,
		"hud.cache_ttl":               "5s",
		"hud.cache_size":              512,
		"watch.dir":                   "",
		"watch.interval":              "5s",
		"watch.max_batches_per_tick":  100,
		"watch.settle":                "2s",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("FPDB_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "FPDB_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	heroes := make(map[string]string, len(cfg.Import.Heroes))
	for site, name := range cfg.Import.Heroes {
		heroes[strings.ToLower(site)] = name
	}
	cfg.Import.Heroes = heroes

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
