package config

import (
	"time"

	"github.com/botguard/botguard/internal/core/ratelimit"
	"github.com/botguard/botguard/internal/core/retry"
)

// Config represents the complete application configuration, resolved once
// at startup. Precedence: explicit flags, then environment variables
// (BOTGUARD_ prefix), then config file, then defaults.
type Config struct {
	Logging LoggingConfig    `mapstructure:"logging"`
	State   StateConfig      `mapstructure:"state"`
	Limits  LimitsConfig     `mapstructure:"limits"`
	Bypass  ratelimit.Bypass `mapstructure:"bypass"`
	Retry   RetryConfig      `mapstructure:"retry"`
	Metrics MetricsConfig    `mapstructure:"metrics"`
	Archive ArchiveConfig    `mapstructure:"archive"`
	Server  ServerConfig     `mapstructure:"server"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level controls the minimum log level: trace, debug, info, warn, error.
	Level string `mapstructure:"level"`
}

// StateConfig locates the persisted bookkeeping files and bounds their
// retention.
type StateConfig struct {
	IdempotencyPath       string `mapstructure:"idempotency_path"`
	SeenPath              string `mapstructure:"seen_path"`
	IdempotencyMaxEntries int    `mapstructure:"idempotency_max_entries"`
	IdempotencyMaxAgeDays int    `mapstructure:"idempotency_max_age_days"`
	SeenMaxEntries        int    `mapstructure:"seen_max_entries"`
}

// LimitsConfig locates the per-action rate limits file.
type LimitsConfig struct {
	Path string `mapstructure:"path"`
}

// RetryConfig overrides the retry executor defaults. Zero fields fall
// back to the hardcoded package defaults.
type RetryConfig struct {
	Attempts      int           `mapstructure:"attempts"`
	BaseDelay     time.Duration `mapstructure:"base_delay"`
	MaxDelay      time.Duration `mapstructure:"max_delay"`
	Jitter        time.Duration `mapstructure:"jitter"`
	RetryStatuses []int         `mapstructure:"retry_statuses"`
}

// Options converts the configured retry overrides into executor options.
// Zero fields keep the hardcoded executor defaults.
func (c RetryConfig) Options() retry.Options {
	return retry.Options{
		Attempts:  c.Attempts,
		BaseDelay: c.BaseDelay,
		MaxDelay:  c.MaxDelay,
		Jitter:    c.Jitter,
	}
}

// MetricsConfig configures the metrics collector and its snapshot log.
type MetricsConfig struct {
	Window       time.Duration `mapstructure:"window"`
	SnapshotPath string        `mapstructure:"snapshot_path"`
}

// ArchiveConfig contains the libsql archive database configuration.
type ArchiveConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// ServerConfig contains the HTTP observability surface configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}
