package config

import (
	"fmt"
	"time"

	"github.com/disco/terminald/pkg/types"
)

// Config represents the complete configuration for terminald
type Config struct {
	Logging LoggingConfig `json:"logging" yaml:"logging"`
	Session SessionConfig `json:"session" yaml:"session"`
	Redis   RedisConfig   `json:"redis" yaml:"redis"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" envconfig:"LOG_LEVEL"`    // debug, info, warn, error
	Format string `json:"format" yaml:"format" envconfig:"LOG_FORMAT"` // json, text
	Output string `json:"output" yaml:"output" envconfig:"LOG_OUTPUT"` // stdout, stderr, file path
}

// SessionConfig contains terminal session management configuration
type SessionConfig struct {
	// MaxHistoryEntries bounds a session's command history; oldest entries
	// are evicted first once the cap is reached.
	MaxHistoryEntries int `json:"max_history_entries" yaml:"max_history_entries" envconfig:"SESSION_MAX_HISTORY_ENTRIES"`

	// InactivityTimeout is how long a session may go without activity
	// before the expiry sweep terminates it.
	InactivityTimeout time.Duration `json:"inactivity_timeout" yaml:"inactivity_timeout" envconfig:"SESSION_INACTIVITY_TIMEOUT"`

	// SweepInterval is the period of the expiry sweep. Zero or negative
	// disables the sweep entirely (used by tests).
	SweepInterval time.Duration `json:"sweep_interval" yaml:"sweep_interval" envconfig:"SESSION_SWEEP_INTERVAL"`

	// SessionTTL is the time-to-live of a persisted session record.
	SessionTTL time.Duration `json:"session_ttl" yaml:"session_ttl" envconfig:"SESSION_TTL"`

	// RecordingTTL is the time-to-live of a persisted finalized recording.
	RecordingTTL time.Duration `json:"recording_ttl" yaml:"recording_ttl" envconfig:"RECORDING_TTL"`
}

// RedisConfig contains persistence adapter configuration. When Enabled is
// false the manager runs against an in-process store and nothing survives a
// restart.
type RedisConfig struct {
	Enabled     bool          `json:"enabled" yaml:"enabled" envconfig:"REDIS_ENABLED"`
	Addr        string        `json:"addr" yaml:"addr" envconfig:"REDIS_ADDR"`
	Password    string        `json:"password,omitempty" yaml:"password,omitempty" envconfig:"REDIS_PASSWORD"`
	DB          int           `json:"db" yaml:"db" envconfig:"REDIS_DB"`
	DialTimeout time.Duration `json:"dial_timeout" yaml:"dial_timeout" envconfig:"REDIS_DIAL_TIMEOUT"`
}

// Default configuration values
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultLogOutput = "stdout"

	DefaultMaxHistoryEntries = 1000
	DefaultInactivityTimeout = 60 * time.Minute
	DefaultSweepInterval     = 10 * time.Minute
	DefaultSessionTTL        = time.Hour
	DefaultRecordingTTL      = 24 * time.Hour

	DefaultRedisAddr        = "localhost:6379"
	DefaultRedisDialTimeout = 5 * time.Second
)

// DefaultLoggingConfig returns the default logging configuration
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  DefaultLogLevel,
		Format: DefaultLogFormat,
		Output: DefaultLogOutput,
	}
}

// DefaultSessionConfig returns the default session configuration
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxHistoryEntries: DefaultMaxHistoryEntries,
		InactivityTimeout: DefaultInactivityTimeout,
		SweepInterval:     DefaultSweepInterval,
		SessionTTL:        DefaultSessionTTL,
		RecordingTTL:      DefaultRecordingTTL,
	}
}

// DefaultRedisConfig returns the default redis configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:     false,
		Addr:        DefaultRedisAddr,
		DB:          0,
		DialTimeout: DefaultRedisDialTimeout,
	}
}

// DefaultConfig returns the complete default configuration
func DefaultConfig() *Config {
	return &Config{
		Logging: DefaultLoggingConfig(),
		Session: DefaultSessionConfig(),
		Redis:   DefaultRedisConfig(),
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return types.NewError(types.ErrCodeInvalidArgument,
			fmt.Sprintf("invalid log level: %s", c.Logging.Level))
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return types.NewError(types.ErrCodeInvalidArgument,
			fmt.Sprintf("invalid log format: %s (must be json or text)", c.Logging.Format))
	}

	if c.Session.MaxHistoryEntries <= 0 {
		return types.NewError(types.ErrCodeInvalidArgument, "max_history_entries must be positive")
	}

	if c.Session.InactivityTimeout <= 0 {
		return types.NewError(types.ErrCodeInvalidArgument, "inactivity_timeout must be positive")
	}

	if c.Session.SessionTTL <= 0 {
		return types.NewError(types.ErrCodeInvalidArgument, "session_ttl must be positive")
	}

	if c.Session.RecordingTTL <= 0 {
		return types.NewError(types.ErrCodeInvalidArgument, "recording_ttl must be positive")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return types.NewError(types.ErrCodeInvalidArgument, "redis addr is required when redis is enabled")
	}

	return nil
}
