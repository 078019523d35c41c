// Package config provides functions for reading config settings from ENV.
package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrDUTDSNEmpty is returned when no DUT connection string was configured.
var ErrDUTDSNEmpty = errors.New("config: SMITH_DUT_DSN cannot be empty")

const (
	defaultStatementTimeout = time.Second
	defaultMaxRetries       = 20
	defaultReportEvery      = 800
)

// Config is the full set of settings a cmd/smith run needs: where the
// device under test lives, how the run is seeded, and what feedback
// sinks to wire up.
type Config struct {
	DUTDSN           string
	NoCatalog        bool
	Seed             int64
	StatementTimeout time.Duration
	MaxRetries       int
	ReportEvery      int
	KnownErrorsPath  string
	PersistentDSN    string
	LogLevel         slog.Level
}

// Load builds a Config from environment variables, falling back to
// sensible defaults for everything but the DUT connection string.
func Load() (*Config, error) {
	cfg := &Config{
		DUTDSN:           GetEnvStr("SMITH_DUT_DSN", ""),
		NoCatalog:        GetEnvBool("SMITH_NO_CATALOG", false),
		Seed:             GetEnvInt64("SMITH_SEED", time.Now().UnixNano()),
		StatementTimeout: GetEnvDuration("SMITH_STATEMENT_TIMEOUT", defaultStatementTimeout),
		MaxRetries:       GetEnvInt("SMITH_MAX_RETRIES", defaultMaxRetries),
		ReportEvery:      GetEnvInt("SMITH_REPORT_EVERY", defaultReportEvery),
		KnownErrorsPath:  GetEnvStr("SMITH_KNOWN_ERRORS", ""),
		PersistentDSN:    GetEnvStr("SMITH_PERSISTENT_DSN", ""),
		LogLevel:         GetEnvLogLevel("SMITH_LOG_LEVEL", slog.LevelInfo),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DUTDSN) == "" {
		return ErrDUTDSNEmpty
	}

	return nil
}

// GetEnvStr returns a string environment variable value or a default if not set.
func GetEnvStr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// GetEnvInt returns an int environment variable value or a default if not set.
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}

	return defaultValue
}

// GetEnvInt64 returns an int64 environment variable value or a default if not set.
func GetEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if int64Value, err := strconv.ParseInt(value, 10, 64); err == nil {
			return int64Value
		}
	}

	return defaultValue
}

// GetEnvBool returns a bool environment variable value or a default if not set.
// Accepts: "true", "1", "yes" as true; "false", "0", "no" as false (case-insensitive).
func GetEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}

	return defaultValue
}

// GetEnvDuration returns a time.Duration environment variable value or a
// default if not set.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}

	return defaultValue
}

// GetEnvLogLevel returns a slog.Level environment variable value or a
// default if not set.
func GetEnvLogLevel(key string, defaultValue slog.Level) slog.Level {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "debug":
			return slog.LevelDebug
		case "info":
			return slog.LevelInfo
		case "warn", "warning":
			return slog.LevelWarn
		case "error":
			return slog.LevelError
		}
	}

	return defaultValue
}
