// Package config provides centralized configuration management for the
// importer. Settings come from environment variables with defaults and are
// validated on startup so misconfiguration fails before any file is touched.
package config

import "time"

// Config holds all importer configuration.
type Config struct {
	Database DatabaseConfig
	Import   ImportConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds connection pool settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required unless running
	// with -dry-run). Supports both DATABASE_URL and DB_URL.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the pool ceiling (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the number of connections kept open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime closes connections idle longer than this (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ImportConfig holds reconciliation settings.
type ImportConfig struct {
	// BatchSize is the number of rows per transaction (default: 100)
	BatchSize int `env:"IMPORT_BATCH_SIZE" default:"100"`

	// ErrorLimit aborts a run once this many row errors accumulate.
	// 0 means unlimited (default: 10)
	ErrorLimit int `env:"IMPORT_ERROR_LIMIT" default:"10"`

	// Dir is the drop folder scanned in directory mode. Each entity kind
	// has its own subdirectory; handled files move to per-day processed/
	// or failed/ subfolders.
	Dir string `env:"IMPORT_DIR"`

	// AliasFile is an optional TOML file extending the CSV header aliases.
	AliasFile string `env:"IMPORT_ALIASES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}
