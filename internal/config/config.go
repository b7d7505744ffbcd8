package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Local    LocalConfig    `mapstructure:"local" validate:"required"`
	Sync     SyncConfig     `mapstructure:"sync" validate:"required"`
	Progress ProgressConfig `mapstructure:"progress" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error fatal"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig points at the remote authoritative store. An empty URL
// disables synchronization.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"omitempty,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// LocalConfig selects where progress snapshots are kept on this machine.
type LocalConfig struct {
	// Driver is "sqlite" for a durable file or "memory" for tests and dry runs.
	Driver string `mapstructure:"driver" validate:"required,oneof=sqlite memory"`
	// Path is the SQLite database file. Ignored by the memory driver.
	Path string `mapstructure:"path" validate:"required_if=Driver sqlite"`
}

// SyncConfig tunes the background synchronization with the remote store.
type SyncConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Interval          time.Duration `mapstructure:"interval" validate:"gte=1s"`
	CollectionTimeout time.Duration `mapstructure:"collection_timeout" validate:"gt=0"`
	MaxRetries        uint64        `mapstructure:"max_retries" validate:"lte=10"`
	RetryBaseDelay    time.Duration `mapstructure:"retry_base_delay" validate:"gt=0"`
	// ConflictPolicy decides which side wins when both changed since the
	// last sync: "remote", "local" or "latest".
	ConflictPolicy string `mapstructure:"conflict_policy" validate:"required,oneof=remote local latest"`
}

// ProgressConfig holds learning-engine settings.
type ProgressConfig struct {
	// Timezone is the IANA location used for calendar-day boundaries.
	Timezone        string `mapstructure:"timezone" validate:"required,timezone"`
	MaxQuizAttempts int    `mapstructure:"max_quiz_attempts" validate:"gte=1"`

	MinEaseFactor     float64 `mapstructure:"min_ease_factor" validate:"gt=0"`
	InitialEaseFactor float64 `mapstructure:"initial_ease_factor" validate:"gtefield=MinEaseFactor"`
	// MaxInterval caps review intervals, in days.
	MaxInterval int `mapstructure:"max_interval" validate:"gte=6"`
}

// AuthConfig contains bearer token settings.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
	TokenLifetime time.Duration `mapstructure:"token_lifetime" validate:"gt=0"`
}
