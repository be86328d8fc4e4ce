// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package config

import (
	"fmt"
	"time"
)

// Storage backends.
const (
	BackendDuckDB = "duckdb"
	BackendBadger = "badger"
)

// Broadcast overflow policies. Mirrors websocket.OverflowPolicy without
// importing it.
const (
	OverflowDisconnect = "disconnect"
	OverflowDropOldest = "drop_oldest"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Database  DatabaseConfig  `koanf:"database"`
	Tracklog  TracklogConfig  `koanf:"tracklog"`
	Security  SecurityConfig  `koanf:"security"`
	Broadcast BroadcastConfig `koanf:"broadcast"`
	Ingest    IngestConfig    `koanf:"ingest"`
	Events    EventsConfig    `koanf:"events"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig selects the position store.
type StorageConfig struct {
	// Backend is "duckdb" (default) or "badger".
	Backend string `koanf:"backend"`
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // Number of DuckDB threads (0 = use NumCPU)

	// CheckpointSchedule is a cron expression for forcing a WAL checkpoint.
	// Empty disables the scheduler.
	CheckpointSchedule string `koanf:"checkpoint_schedule"`
}

// TracklogConfig holds BadgerDB settings for storage.backend: badger.
type TracklogConfig struct {
	Path       string `koanf:"path"`
	InMemory   bool   `koanf:"in_memory"`
	SyncWrites bool   `koanf:"sync_writes"`
}

// SecurityConfig holds device authentication and HTTP protection settings
type SecurityConfig struct {
	// APIKey is the shared secret devices send in X-API-Key.
	APIKey string `koanf:"api_key"`

	// APIKeyHash is a bcrypt hash of the shared secret. When set it is used
	// instead of APIKey, so the plain key need not be stored.
	APIKeyHash string `koanf:"api_key_hash"`

	// AuthDisabled accepts telemetry without a key. Development only.
	AuthDisabled bool `koanf:"auth_disabled"`

	// CORSOrigins is also the WebSocket origin allow-list.
	CORSOrigins []string `koanf:"cors_origins"`

	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// BroadcastConfig holds live update settings
type BroadcastConfig struct {
	// QueueSize is the per-subscriber queue length.
	QueueSize int `koanf:"queue_size"`

	// OverflowPolicy is "disconnect" or "drop_oldest".
	OverflowPolicy string `koanf:"overflow_policy"`
}

// IngestConfig holds telemetry ingestion settings
type IngestConfig struct {
	// StoreTimeout bounds each store call; a timeout is reported as storage unavailable.
	StoreTimeout time.Duration `koanf:"store_timeout"`

	// MaxBodyBytes caps the request body of POST /telemetry.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// StrictFields rejects reports carrying keys other than the known fields.
	StrictFields bool `koanf:"strict_fields"`
}

// EventsConfig holds outbound position event settings
type EventsConfig struct {
	Enabled bool   `koanf:"enabled"`
	NATSURL string `koanf:"nats_url"`
	Topic   string `koanf:"topic"`

	// BufferSize is how many events may wait for the publisher before new
	// ones are dropped.
	BufferSize int `koanf:"buffer_size"`

	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// Load reads configuration from defaults, the optional config file and the
// environment, then validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
