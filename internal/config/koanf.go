// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cartotrack/config.yaml",
	"/etc/cartotrack/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3001,
			Host:            "0.0.0.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Backend: BackendDuckDB,
		},
		Database: DatabaseConfig{
			Path:               "/data/cartotrack.duckdb",
			MaxMemory:          "1GB",
			Threads:            0,
			CheckpointSchedule: "@every 15m",
		},
		Tracklog: TracklogConfig{
			Path:       "/data/tracklog",
			InMemory:   false,
			SyncWrites: true,
		},
		Security: SecurityConfig{
			APIKey:            "",
			APIKeyHash:        "",
			AuthDisabled:      false,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 600,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Broadcast: BroadcastConfig{
			QueueSize:      256,
			OverflowPolicy: OverflowDisconnect,
		},
		Ingest: IngestConfig{
			StoreTimeout: 5 * time.Second,
			MaxBodyBytes: 16 << 10,
		},
		Events: EventsConfig{
			Enabled:            false,
			NATSURL:            "",
			Topic:              "telemetry.positions",
			BufferSize:         1024,
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, CONFIG_PATH first.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings; YAML lists are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to config paths.
// PORT, DEVICE_API_KEY and CORS_ORIGIN keep the names deployed devices and
// dashboards already use.
var envMappings = map[string]string{
	// Server mappings
	"port":                  "server.port",
	"http_host":             "server.host",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	// Storage mappings
	"storage_backend":        "storage.backend",
	"db_path":                "database.path",
	"duckdb_path":            "database.path",
	"db_max_memory":          "database.max_memory",
	"db_threads":             "database.threads",
	"db_checkpoint_schedule": "database.checkpoint_schedule",
	"tracklog_path":          "tracklog.path",
	"tracklog_in_memory":     "tracklog.in_memory",
	"tracklog_sync_writes":   "tracklog.sync_writes",

	// Security mappings
	"device_api_key":      "security.api_key",
	"device_api_key_hash": "security.api_key_hash",
	"auth_disabled":       "security.auth_disabled",
	"cors_origin":         "security.cors_origins",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Broadcast mappings
	"broadcast_queue_size":      "broadcast.queue_size",
	"broadcast_overflow_policy": "broadcast.overflow_policy",

	// Ingest mappings
	"ingest_store_timeout":  "ingest.store_timeout",
	"ingest_max_body_bytes": "ingest.max_body_bytes",
	"ingest_strict_fields":  "ingest.strict_fields",

	// Event mappings
	"events_enabled":              "events.enabled",
	"events_nats_url":             "events.nats_url",
	"nats_url":                    "events.nats_url",
	"events_topic":                "events.topic",
	"events_buffer_size":          "events.buffer_size",
	"events_breaker_max_failures": "events.breaker_max_failures",
	"events_breaker_timeout":      "events.breaker_timeout",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - PORT -> server.port
//   - DEVICE_API_KEY -> security.api_key
//   - CORS_ORIGIN -> security.cors_origins
//   - BROADCAST_OVERFLOW_POLICY -> broadcast.overflow_policy
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	// This prevents random environment variables from polluting config
	return ""
}
