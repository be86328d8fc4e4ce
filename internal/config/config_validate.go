// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/crypto/bcrypt"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateStorage,
		c.validateSecurity,
		c.validateBroadcast,
		c.validateIngest,
		c.validateEvents,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case BackendDuckDB:
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH is required when STORAGE_BACKEND=duckdb")
		}
		if c.Database.Threads < 0 {
			return fmt.Errorf("DB_THREADS must not be negative")
		}
		if c.Database.CheckpointSchedule != "" {
			if _, err := cron.ParseStandard(c.Database.CheckpointSchedule); err != nil {
				return fmt.Errorf("DB_CHECKPOINT_SCHEDULE is invalid: %w", err)
			}
		}
	case BackendBadger:
		if c.Tracklog.Path == "" && !c.Tracklog.InMemory {
			return fmt.Errorf("TRACKLOG_PATH is required when STORAGE_BACKEND=badger")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of: %s, %s", BackendDuckDB, BackendBadger)
	}
	return nil
}

// Rate limit bounds
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateSecurity() error {
	if !c.Security.AuthDisabled {
		switch {
		case c.Security.APIKeyHash != "":
			if _, err := bcrypt.Cost([]byte(c.Security.APIKeyHash)); err != nil {
				return fmt.Errorf("DEVICE_API_KEY_HASH is not a bcrypt hash: %w", err)
			}
		case c.Security.APIKey == "":
			return fmt.Errorf("DEVICE_API_KEY is required (or set AUTH_DISABLED=true for development)")
		}
	}

	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitRequests < minRateLimitRequests || c.Security.RateLimitRequests > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateBroadcast() error {
	if c.Broadcast.QueueSize < 1 {
		return fmt.Errorf("BROADCAST_QUEUE_SIZE must be at least 1")
	}
	switch c.Broadcast.OverflowPolicy {
	case OverflowDisconnect, OverflowDropOldest:
		return nil
	default:
		return fmt.Errorf("BROADCAST_OVERFLOW_POLICY must be one of: %s, %s", OverflowDisconnect, OverflowDropOldest)
	}
}

func (c *Config) validateIngest() error {
	if c.Ingest.StoreTimeout <= 0 {
		return fmt.Errorf("INGEST_STORE_TIMEOUT must be positive")
	}
	if c.Ingest.MaxBodyBytes < 256 {
		return fmt.Errorf("INGEST_MAX_BODY_BYTES must be at least 256")
	}
	return nil
}

func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}
	if err := validateNATSURL(c.Events.NATSURL); err != nil {
		return fmt.Errorf("EVENTS_NATS_URL is invalid: %w", err)
	}
	if c.Events.Topic == "" {
		return fmt.Errorf("EVENTS_TOPIC is required when EVENTS_ENABLED=true")
	}
	if c.Events.BufferSize < 1 {
		return fmt.Errorf("EVENTS_BUFFER_SIZE must be at least 1")
	}
	if c.Events.BreakerMaxFailures == 0 {
		return fmt.Errorf("EVENTS_BREAKER_MAX_FAILURES must be at least 1")
	}
	return nil
}

// validateNATSURL accepts nats://, tls:// and their websocket forms.
func validateNATSURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "nats", "tls", "ws", "wss":
	default:
		return fmt.Errorf("scheme must be nats, tls, ws or wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
