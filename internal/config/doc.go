// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

/*
Package config loads and validates the server configuration.

# Configuration Sources

Sources are layered with Koanf v2, later layers winning:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: $CONFIG_PATH, ./config.yaml, /etc/cartotrack/config.yaml
 3. Environment variables, through an explicit name mapping

Unmapped environment variables are ignored.

# Environment Variables

Server:
  - PORT: listen port (default: 3001)
  - HTTP_HOST: bind address (default: 0.0.0.0)
  - HTTP_READ_TIMEOUT, HTTP_WRITE_TIMEOUT, HTTP_IDLE_TIMEOUT, HTTP_SHUTDOWN_TIMEOUT

Storage:
  - STORAGE_BACKEND: duckdb or badger (default: duckdb)
  - DB_PATH: DuckDB file (default: /data/cartotrack.duckdb)
  - DB_MAX_MEMORY, DB_THREADS
  - DB_CHECKPOINT_SCHEDULE: cron expression (default: @every 15m, empty disables)
  - TRACKLOG_PATH, TRACKLOG_IN_MEMORY, TRACKLOG_SYNC_WRITES

Security:
  - DEVICE_API_KEY: shared secret devices send as X-API-Key (required)
  - DEVICE_API_KEY_HASH: bcrypt hash used instead of DEVICE_API_KEY
  - AUTH_DISABLED: accept telemetry without a key (development only)
  - CORS_ORIGIN: comma-separated allowed origins, also used for WebSocket
    origin checks (default: *, any origin; set an explicit list in production)
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT

Live updates:
  - BROADCAST_QUEUE_SIZE: per-subscriber queue (default: 256)
  - BROADCAST_OVERFLOW_POLICY: disconnect or drop_oldest (default: disconnect)

Ingest:
  - INGEST_STORE_TIMEOUT: per store call (default: 5s)
  - INGEST_MAX_BODY_BYTES (default: 16384)
  - INGEST_STRICT_FIELDS: reject unknown body keys with 400 (default: false)

Events:
  - EVENTS_ENABLED, EVENTS_NATS_URL (or NATS_URL), EVENTS_TOPIC,
    EVENTS_BUFFER_SIZE, EVENTS_BREAKER_MAX_FAILURES, EVENTS_BREAKER_TIMEOUT

Logging:
  - LOG_LEVEL: trace, debug, info, warn, error (default: info)
  - LOG_FORMAT: json or console (default: json)
  - LOG_CALLER: include file:line (default: false)

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
*/
package config
