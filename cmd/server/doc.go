// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

// Package main is the entry point for the Cartotrack server.
//
// Cartotrack accepts position reports from devices over HTTP, stores them,
// serves the latest position of every device and pushes each accepted
// report to connected websocket clients.
//
// # Startup
//
//  1. Configuration: defaults, optional config.yaml, environment (koanf)
//  2. Logging: zerolog with the configured level and format
//  3. Position store: DuckDB (default) or BadgerDB, pinged before serving;
//     the process exits non-zero when the store is unreachable
//  4. Live update hub and ingestion coordinator
//  5. Event forwarder to NATS when events.enabled is set
//  6. Supervisor tree: checkpoint scheduler, hub, forwarder, HTTP server
//
// # Configuration
//
// The environment names used by existing deployments are honored:
//
//	PORT=3001
//	DEVICE_API_KEY=change-me
//	CORS_ORIGIN=http://localhost:5173,https://map.example.com
//
// See internal/config for the full list.
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The HTTP server drains within
// server.shutdown_timeout, websocket clients receive a close frame, queued
// events are flushed and the store is closed.
package main
