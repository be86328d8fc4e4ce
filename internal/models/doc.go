// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

// Package models defines the data structures shared across Cartotrack:
// the telemetry report accepted from devices, the stored position entry
// that carries its insertion sequence, and the HTTP response envelope.
//
// JSON field names of TelemetryReport (deviceId, lat, lng, speed, heading,
// ts) are the wire format for both the ingest body and the real-time
// location event, so clients can use one decoder for both.
package models
