// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

// Package auth authenticates devices by the shared secret they send in the
// X-API-Key header.
//
// The secret is configured either in plain text (DEVICE_API_KEY) or as a
// bcrypt hash (DEVICE_API_KEY_HASH). Only telemetry ingestion is
// protected; reads and live updates are open.
package auth
