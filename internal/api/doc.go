// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

/*
Package api provides the HTTP layer for Cartotrack.

Routes are served by a chi router (see Router.SetupChi). Every route exists
twice: once at its original root path for existing device firmware and
dashboards, and once under /api/v1 using the standard response envelope.

Endpoints:

	POST /telemetry              ingest one report, {"ok":true} on success
	POST /api/v1/telemetry       same, APIResponse envelope
	GET  /latest                 last known position per device, bare array
	GET  /api/v1/latest          same, envelope; ?format=geojson for a FeatureCollection
	GET  /ws, /api/v1/ws         websocket live updates
	GET  /health                 {"status":"ok"}
	GET  /api/v1/health/live     liveness, never touches the store
	GET  /api/v1/health/ready    readiness, pings the store
	GET  /metrics                Prometheus exposition

Ingest routes require the X-API-Key header (see package auth) and are rate
limited per client IP with go-chi/httprate. The CORS allow-list doubles as
the websocket origin allow-list.

Error mapping:

	ingest.ErrValidation          400 VALIDATION_ERROR
	ingest.ErrStorageUnavailable  503 STORAGE_UNAVAILABLE
	malformed body                400 BAD_REQUEST
	oversized body                413 PAYLOAD_TOO_LARGE

Legacy routes report errors as {"error":"<message>"} with the same status
codes.
*/
package api
