// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

/*
Package metrics provides Prometheus metrics for the telemetry server.

All collectors are registered with the default registry through promauto and
exposed by the API router at /metrics:

	curl http://localhost:3001/metrics

# Available Metrics

HTTP:
  - http_requests_total{method,endpoint,status}
  - http_request_duration_seconds{method,endpoint}
  - http_requests_in_flight

Ingest and storage:
  - telemetry_reports_total{outcome}: accepted, rejected, storage_unavailable, unauthorized
  - telemetry_ingest_duration_seconds
  - store_operation_duration_seconds{backend,operation}
  - store_operation_errors_total{backend,operation}
  - store_checkpoints_total{backend,result}

Live updates:
  - websocket_subscribers
  - websocket_messages_delivered_total
  - websocket_messages_dropped_total
  - websocket_slow_disconnects_total

Event forwarding:
  - events_forwarded_total{result}
  - circuit_breaker_state{name}
  - circuit_breaker_state_transitions_total{name,from_state,to_state}

# Usage

	start := time.Now()
	_, err := store.Append(ctx, report)
	metrics.RecordStoreOperation(store.Backend(), "append", time.Since(start), err)

The endpoint label on HTTP metrics is the chi route pattern, not the raw
path, so label cardinality stays bounded.
*/
package metrics
