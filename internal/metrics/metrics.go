// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingest outcomes.
const (
	OutcomeAccepted           = "accepted"
	OutcomeRejected           = "rejected"
	OutcomeStorageUnavailable = "storage_unavailable"
	OutcomeUnauthorized       = "unauthorized"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Ingest Metrics
	IngestReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_reports_total",
			Help: "Telemetry reports received, by outcome",
		},
		[]string{"outcome"},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "telemetry_ingest_duration_seconds",
			Help:    "Time from receipt to acknowledgement of a report",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Store Metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of position store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	StoreOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operation_errors_total",
			Help: "Total number of failed position store operations",
		},
		[]string{"backend", "operation"},
	)

	CheckpointsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_checkpoints_total",
			Help: "Scheduled store checkpoints, by result",
		},
		[]string{"backend", "result"},
	)

	// WebSocket Metrics
	WebSocketSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_subscribers",
			Help: "Current number of live update subscribers",
		},
	)

	WebSocketMessagesDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_delivered_total",
			Help: "Messages queued for a subscriber",
		},
	)

	WebSocketMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_dropped_total",
			Help: "Messages discarded because a subscriber queue was full",
		},
	)

	WebSocketSlowDisconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_slow_disconnects_total",
			Help: "Subscribers disconnected for falling behind",
		},
	)

	// Event forwarding
	EventsForwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_forwarded_total",
			Help: "Outbound position events, by result",
		},
		[]string{"result"}, // "published", "failed", "rejected", "dropped"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version", "store_backend"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordIngest counts one report outcome.
func RecordIngest(outcome string, duration time.Duration) {
	IngestReportsTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeAccepted {
		IngestDuration.Observe(duration.Seconds())
	}
}

// RecordStoreOperation records a store call and whether it failed.
func RecordStoreOperation(backend, operation string, duration time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if err != nil {
		StoreOperationErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordCheckpoint counts a scheduled checkpoint.
func RecordCheckpoint(backend string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	CheckpointsTotal.WithLabelValues(backend, result).Inc()
}

// RecordBroadcast adds the outcome of one hub publish.
func RecordBroadcast(delivered, dropped, disconnected int) {
	if delivered > 0 {
		WebSocketMessagesDelivered.Add(float64(delivered))
	}
	if dropped > 0 {
		WebSocketMessagesDropped.Add(float64(dropped))
	}
	if disconnected > 0 {
		WebSocketSlowDisconnects.Add(float64(disconnected))
	}
}

// RecordEventForward counts one outbound event by result.
func RecordEventForward(result string) {
	EventsForwarded.WithLabelValues(result).Inc()
}

// SetCircuitBreakerState publishes the numeric state for a named breaker.
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordCircuitBreakerTransition counts a state change.
func RecordCircuitBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}
