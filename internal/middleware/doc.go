// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

/*
Package middleware provides infrastructure HTTP middleware shared by every
route: request ID propagation and Prometheus instrumentation.

Both are plain func(http.Handler) http.Handler values so they can be passed
straight to chi's Use:

	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

Request IDs are taken from an incoming X-Request-ID header when present and
generated otherwise. The ID is echoed on the response and stored in the
request context through the logging package, so logging.Ctx(ctx) includes it.

PrometheusMetrics labels requests by chi route pattern rather than raw path,
which keeps label cardinality bounded. The response writer is wrapped with
chi's WrapResponseWriter, which still supports http.Hijacker for websocket
upgrades.
*/
package middleware
