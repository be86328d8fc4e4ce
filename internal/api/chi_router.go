// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/cartotrack/internal/auth"
	"github.com/tomtom215/cartotrack/internal/middleware"
)

// compressLevel is the gzip level for read responses.
const compressLevel = 5

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	authenticator *auth.APIKeyAuthenticator
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. chiMW may be nil for defaults.
func NewRouter(handler *Handler, authenticator *auth.APIKeyAuthenticator, chiMW *ChiMiddleware) *Router {
	if chiMW == nil {
		chiMW = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		authenticator: authenticator,
		chiMiddleware: chiMW,
	}
}

// SetupChi builds the route tree.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()
	ingest := router.ingestMiddleware() // one limiter shared by both ingest routes

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered

	r.Handle("/metrics", promhttp.Handler())

	// Root-level routes keep the response shapes existing clients parse.
	r.Get("/health", router.handler.Health)
	r.With(ingest...).Post("/telemetry", router.handler.Telemetry)
	r.With(chimiddleware.Compress(compressLevel, "application/json", contentTypeGeoJSON)).
		Get("/latest", router.handler.Latest)
	r.Get("/ws", router.handler.WebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())

		r.Route("/health", func(r chi.Router) {
			r.Get("/live", router.handler.HealthLive)
			r.Get("/ready", router.handler.HealthReady)
		})

		r.With(ingest...).Post("/telemetry", router.handler.TelemetryV1)
		r.With(chimiddleware.Compress(compressLevel, "application/json", contentTypeGeoJSON)).
			Get("/latest", router.handler.LatestV1)
		r.Get("/ws", router.handler.WebSocket)
	})

	return r
}

// ingestMiddleware limits before authenticating so bad keys are throttled too.
func (router *Router) ingestMiddleware() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		router.chiMiddleware.RateLimit(),
		router.authenticator.Middleware,
	}
}
