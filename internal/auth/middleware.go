// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package auth

import (
	"net/http"
	"time"

	"github.com/tomtom215/cartotrack/internal/logging"
	"github.com/tomtom215/cartotrack/internal/metrics"
)

// unauthorizedBody is the 401 body existing device firmware expects.
var unauthorizedBody = []byte(`{"error":"unauthorized"}`)

// Middleware rejects requests without a valid X-API-Key with 401.
func (a *APIKeyAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := a.Validate(r.Header.Get(HeaderAPIKey)); err != nil {
			metrics.RecordIngest(metrics.OutcomeUnauthorized, time.Duration(0))
			logging.Ctx(r.Context()).Warn().
				Err(err).
				Str("remote_addr", r.RemoteAddr).
				Str("path", r.URL.Path).
				Msg("telemetry rejected: unauthorized")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write(unauthorizedBody)
			return
		}
		next.ServeHTTP(w, r)
	})
}
