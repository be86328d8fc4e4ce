// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/cartotrack/internal/models"
)

// Health handles GET /health. It never touches the store.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthStatus{Status: "ok"})
}

// HealthLive is the liveness probe.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: models.HealthStatus{
			Status:        "ok",
			UptimeSeconds: time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// HealthReady is the readiness probe; 503 when the store cannot be reached.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatus{
		Status:        "ready",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		Store:         h.service.Backend(),
	}
	if h.wsHub != nil {
		status.Subscribers = h.wsHub.ClientCount()
	}

	if err := h.service.Ready(r.Context()); err != nil {
		status.Status = "not_ready"
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status:   "error",
			Data:     status,
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error:    apiError(ErrCodeStorageUnavailable, "storage unavailable"),
		})
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     status,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}
