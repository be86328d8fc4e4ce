// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/cartotrack/internal/logging"
	"github.com/tomtom215/cartotrack/internal/models"
)

const (
	formatGeoJSON      = "geojson"
	contentTypeGeoJSON = "application/geo+json"
)

// latest reads the store and writes the GeoJSON view when asked for it.
// It reports whether the caller still has to write a response.
func (h *Handler) latest(w http.ResponseWriter, r *http.Request) ([]models.TelemetryReport, bool, error) {
	reports, err := h.service.Latest(r.Context())
	if err != nil {
		return nil, false, err
	}
	if reports == nil {
		reports = []models.TelemetryReport{}
	}

	if r.URL.Query().Get("format") != formatGeoJSON {
		return reports, true, nil
	}

	data, err := models.PositionsFeatureCollection(reports).MarshalJSON()
	if err != nil {
		return nil, false, err
	}
	w.Header().Set("Content-Type", contentTypeGeoJSON)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to write GeoJSON response")
	}
	return nil, false, nil
}

// Latest handles GET /latest with a bare array ordered by device ID.
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	reports, pending, err := h.latest(w, r)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("latest positions unavailable")
		respondLegacyError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	if pending {
		writeJSON(w, http.StatusOK, reports)
	}
}

// LatestV1 handles GET /api/v1/latest.
func (h *Handler) LatestV1(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	reports, pending, err := h.latest(w, r)
	if err != nil {
		respondError(w, r, http.StatusServiceUnavailable, apiError(ErrCodeStorageUnavailable, "storage unavailable"), err)
		return
	}
	if pending {
		respondSuccess(w, reports, start, len(reports))
	}
}
