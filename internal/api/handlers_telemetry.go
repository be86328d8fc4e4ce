// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cartotrack/internal/ingest"
	"github.com/tomtom215/cartotrack/internal/models"
	"github.com/tomtom215/cartotrack/internal/validation"
)

const defaultMaxBodyBytes int64 = 16 << 10

// decodeReportBody reads a JSON object, keeping numbers as json.Number so the
// validator sees exactly what the device sent.
func (h *Handler) decodeReportBody(w http.ResponseWriter, r *http.Request) (map[string]interface{}, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, ErrBodyTooLarge
		}
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyBody
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var decoded interface{}
	if err := dec.Decode(&decoded); err != nil {
		return nil, err
	}
	raw, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, ErrNotAnObject
	}
	return raw, nil
}

// ingestError maps an ingest failure to a status and envelope error.
func ingestError(err error) (int, *models.APIError) {
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge, apiError(ErrCodePayloadTooLarge, err.Error())
	case errors.Is(err, ingest.ErrValidation):
		var verr *validation.RequestValidationError
		if errors.As(err, &verr) {
			v := verr.ToAPIError()
			return http.StatusBadRequest, &models.APIError{Code: v.Code, Message: v.Message, Details: v.Details}
		}
		return http.StatusBadRequest, apiError(ErrCodeValidation, err.Error())
	case errors.Is(err, ingest.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, apiError(ErrCodeStorageUnavailable, "storage unavailable")
	default:
		return http.StatusBadRequest, apiError(ErrCodeBadRequest, "malformed JSON body")
	}
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) (*models.TelemetryReport, error) {
	raw, err := h.decodeReportBody(w, r)
	if err != nil {
		return nil, err
	}
	return h.service.Ingest(r.Context(), raw)
}

// Telemetry handles POST /telemetry and answers {"ok":true}.
func (h *Handler) Telemetry(w http.ResponseWriter, r *http.Request) {
	if _, err := h.ingest(w, r); err != nil {
		status, apiErr := ingestError(err)
		respondLegacyError(w, status, apiErr.Message)
		return
	}
	writeJSON(w, http.StatusOK, models.IngestAck{OK: true})
}

// TelemetryV1 handles POST /api/v1/telemetry and returns the stored report.
func (h *Handler) TelemetryV1(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	report, err := h.ingest(w, r)
	if err != nil {
		status, apiErr := ingestError(err)
		var logErr error
		if status >= http.StatusInternalServerError {
			logErr = err
		}
		respondError(w, r, status, apiErr, logErr)
		return
	}
	respondSuccess(w, report, start, 0)
}
