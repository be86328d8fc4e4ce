// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package api

import "errors"

// Error codes used in the APIResponse envelope.
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	ErrCodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
)

var (
	// ErrEmptyBody is returned when an ingest request carries no body.
	ErrEmptyBody = errors.New("request body is empty")

	// ErrNotAnObject is returned when the body is valid JSON but not an object.
	ErrNotAnObject = errors.New("request body must be a JSON object")

	// ErrBodyTooLarge is returned when the body exceeds ingest.max_body_bytes.
	ErrBodyTooLarge = errors.New("request body too large")
)
