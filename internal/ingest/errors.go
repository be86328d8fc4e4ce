// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package ingest

import "errors"

var (
	// ErrValidation marks a report rejected before anything was stored.
	// The wrapped *validation.RequestValidationError names the violation.
	ErrValidation = errors.New("invalid telemetry report")

	// ErrStorageUnavailable marks a report the store did not commit,
	// including a store call that ran past the configured timeout.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
