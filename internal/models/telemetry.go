// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package models

import "time"

// MaxDeviceIDLength bounds TelemetryReport.DeviceID.
const MaxDeviceIDLength = 64

// TimestampPrecision is the finest timestamp resolution every store keeps.
// DuckDB TIMESTAMP columns hold microseconds.
const TimestampPrecision = time.Microsecond

// NormalizeTimestamp returns t in UTC at TimestampPrecision. Reports carry
// normalized timestamps from validation onward, so the acknowledgment, the
// broadcast and the stored row agree.
func NormalizeTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(TimestampPrecision)
}

// TelemetryReport is one observation of one device at one instant.
//
// Speed and Heading are pointers so that an omitted value stays null all
// the way to storage and back out to clients; they are never defaulted to 0.
type TelemetryReport struct {
	DeviceID  string    `json:"deviceId"`
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lng"`
	Speed     *float64  `json:"speed"`
	Heading   *float64  `json:"heading"`
	Timestamp time.Time `json:"ts"`
}

// PositionEntry is a persisted TelemetryReport plus its insertion marker.
// Seq only breaks ties between reports of one device sharing a timestamp.
type PositionEntry struct {
	TelemetryReport
	Seq int64 `json:"-"`
}

// StoreRef identifies a committed append.
type StoreRef struct {
	Seq int64 `json:"seq"`
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 {
	return &v
}

// Newer reports whether e supersedes other as the latest position of the
// same device: later timestamp wins, equal timestamps fall back to Seq.
func (e *PositionEntry) Newer(other *PositionEntry) bool {
	if !e.Timestamp.Equal(other.Timestamp) {
		return e.Timestamp.After(other.Timestamp)
	}
	return e.Seq > other.Seq
}
