// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package validation

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/cartotrack/internal/models"
)

// Wire field names, in the order they are checked.
const (
	FieldDeviceID  = "deviceId"
	FieldLatitude  = "lat"
	FieldLongitude = "lng"
	FieldSpeed     = "speed"
	FieldHeading   = "heading"
	FieldTimestamp = "ts"
)

var (
	deviceIDRule  = "required,max=" + strconv.Itoa(models.MaxDeviceIDLength)
	latitudeRule  = "finite,gte=-90,lte=90"
	longitudeRule = "finite,gte=-180,lte=180"
	speedRule     = "finite"
	headingRule   = "finite,gte=0,lte=360"
)

// timestampLayouts are the ISO-8601 shapes accepted for ts. Layouts without
// a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTelemetryReport turns a decoded JSON object into a normalized report.
//
// Fields are checked in wire order (deviceId, lat, lng, speed, heading, ts)
// and, within a field, presence then type then range; the first violation
// is returned. Numeric strings are accepted and converted. An absent or null
// ts becomes receivedAt. The returned timestamp is UTC, truncated to
// models.TimestampPrecision. Keys other than the six known fields are
// ignored; see ParseTelemetryReportStrict.
func ParseTelemetryReport(raw map[string]interface{}, receivedAt time.Time) (*models.TelemetryReport, *RequestValidationError) {
	if raw == nil {
		return nil, newFieldError("body", "required", "", nil, "request body must be a JSON object")
	}

	report := &models.TelemetryReport{}

	deviceID, verr := requiredString(raw, FieldDeviceID)
	if verr != nil {
		return nil, verr
	}
	deviceID = strings.TrimSpace(deviceID)
	if verr := checkVar(FieldDeviceID, deviceID, deviceIDRule); verr != nil {
		return nil, verr
	}
	report.DeviceID = deviceID

	if report.Latitude, verr = requiredNumber(raw, FieldLatitude, latitudeRule); verr != nil {
		return nil, verr
	}
	if report.Longitude, verr = requiredNumber(raw, FieldLongitude, longitudeRule); verr != nil {
		return nil, verr
	}
	if report.Speed, verr = optionalNumber(raw, FieldSpeed, speedRule); verr != nil {
		return nil, verr
	}
	if report.Heading, verr = optionalNumber(raw, FieldHeading, headingRule); verr != nil {
		return nil, verr
	}

	ts, verr := optionalTimestamp(raw, FieldTimestamp)
	if verr != nil {
		return nil, verr
	}
	if ts.IsZero() {
		ts = receivedAt
	}
	report.Timestamp = models.NormalizeTimestamp(ts)

	return report, nil
}

// ParseTelemetryReportStrict is ParseTelemetryReport that also rejects keys
// other than the six known fields. Unknown keys are reported after every
// known field has passed, in sorted order.
func ParseTelemetryReportStrict(raw map[string]interface{}, receivedAt time.Time) (*models.TelemetryReport, *RequestValidationError) {
	report, verr := ParseTelemetryReport(raw, receivedAt)
	if verr != nil {
		return nil, verr
	}
	if key := firstUnknownKey(raw); key != "" {
		return nil, newFieldError(key, "allowed", "", raw[key], translate(key, "allowed", "", false))
	}
	return report, nil
}

var knownFields = map[string]struct{}{
	FieldDeviceID:  {},
	FieldLatitude:  {},
	FieldLongitude: {},
	FieldSpeed:     {},
	FieldHeading:   {},
	FieldTimestamp: {},
}

func firstUnknownKey(raw map[string]interface{}) string {
	var unknown []string
	for k := range raw {
		if _, ok := knownFields[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return ""
	}
	sort.Strings(unknown)
	return unknown[0]
}

// ValidateReport re-checks an already typed report, for callers that build
// reports in code rather than from JSON. A valid report has its timestamp
// normalized in place with models.NormalizeTimestamp.
func ValidateReport(r *models.TelemetryReport) *RequestValidationError {
	if r == nil {
		return newFieldError("body", "required", "", nil, "report is required")
	}
	if verr := checkVar(FieldDeviceID, r.DeviceID, deviceIDRule); verr != nil {
		return verr
	}
	if verr := checkVar(FieldLatitude, r.Latitude, latitudeRule); verr != nil {
		return verr
	}
	if verr := checkVar(FieldLongitude, r.Longitude, longitudeRule); verr != nil {
		return verr
	}
	if r.Speed != nil {
		if verr := checkVar(FieldSpeed, *r.Speed, speedRule); verr != nil {
			return verr
		}
	}
	if r.Heading != nil {
		if verr := checkVar(FieldHeading, *r.Heading, headingRule); verr != nil {
			return verr
		}
	}
	if r.Timestamp.IsZero() {
		return newFieldError(FieldTimestamp, "required", "", nil, translate(FieldTimestamp, "required", "", false))
	}
	r.Timestamp = models.NormalizeTimestamp(r.Timestamp)
	return nil
}

func requiredString(raw map[string]interface{}, field string) (string, *RequestValidationError) {
	v, ok := raw[field]
	if !ok || v == nil {
		return "", newFieldError(field, "required", "", nil, translate(field, "required", "", true))
	}
	s, ok := v.(string)
	if !ok {
		return "", newFieldError(field, "string", "", v, translate(field, "string", "", false))
	}
	return s, nil
}

func requiredNumber(raw map[string]interface{}, field, rule string) (float64, *RequestValidationError) {
	v, ok := raw[field]
	if !ok || v == nil {
		return 0, newFieldError(field, "required", "", nil, translate(field, "required", "", false))
	}
	f, verr := toFloat(field, v)
	if verr != nil {
		return 0, verr
	}
	if verr := checkVar(field, f, rule); verr != nil {
		return 0, verr
	}
	return f, nil
}

func optionalNumber(raw map[string]interface{}, field, rule string) (*float64, *RequestValidationError) {
	v, ok := raw[field]
	if !ok || v == nil {
		return nil, nil
	}
	f, verr := toFloat(field, v)
	if verr != nil {
		return nil, verr
	}
	if verr := checkVar(field, f, rule); verr != nil {
		return nil, verr
	}
	return &f, nil
}

type float64er interface {
	Float64() (float64, error)
}

func toFloat(field string, v interface{}) (float64, *RequestValidationError) {
	typeErr := newFieldError(field, "number", "", v, translate(field, "number", "", false))

	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64er:
		f, err := n.Float64()
		if err != nil {
			return 0, typeErr
		}
		return f, nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, typeErr
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, typeErr
		}
		return f, nil
	default:
		return 0, typeErr
	}
}

func optionalTimestamp(raw map[string]interface{}, field string) (time.Time, *RequestValidationError) {
	v, ok := raw[field]
	if !ok || v == nil {
		return time.Time{}, nil
	}
	s, ok := v.(string)
	if !ok {
		return time.Time{}, newFieldError(field, "string", "", v, translate(field, "string", "", false))
	}
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, newFieldError(field, "datetime", "ISO-8601", v, translate(field, "datetime", "", false))
}
