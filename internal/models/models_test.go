// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package models

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestTelemetryReportNullOptionals(t *testing.T) {
	t.Parallel()

	r := TelemetryReport{
		DeviceID:  "truck-1",
		Latitude:  37.9144,
		Longitude: 40.2306,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(&r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"deviceId":"truck-1"`, `"speed":null`, `"heading":null`, `"ts":"2026-03-01T12:00:00Z"`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}
}

func TestTelemetryReportZeroSpeedIsNotNull(t *testing.T) {
	t.Parallel()

	r := TelemetryReport{DeviceID: "d", Speed: Float64Ptr(0)}
	data, err := json.Marshal(&r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"speed":0`) {
		t.Errorf("explicit zero speed lost: %s", data)
	}
}

func TestPositionEntryNewer(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		a, b PositionEntry
		want bool
	}{
		{
			name: "later timestamp wins despite lower seq",
			a:    PositionEntry{TelemetryReport: TelemetryReport{Timestamp: base.Add(time.Second)}, Seq: 1},
			b:    PositionEntry{TelemetryReport: TelemetryReport{Timestamp: base}, Seq: 9},
			want: true,
		},
		{
			name: "earlier timestamp loses despite higher seq",
			a:    PositionEntry{TelemetryReport: TelemetryReport{Timestamp: base}, Seq: 9},
			b:    PositionEntry{TelemetryReport: TelemetryReport{Timestamp: base.Add(time.Second)}, Seq: 1},
			want: false,
		},
		{
			name: "tie broken by seq",
			a:    PositionEntry{TelemetryReport: TelemetryReport{Timestamp: base}, Seq: 5},
			b:    PositionEntry{TelemetryReport: TelemetryReport{Timestamp: base}, Seq: 4},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.a.Newer(&tt.b); got != tt.want {
				t.Errorf("Newer() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPositionsFeatureCollection(t *testing.T) {
	t.Parallel()

	reports := []TelemetryReport{
		{DeviceID: "a", Latitude: 10, Longitude: 20, Speed: Float64Ptr(3.5), Timestamp: time.Unix(0, 0)},
		{DeviceID: "b", Latitude: -5, Longitude: 170},
	}

	fc := PositionsFeatureCollection(reports)
	if len(fc.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(fc.Features))
	}
	p := fc.Features[0].Point()
	if p.Lon() != 20 || p.Lat() != 10 {
		t.Errorf("expected lon/lat order (20,10), got %v", p)
	}
	if fc.Features[0].Properties["speed"] != 3.5 {
		t.Errorf("speed property = %v", fc.Features[0].Properties["speed"])
	}
	if fc.Features[1].Properties["heading"] != nil {
		t.Errorf("expected nil heading, got %v", fc.Features[1].Properties["heading"])
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"FeatureCollection"`) {
		t.Errorf("unexpected GeoJSON: %s", data)
	}
}
