// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package main

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestTrackFirstReportHasNoMotion(t *testing.T) {
	t.Parallel()

	tr := NewTrack("truck-1", defaultStartLat, defaultStartLng, defaultJitter, 1)
	r := tr.Next(time.Now(), 0)

	if r.DeviceID != "truck-1" {
		t.Errorf("deviceId = %q", r.DeviceID)
	}
	if r.Speed != nil || r.Heading != nil {
		t.Errorf("first report should omit speed and heading, got %v %v", r.Speed, r.Heading)
	}
	if math.Abs(r.Lat-defaultStartLat) > defaultJitter || math.Abs(r.Lng-defaultStartLng) > defaultJitter {
		t.Errorf("step too large: %v,%v", r.Lat, r.Lng)
	}
}

func TestTrackMotionFields(t *testing.T) {
	t.Parallel()

	tr := NewTrack("truck-1", defaultStartLat, defaultStartLng, defaultJitter, 42)
	now := time.Date(2026, 5, 4, 7, 0, 0, 0, time.UTC)
	tr.Next(now, 0)

	for i := 0; i < 50; i++ {
		now = now.Add(2 * time.Second)
		r := tr.Next(now, 2*time.Second)
		if r.Speed == nil || *r.Speed < 0 {
			t.Fatalf("step %d: bad speed %v", i, r.Speed)
		}
		// 0.00015 deg per axis every 2 s is well under 50 km/h.
		if *r.Speed > 50 {
			t.Errorf("step %d: speed %.1f km/h is implausible", i, *r.Speed)
		}
		if r.Heading == nil || *r.Heading < 0 || *r.Heading > 360 {
			t.Fatalf("step %d: heading out of range %v", i, r.Heading)
		}
		if r.TS != now.Format(time.RFC3339Nano) {
			t.Errorf("step %d: ts = %s", i, r.TS)
		}
	}
}

func TestTrackSeedIsReproducible(t *testing.T) {
	t.Parallel()

	a := NewTrack("d", 0, 0, defaultJitter, 7)
	b := NewTrack("d", 0, 0, defaultJitter, 7)
	now := time.Now()
	for i := 0; i < 10; i++ {
		ra, rb := a.Next(now, time.Second), b.Next(now, time.Second)
		if ra.Lat != rb.Lat || ra.Lng != rb.Lng {
			t.Fatalf("step %d diverged: %v vs %v", i, ra, rb)
		}
	}
}

func TestTrackClampsAtPole(t *testing.T) {
	t.Parallel()

	tr := NewTrack("d", 90, 180, 1, 3)
	for i := 0; i < 20; i++ {
		r := tr.Next(time.Now(), time.Second)
		if r.Lat > 90 || r.Lng > 180 {
			t.Fatalf("left valid range: %v,%v", r.Lat, r.Lng)
		}
	}
}

func TestParseFlags(t *testing.T) {
	t.Setenv("SIM_URL", "")
	t.Setenv("DEVICE_ID", "")

	opts, err := parseFlags([]string{"-url", "http://example.test/", "-count", "3", "-interval", "10ms"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if opts.url != "http://example.test" || opts.count != 3 || opts.deviceID != "truck-1" {
		t.Errorf("unexpected options: %+v", opts)
	}

	if _, err := parseFlags([]string{"-interval", "0s"}); err == nil {
		t.Error("expected error for zero interval")
	}
}

func TestWSURL(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"http://localhost:3001": "ws://localhost:3001/ws",
		"https://tracker.test":  "wss://tracker.test/ws",
		"ws://already":          "ws://already/ws",
	}
	for in, want := range tests {
		if got := wsURL(in); got != want {
			t.Errorf("wsURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSimulateSendsReports(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		bodies  []Report
		headers []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/telemetry" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var rep Report
		if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		bodies = append(bodies, rep)
		headers = append(headers, r.Header.Get("X-API-Key"))
		mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	opts := &options{
		url:      srv.URL,
		apiKey:   "device-secret",
		deviceID: "van-2",
		interval: 5 * time.Millisecond,
		count:    3,
		lat:      defaultStartLat,
		lng:      defaultStartLng,
		jitter:   defaultJitter,
		seed:     1,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := simulate(ctx, opts, srv.Client()); err != nil {
		t.Fatalf("simulate: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(bodies))
	}
	for i, b := range bodies {
		if b.DeviceID != "van-2" || headers[i] != "device-secret" {
			t.Errorf("report %d: device=%q key=%q", i, b.DeviceID, headers[i])
		}
	}
	if bodies[0].Speed != nil || bodies[1].Speed == nil {
		t.Errorf("speed should appear from the second report on")
	}
}

func TestSendReportsServerRejection(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer srv.Close()

	err := send(context.Background(), srv.Client(), srv.URL+"/telemetry", "wrong", Report{DeviceID: "d"})
	if err == nil {
		t.Fatal("expected error on 401")
	}
}
