// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/cartotrack/internal/config"
	"github.com/tomtom215/cartotrack/internal/database"
	"github.com/tomtom215/cartotrack/internal/models"
	"github.com/tomtom215/cartotrack/internal/tracklog"
	"github.com/tomtom215/cartotrack/internal/websocket"
)

// TestPipelineWithRealStoreAndHub runs the coordinator against the Badger
// store and a real hub with an in-process subscriber.
func TestPipelineWithRealStoreAndHub(t *testing.T) {
	store, err := tracklog.Open(config.TracklogConfig{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	hub := websocket.NewHub(websocket.HubConfig{QueueSize: 16})
	sub := websocket.NewClient(hub, nil)
	hub.Subscribe(sub)

	c := NewCoordinator(store, hub, time.Second)
	ctx := context.Background()

	bodies := []map[string]interface{}{
		{"deviceId": "truck-1", "lat": 10.0, "lng": 20.0, "ts": "2026-02-01T10:00:00Z", "speed": 12.5},
		{"deviceId": "truck-1", "lat": 11.0, "lng": 21.0, "ts": "2026-02-01T09:00:00Z"},
		{"deviceId": "truck-2", "lat": -1.0, "lng": -2.0, "ts": "2026-02-01T10:00:00Z"},
	}
	for _, b := range bodies {
		if _, err := c.Ingest(ctx, b); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
	}

	// The subscriber sees every accepted report, in publish order.
	for i, want := range []float64{10, 11, -1} {
		select {
		case msg := <-sub.Messages():
			r := msg.Data.(*models.TelemetryReport)
			if r.Latitude != want {
				t.Errorf("message %d lat = %v, want %v", i, r.Latitude, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("message %d not delivered", i)
		}
	}

	// A report that fails validation is neither stored nor broadcast.
	if _, err := c.Ingest(ctx, map[string]interface{}{"deviceId": "truck-3", "lat": 95.0, "lng": 0.0}); err == nil {
		t.Fatal("expected rejection")
	}
	select {
	case msg := <-sub.Messages():
		t.Fatalf("rejected report was broadcast: %+v", msg)
	default:
	}

	latest, err := c.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(latest))
	}
	if latest[0].DeviceID != "truck-1" || latest[0].Latitude != 10 {
		t.Errorf("truck-1 latest = %+v, want the 10:00 report", latest[0])
	}
	if latest[0].Speed == nil || *latest[0].Speed != 12.5 {
		t.Errorf("speed lost: %v", latest[0].Speed)
	}
	if latest[1].Heading != nil {
		t.Errorf("absent heading must stay nil, got %v", *latest[1].Heading)
	}

	if err := c.Ready(ctx); err != nil {
		t.Errorf("Ready: %v", err)
	}
}

// TestPipelineTimestampAgreesWithDuckDB checks that the acknowledged,
// broadcast and stored timestamps are the same value when the server
// assigns it.
func TestPipelineTimestampAgreesWithDuckDB(t *testing.T) {
	store, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "256MB"})
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	hub := websocket.NewHub(websocket.HubConfig{QueueSize: 4})
	sub := websocket.NewClient(hub, nil)
	hub.Subscribe(sub)

	c := NewCoordinator(store, hub, 5*time.Second)
	c.now = func() time.Time { return time.Date(2026, 5, 4, 12, 0, 0, 123456789, time.UTC) }
	ctx := context.Background()

	ack, err := c.Ingest(ctx, map[string]interface{}{"deviceId": "truck-1", "lat": 1.0, "lng": 2.0})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	var broadcast *models.TelemetryReport
	select {
	case msg := <-sub.Messages():
		broadcast = msg.Data.(*models.TelemetryReport)
	case <-time.After(time.Second):
		t.Fatal("report not broadcast")
	}

	latest, err := c.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(latest) != 1 {
		t.Fatalf("expected 1 device, got %d", len(latest))
	}

	want := time.Date(2026, 5, 4, 12, 0, 0, 123456000, time.UTC)
	for name, got := range map[string]time.Time{
		"ack":       ack.Timestamp,
		"broadcast": broadcast.Timestamp,
		"latest":    latest[0].Timestamp,
	} {
		if !got.Equal(want) {
			t.Errorf("%s timestamp = %s, want %s", name, got.Format(time.RFC3339Nano), want.Format(time.RFC3339Nano))
		}
	}
}
