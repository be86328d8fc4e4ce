// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package websocket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/cartotrack/internal/logging"
	"github.com/tomtom215/cartotrack/internal/models"
)

//nolint:gochecknoinits // quiet logging for the whole package
func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

func testReport(device string, lat float64) *models.TelemetryReport {
	return &models.TelemetryReport{DeviceID: device, Latitude: lat, Longitude: 40.2306, Timestamp: time.Now().UTC()}
}

// subscribe creates an in-process client (no connection) and subscribes it.
func subscribe(t *testing.T, h *Hub) *Client {
	t.Helper()
	c := NewClient(h, nil)
	if !h.Subscribe(c) {
		t.Fatal("Subscribe refused")
	}
	return c
}

func drain(c *Client) []Message {
	var out []Message
	for {
		select {
		case m, ok := <-c.send:
			if !ok {
				return out
			}
			out = append(out, m)
		default:
			return out
		}
	}
}

func TestNewHubDefaults(t *testing.T) {
	t.Parallel()

	h := NewHub(HubConfig{})
	if h.QueueSize() != DefaultQueueSize {
		t.Errorf("queue size = %d, want %d", h.QueueSize(), DefaultQueueSize)
	}
	if h.overflow != OverflowDisconnect {
		t.Errorf("overflow = %s, want %s", h.overflow, OverflowDisconnect)
	}
	if h.ClientCount() != 0 {
		t.Errorf("expected no clients, got %d", h.ClientCount())
	}
}

func TestPublishReachesOnlyCurrentSubscribers(t *testing.T) {
	t.Parallel()
	h := NewHub(HubConfig{})

	early := subscribe(t, h)
	res := h.PublishReport(testReport("truck-1", 1))
	if res.Delivered != 1 {
		t.Errorf("delivered = %d, want 1", res.Delivered)
	}

	late := subscribe(t, h)
	h.PublishReport(testReport("truck-1", 2))

	earlyMsgs := drain(early)
	if len(earlyMsgs) != 2 {
		t.Fatalf("early subscriber got %d messages, want 2", len(earlyMsgs))
	}
	lateMsgs := drain(late)
	if len(lateMsgs) != 1 {
		t.Fatalf("late subscriber got %d messages, want 1 (no replay)", len(lateMsgs))
	}
	r, ok := lateMsgs[0].Data.(*models.TelemetryReport)
	if !ok || r.Latitude != 2 {
		t.Errorf("late subscriber got %+v", lateMsgs[0].Data)
	}
	if lateMsgs[0].Type != MessageTypeLocation {
		t.Errorf("type = %s", lateMsgs[0].Type)
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	t.Parallel()
	h := NewHub(HubConfig{})

	if res := h.PublishReport(testReport("a", 0)); res != (PublishResult{}) {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestPublishOrderIsGlobal(t *testing.T) {
	t.Parallel()
	h := NewHub(HubConfig{QueueSize: 1000})

	clients := []*Client{subscribe(t, h), subscribe(t, h), subscribe(t, h)}

	// Concurrent publishers: whatever order the hub serializes them in,
	// every client must see that same order.
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				h.PublishReport(testReport(fmt.Sprintf("p%d", p), float64(i)))
			}
		}(p)
	}
	wg.Wait()

	reference := drain(clients[0])
	if len(reference) != 200 {
		t.Fatalf("got %d messages, want 200", len(reference))
	}
	for ci, c := range clients[1:] {
		got := drain(c)
		if len(got) != len(reference) {
			t.Fatalf("client %d got %d messages", ci+1, len(got))
		}
		for i := range got {
			if got[i].Data != reference[i].Data {
				t.Fatalf("client %d diverges at %d", ci+1, i)
			}
		}
	}

	// Per publisher, order is the publish-call order.
	last := map[string]float64{}
	for _, m := range reference {
		r := m.Data.(*models.TelemetryReport)
		if prev, ok := last[r.DeviceID]; ok && r.Latitude <= prev {
			t.Fatalf("%s: %v after %v", r.DeviceID, r.Latitude, prev)
		}
		last[r.DeviceID] = r.Latitude
	}
}

func TestSlowClientIsDisconnected(t *testing.T) {
	t.Parallel()
	h := NewHub(HubConfig{QueueSize: 2, Overflow: OverflowDisconnect})

	slow := subscribe(t, h)
	fast := subscribe(t, h)

	var results []PublishResult
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			results = append(results, h.PublishReport(testReport("a", float64(i))))
			drain(fast) // fast keeps up
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	if results[2].Disconnected != 1 || results[2].Delivered != 1 {
		t.Errorf("third publish result = %+v", results[2])
	}
	if h.ClientCount() != 1 {
		t.Errorf("expected slow client removed, %d clients remain", h.ClientCount())
	}

	got := drain(slow)
	if len(got) != 2 {
		t.Errorf("slow client should keep its 2 queued messages, got %d", len(got))
	}
	if _, ok := <-slow.send; ok {
		t.Error("slow client's queue should be closed")
	}
}

func TestDropOldestPolicy(t *testing.T) {
	t.Parallel()
	h := NewHub(HubConfig{QueueSize: 2, Overflow: OverflowDropOldest})

	c := subscribe(t, h)
	for i := 1; i <= 4; i++ {
		h.PublishReport(testReport("a", float64(i)))
	}

	if h.ClientCount() != 1 {
		t.Fatal("drop_oldest must not disconnect")
	}
	got := drain(c)
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	for i, want := range []float64{3, 4} {
		if lat := got[i].Data.(*models.TelemetryReport).Latitude; lat != want {
			t.Errorf("message %d lat = %v, want %v", i, lat, want)
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	t.Parallel()
	h := NewHub(HubConfig{})

	c := subscribe(t, h)
	h.Unsubscribe(c)
	h.Unsubscribe(c) // second call is a no-op

	if _, ok := <-c.Messages(); ok {
		t.Error("queue should be closed after Unsubscribe")
	}
	if res := h.PublishReport(testReport("a", 1)); res.Delivered != 0 {
		t.Errorf("unsubscribed client received a message: %+v", res)
	}
}

func TestConcurrentMembershipAndPublish(t *testing.T) {
	t.Parallel()
	h := NewHub(HubConfig{QueueSize: 8, Overflow: OverflowDropOldest})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				c := NewClient(h, nil)
				h.Subscribe(c)
				drain(c)
				h.Unsubscribe(c)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ctx.Err() == nil; i++ {
			h.PublishReport(testReport("a", float64(i%90)))
		}
	}()
	wg.Wait()

	if n := h.ClientCount(); n != 0 {
		t.Errorf("expected all clients gone, %d remain", n)
	}
}

func TestRunWithContextClosesClients(t *testing.T) {
	t.Parallel()
	h := NewHub(HubConfig{})
	c := subscribe(t, h)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- h.RunWithContext(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunWithContext did not return")
	}

	if _, ok := <-c.Messages(); ok {
		t.Error("client queue should be closed on shutdown")
	}
	if h.Subscribe(NewClient(h, nil)) {
		t.Error("Subscribe should be refused after shutdown")
	}
}

func TestParseOverflowPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    OverflowPolicy
		wantErr bool
	}{
		{"", OverflowDisconnect, false},
		{"disconnect", OverflowDisconnect, false},
		{"drop_oldest", OverflowDropOldest, false},
		{"block", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOverflowPolicy(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseOverflowPolicy(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}
