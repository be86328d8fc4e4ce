// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/cartotrack/internal/logging"
	"github.com/tomtom215/cartotrack/internal/models"
	"github.com/tomtom215/cartotrack/internal/validation"
	"github.com/tomtom215/cartotrack/internal/websocket"
)

//nolint:gochecknoinits // quiet logging for the whole package
func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

// mockStore is an in-memory Store with failure injection.
type mockStore struct {
	mu      sync.Mutex
	entries []models.PositionEntry
	seq     int64

	appendErr error
	latestErr error
	pingErr   error
	delay     time.Duration
	appends   int
}

func (s *mockStore) Append(ctx context.Context, r *models.TelemetryReport) (models.StoreRef, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return models.StoreRef{}, fmt.Errorf("append: %w", ctx.Err())
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.appends++
	if s.appendErr != nil {
		return models.StoreRef{}, s.appendErr
	}
	s.seq++
	s.entries = append(s.entries, models.PositionEntry{TelemetryReport: *r, Seq: s.seq})
	return models.StoreRef{Seq: s.seq}, nil
}

func (s *mockStore) LatestPerDevice(context.Context) ([]models.PositionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latestErr != nil {
		return nil, s.latestErr
	}
	latest := map[string]models.PositionEntry{}
	for _, e := range s.entries {
		cur, ok := latest[e.DeviceID]
		if !ok || e.Newer(&cur) {
			latest[e.DeviceID] = e
		}
	}
	out := make([]models.PositionEntry, 0, len(latest))
	for _, e := range latest {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

func (s *mockStore) Ping(context.Context) error { return s.pingErr }
func (s *mockStore) Backend() string            { return "mock" }

func (s *mockStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

type mockHub struct {
	mu        sync.Mutex
	published []*models.TelemetryReport
}

func (h *mockHub) PublishReport(r *models.TelemetryReport) websocket.PublishResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.published = append(h.published, r)
	return websocket.PublishResult{Delivered: 1}
}

func (h *mockHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.published)
}

type mockForwarder struct {
	mu        sync.Mutex
	forwarded []*models.TelemetryReport
	err       error
}

func (f *mockForwarder) Forward(r *models.TelemetryReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forwarded = append(f.forwarded, r)
	return f.err
}

func validBody() map[string]interface{} {
	return map[string]interface{}{"deviceId": "truck-1", "lat": 37.9144, "lng": 40.2306}
}

func TestIngest_Accepted(t *testing.T) {
	t.Parallel()
	store, hub, fwd := &mockStore{}, &mockHub{}, &mockForwarder{}
	c := NewCoordinator(store, hub, time.Second)
	c.SetForwarder(fwd)

	fixed := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	r, err := c.Ingest(context.Background(), validBody())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !r.Timestamp.Equal(fixed) {
		t.Errorf("timestamp = %v, want receive time %v", r.Timestamp, fixed)
	}
	if store.count() != 1 {
		t.Errorf("stored %d reports, want 1", store.count())
	}
	if hub.count() != 1 || hub.published[0] != r {
		t.Errorf("expected the stored report to be published once, got %d", hub.count())
	}
	if len(fwd.forwarded) != 1 {
		t.Errorf("forwarded %d events, want 1", len(fwd.forwarded))
	}
}

func TestIngest_ValidationFailureTouchesNothing(t *testing.T) {
	t.Parallel()
	store, hub, fwd := &mockStore{}, &mockHub{}, &mockForwarder{}
	c := NewCoordinator(store, hub, time.Second)
	c.SetForwarder(fwd)

	body := validBody()
	body["lat"] = 200.0

	r, err := c.Ingest(context.Background(), body)
	if r != nil {
		t.Errorf("expected nil report, got %+v", r)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if errors.Is(err, ErrStorageUnavailable) {
		t.Error("validation failure must not look like a storage failure")
	}

	var verr *validation.RequestValidationError
	if !errors.As(err, &verr) {
		t.Fatal("expected a *validation.RequestValidationError in the chain")
	}
	if verr.Error() != "lat must be less than or equal to 90" {
		t.Errorf("message = %q", verr.Error())
	}

	if store.appends != 0 || hub.count() != 0 || len(fwd.forwarded) != 0 {
		t.Errorf("rejected report leaked: appends=%d published=%d forwarded=%d",
			store.appends, hub.count(), len(fwd.forwarded))
	}
}

func TestIngest_StoreFailureIsNotBroadcast(t *testing.T) {
	t.Parallel()
	store := &mockStore{appendErr: errors.New("disk I/O error")}
	hub, fwd := &mockHub{}, &mockForwarder{}
	c := NewCoordinator(store, hub, time.Second)
	c.SetForwarder(fwd)

	_, err := c.Ingest(context.Background(), validBody())
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if errors.Is(err, ErrValidation) {
		t.Error("storage failure must not look like a validation failure")
	}
	if store.appends != 1 {
		t.Errorf("expected exactly one append attempt (no retry), got %d", store.appends)
	}
	if hub.count() != 0 || len(fwd.forwarded) != 0 {
		t.Error("unstored report must not be broadcast or forwarded")
	}
}

func TestIngest_StoreTimeout(t *testing.T) {
	t.Parallel()
	store := &mockStore{delay: time.Second}
	hub := &mockHub{}
	c := NewCoordinator(store, hub, 20*time.Millisecond)

	start := time.Now()
	_, err := c.Ingest(context.Background(), validBody())
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected the deadline in the chain, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Ingest took %v, timeout not applied", elapsed)
	}
	if hub.count() != 0 {
		t.Error("timed out report must not be broadcast")
	}
}

func TestIngest_ForwarderFailureIsAbsorbed(t *testing.T) {
	t.Parallel()
	store, hub := &mockStore{}, &mockHub{}
	c := NewCoordinator(store, hub, time.Second)
	c.SetForwarder(&mockForwarder{err: errors.New("queue full")})

	if _, err := c.Ingest(context.Background(), validBody()); err != nil {
		t.Fatalf("forwarder failure must not fail ingest: %v", err)
	}
	if hub.count() != 1 {
		t.Error("report should still be broadcast")
	}
}

func TestIngest_NilHub(t *testing.T) {
	t.Parallel()
	c := NewCoordinator(&mockStore{}, nil, 0)
	if c.storeTimeout != DefaultStoreTimeout {
		t.Errorf("storeTimeout = %v, want %v", c.storeTimeout, DefaultStoreTimeout)
	}
	if _, err := c.Ingest(context.Background(), validBody()); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
}

func TestLatest(t *testing.T) {
	t.Parallel()
	store := &mockStore{}
	c := NewCoordinator(store, &mockHub{}, time.Second)
	ctx := context.Background()

	reports, err := c.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(reports) != 0 {
		t.Errorf("expected empty result, got %d", len(reports))
	}

	for _, body := range []map[string]interface{}{
		{"deviceId": "b", "lat": 1.0, "lng": 1.0, "ts": "2026-01-01T00:00:10Z"},
		{"deviceId": "a", "lat": 2.0, "lng": 2.0, "ts": "2026-01-01T00:00:05Z"},
		{"deviceId": "b", "lat": 3.0, "lng": 3.0, "ts": "2026-01-01T00:00:01Z"}, // older, arrives later
	} {
		if _, err := c.Ingest(ctx, body); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
	}

	reports, err = c.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(reports) != 2 || reports[0].DeviceID != "a" || reports[1].DeviceID != "b" {
		t.Fatalf("unexpected latest set: %+v", reports)
	}
	if reports[1].Latitude != 1 {
		t.Errorf("device b lat = %v, want the newest-timestamp report (1)", reports[1].Latitude)
	}
}

func TestLatest_StoreFailure(t *testing.T) {
	t.Parallel()
	c := NewCoordinator(&mockStore{latestErr: errors.New("gone")}, nil, time.Second)

	if _, err := c.Latest(context.Background()); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestReady(t *testing.T) {
	t.Parallel()

	if err := NewCoordinator(&mockStore{}, nil, time.Second).Ready(context.Background()); err != nil {
		t.Errorf("Ready: %v", err)
	}
	err := NewCoordinator(&mockStore{pingErr: errors.New("down")}, nil, time.Second).Ready(context.Background())
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestIngest_ConcurrentDevices(t *testing.T) {
	t.Parallel()
	store, hub := &mockStore{}, &mockHub{}
	c := NewCoordinator(store, hub, time.Second)

	const devices, perDevice = 8, 25
	var wg sync.WaitGroup
	for d := 0; d < devices; d++ {
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			for i := 0; i < perDevice; i++ {
				body := map[string]interface{}{
					"deviceId": fmt.Sprintf("dev-%d", d),
					"lat":      float64(i),
					"lng":      0.0,
					"ts":       time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC).Format(time.RFC3339),
				}
				if _, err := c.Ingest(context.Background(), body); err != nil {
					t.Errorf("Ingest: %v", err)
				}
			}
		}(d)
	}
	wg.Wait()

	if store.count() != devices*perDevice || hub.count() != devices*perDevice {
		t.Fatalf("stored=%d published=%d, want %d", store.count(), hub.count(), devices*perDevice)
	}
	latest, err := c.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	for _, r := range latest {
		if r.Latitude != perDevice-1 {
			t.Errorf("%s: lat = %v, want %d", r.DeviceID, r.Latitude, perDevice-1)
		}
	}
}

func TestIngest_BroadcastFollowsInsertionOrder(t *testing.T) {
	t.Parallel()
	store, hub := &mockStore{}, &mockHub{}
	c := NewCoordinator(store, hub, 5*time.Second)

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := map[string]interface{}{"deviceId": "truck-1", "lat": float64(i) / 10, "lng": 0.0}
			if _, err := c.Ingest(context.Background(), body); err != nil {
				t.Errorf("Ingest: %v", err)
			}
		}(i)
	}
	wg.Wait()

	store.mu.Lock()
	defer store.mu.Unlock()
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if len(store.entries) != n || len(hub.published) != n {
		t.Fatalf("stored=%d published=%d, want %d", len(store.entries), len(hub.published), n)
	}
	for i := range store.entries {
		if store.entries[i].Latitude != hub.published[i].Latitude {
			t.Fatalf("position %d: stored lat %v but published lat %v", i, store.entries[i].Latitude, hub.published[i].Latitude)
		}
	}
}

func TestIngest_WaitForPreviousReportCountsAgainstTimeout(t *testing.T) {
	t.Parallel()
	store := &mockStore{}
	c := NewCoordinator(store, &mockHub{}, 50*time.Millisecond)

	// Another report is mid-commit.
	c.commit <- struct{}{}
	defer func() { <-c.commit }()

	start := time.Now()
	_, err := c.Ingest(context.Background(), validBody())
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("Ingest waited %v", time.Since(start))
	}
	if store.count() != 0 {
		t.Error("report stored after the timeout")
	}
}

func TestIngest_StrictFields(t *testing.T) {
	t.Parallel()
	store, hub := &mockStore{}, &mockHub{}
	c := NewCoordinator(store, hub, time.Second)

	body := validBody()
	body["foo"] = "bar"

	if _, err := c.Ingest(context.Background(), body); err != nil {
		t.Fatalf("lenient Ingest: %v", err)
	}

	c.SetStrictFields(true)
	_, err := c.Ingest(context.Background(), body)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	var verr *validation.RequestValidationError
	if !errors.As(err, &verr) || verr.Error() != "foo is not allowed" {
		t.Errorf("unexpected error %v", err)
	}
	if store.count() != 1 || hub.count() != 1 {
		t.Errorf("stored=%d published=%d, want the lenient report only", store.count(), hub.count())
	}
}
