// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package supervisor

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/cartotrack/internal/logging"
)

// countingService fails its first failures runs, then blocks until canceled.
type countingService struct {
	name     string
	failures int32
	starts   atomic.Int32
}

func (s *countingService) Serve(ctx context.Context) error {
	if s.starts.Add(1) <= s.failures {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *countingService) String() string { return s.name }

func newTestTree(t *testing.T, cfg TreeConfig) *SupervisorTree {
	t.Helper()
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
	tree, err := NewSupervisorTree(logging.NewSlogLogger(), cfg)
	if err != nil {
		t.Fatalf("NewSupervisorTree: %v", err)
	}
	return tree
}

func TestNewSupervisorTree_Defaults(t *testing.T) {
	tree := newTestTree(t, TreeConfig{})
	if tree.config != DefaultTreeConfig() {
		t.Errorf("config = %+v, want defaults", tree.config)
	}
	if tree.Root() == nil {
		t.Fatal("nil root")
	}

	custom := newTestTree(t, TreeConfig{FailureBackoff: time.Second})
	if custom.config.FailureBackoff != time.Second || custom.config.FailureThreshold != 5 {
		t.Errorf("partial config not merged: %+v", custom.config)
	}
}

func TestSupervisorTree_StartsEveryLayer(t *testing.T) {
	tree := newTestTree(t, TreeConfig{ShutdownTimeout: time.Second})

	svcs := []*countingService{{name: "data"}, {name: "messaging"}, {name: "api"}}
	tree.AddDataService(svcs[0])
	tree.AddMessagingService(svcs[1])
	tree.AddAPIService(svcs[2])

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop")
	}

	for _, s := range svcs {
		if s.starts.Load() != 1 {
			t.Errorf("%s started %d times", s.name, s.starts.Load())
		}
	}
	if report, err := tree.UnstoppedServiceReport(); err != nil || len(report) != 0 {
		t.Errorf("unstopped services: %v (%v)", report, err)
	}
}

func TestSupervisorTree_RestartIsolatedToLayer(t *testing.T) {
	tree := newTestTree(t, TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	flaky := &countingService{name: "forwarder", failures: 2}
	stable := &countingService{name: "http"}
	tree.AddMessagingService(flaky)
	tree.AddAPIService(stable)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	errCh := tree.ServeBackground(ctx)
	<-errCh

	if flaky.starts.Load() < 3 {
		t.Errorf("flaky service started %d times, want >= 3", flaky.starts.Load())
	}
	if stable.starts.Load() != 1 {
		t.Errorf("stable service restarted: %d starts", stable.starts.Load())
	}
}
