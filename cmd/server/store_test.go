// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package main

import (
	"context"
	"io"
	"testing"

	"github.com/tomtom215/cartotrack/internal/config"
	"github.com/tomtom215/cartotrack/internal/logging"
)

//nolint:gochecknoinits // quiet logging for the whole package
func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

func TestOpenStore(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		backend string
		wantErr bool
	}{
		{
			name:    "duckdb in memory",
			cfg:     config.Config{Storage: config.StorageConfig{Backend: config.BackendDuckDB}, Database: config.DatabaseConfig{Path: ":memory:"}},
			backend: config.BackendDuckDB,
		},
		{
			name:    "empty backend defaults to duckdb",
			cfg:     config.Config{Database: config.DatabaseConfig{Path: ":memory:"}},
			backend: config.BackendDuckDB,
		},
		{
			name:    "badger in memory",
			cfg:     config.Config{Storage: config.StorageConfig{Backend: config.BackendBadger}, Tracklog: config.TracklogConfig{InMemory: true}},
			backend: config.BackendBadger,
		},
		{
			name:    "unknown backend",
			cfg:     config.Config{Storage: config.StorageConfig{Backend: "mysql"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := openStore(&tt.cfg)
			if tt.wantErr {
				if err == nil {
					_ = store.Close()
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("openStore: %v", err)
			}
			defer store.Close()

			if store.Backend() != tt.backend {
				t.Errorf("backend = %q, want %q", store.Backend(), tt.backend)
			}
			if err := pingStore(context.Background(), store); err != nil {
				t.Errorf("pingStore: %v", err)
			}
		})
	}
}

func TestPingStoreAfterClose(t *testing.T) {
	store, err := openStore(&config.Config{Storage: config.StorageConfig{Backend: config.BackendBadger}, Tracklog: config.TracklogConfig{InMemory: true}})
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	_ = store.Close()

	if err := pingStore(context.Background(), store); err == nil {
		t.Error("expected ping to fail on a closed store")
	}
}

func TestInitEventsDisabled(t *testing.T) {
	f, err := initEvents(config.EventsConfig{Enabled: false})
	if err != nil || f != nil {
		t.Errorf("initEvents(disabled) = %v, %v; want nil, nil", f, err)
	}
}
