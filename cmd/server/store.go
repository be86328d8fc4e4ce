// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/cartotrack/internal/config"
	"github.com/tomtom215/cartotrack/internal/database"
	"github.com/tomtom215/cartotrack/internal/ingest"
	"github.com/tomtom215/cartotrack/internal/supervisor/services"
	"github.com/tomtom215/cartotrack/internal/tracklog"
)

// startupPingTimeout bounds the store check before the server starts.
const startupPingTimeout = 10 * time.Second

// positionStore is what main needs from either backend.
type positionStore interface {
	ingest.Store
	services.Checkpointer
	Close() error
}

// openStore opens the configured backend.
func openStore(cfg *config.Config) (positionStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendDuckDB, "":
		db, err := database.New(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open duckdb store: %w", err)
		}
		return db, nil
	case config.BackendBadger:
		l, err := tracklog.Open(cfg.Tracklog)
		if err != nil {
			return nil, fmt.Errorf("open badger store: %w", err)
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// pingStore verifies the store answers before any request is accepted.
func pingStore(ctx context.Context, store positionStore) error {
	ctx, cancel := context.WithTimeout(ctx, startupPingTimeout)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("%s store unreachable: %w", store.Backend(), err)
	}
	return nil
}
