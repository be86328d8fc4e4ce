// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package api

import (
	"context"
	"time"

	"github.com/tomtom215/cartotrack/internal/config"
	"github.com/tomtom215/cartotrack/internal/models"
	ws "github.com/tomtom215/cartotrack/internal/websocket"
)

// TelemetryService is the part of ingest.Coordinator the handlers use.
type TelemetryService interface {
	Ingest(ctx context.Context, raw map[string]interface{}) (*models.TelemetryReport, error)
	Latest(ctx context.Context) ([]models.TelemetryReport, error)
	Ready(ctx context.Context) error
	Backend() string
}

// Handler serves every HTTP endpoint.
type Handler struct {
	service      TelemetryService
	wsHub        *ws.Hub
	maxBodyBytes int64
	origins      []string
	startTime    time.Time
}

// NewHandler creates a handler. hub may be nil, in which case /ws answers 503.
func NewHandler(service TelemetryService, hub *ws.Hub, cfg *config.Config) *Handler {
	maxBody := cfg.Ingest.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &Handler{
		service:      service,
		wsHub:        hub,
		maxBodyBytes: maxBody,
		origins:      cfg.Security.CORSOrigins,
		startTime:    time.Now(),
	}
}
