// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/cartotrack/internal/api"
	"github.com/tomtom215/cartotrack/internal/auth"
	"github.com/tomtom215/cartotrack/internal/config"
	"github.com/tomtom215/cartotrack/internal/ingest"
	"github.com/tomtom215/cartotrack/internal/logging"
	"github.com/tomtom215/cartotrack/internal/metrics"
	"github.com/tomtom215/cartotrack/internal/supervisor"
	"github.com/tomtom215/cartotrack/internal/supervisor/services"
	ws "github.com/tomtom215/cartotrack/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

//nolint:gocyclo // sequential startup
func run() int {
	cfg, err := config.Load()
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("version", version).
		Str("addr", cfg.Server.Addr()).
		Str("store", cfg.Storage.Backend).
		Msg("Starting Cartotrack")

	store, err := openStore(cfg)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to open position store")
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing position store")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pingStore(ctx, store); err != nil {
		logging.Error().Err(err).Msg("Position store is not reachable")
		return 1
	}
	logging.Info().Str("backend", store.Backend()).Msg("Position store ready")

	metrics.AppInfo.WithLabelValues(version, runtime.Version(), store.Backend()).Set(1)

	authenticator, err := auth.NewAPIKeyAuthenticator(cfg.Security)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to configure device authentication")
		return 1
	}
	if authenticator.Disabled() {
		logging.Warn().Msg("Device authentication is DISABLED (security.auth_disabled). Any client can post telemetry.")
	}
	for _, origin := range cfg.Security.CORSOrigins {
		if origin == "*" {
			logging.Warn().Msg("CORS_ORIGIN allows any origin, including for live updates. Set an explicit list in production.")
			break
		}
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (security.rate_limit_disabled)")
	}

	overflow, err := ws.ParseOverflowPolicy(cfg.Broadcast.OverflowPolicy)
	if err != nil {
		logging.Error().Err(err).Msg("Invalid broadcast overflow policy")
		return 1
	}
	hub := ws.NewHub(ws.HubConfig{QueueSize: cfg.Broadcast.QueueSize, Overflow: overflow})

	coordinator := ingest.NewCoordinator(store, hub, cfg.Ingest.StoreTimeout)
	coordinator.SetStrictFields(cfg.Ingest.StrictFields)

	forwarder, err := initEvents(cfg.Events)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize event forwarding")
		return 1
	}
	if forwarder != nil {
		coordinator.SetForwarder(forwarder)
	}

	handler := api.NewHandler(coordinator, hub, cfg)
	router := api.NewRouter(handler, authenticator, api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(cfg.Security)))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create supervisor tree")
		return 1
	}

	if cfg.Database.CheckpointSchedule != "" {
		tree.AddDataService(services.NewCheckpointService(store, cfg.Database.CheckpointSchedule))
	}
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	if forwarder != nil {
		tree.AddMessagingService(services.NewEventForwarderService(forwarder))
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	go trackUptime(ctx, time.Now())

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	exitCode := 0
	select {
	case <-ctx.Done():
	case err := <-errCh:
		// The tree only stops on its own when a service terminated it.
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
			exitCode = 1
		}
		cancel()
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	logging.Info().Msg("Cartotrack stopped")
	return exitCode
}

func trackUptime(ctx context.Context, start time.Time) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.AppUptime.Set(time.Since(start).Seconds())
		}
	}
}
