// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

/*
Package services provides suture.Service wrappers for Cartotrack components.

Each wrapper translates a component's own lifecycle into suture's
context-aware Serve(ctx) error and names itself through fmt.Stringer so the
supervisor's event log is readable.

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server; ListenAndServe runs until ctx is canceled, then
    Shutdown drains connections within the configured timeout

WebSocket Hub (WebSocketHubService):
  - Delegates to websocket.Hub.RunWithContext, which disconnects every
    subscriber on shutdown

Event Forwarder (EventForwarderService):
  - Runs eventbus.Forwarder.Serve, publishing accepted positions to the
    configured topic. The forwarder owns its publisher, so it is never
    restarted once it returns

Checkpoint Scheduler (CheckpointService):
  - robfig/cron schedule that asks the position store to checkpoint
    (DuckDB CHECKPOINT, Badger value-log GC)

# Example

	tree.AddDataService(services.NewCheckpointService(store, cfg.Database.CheckpointSchedule))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(services.NewEventForwarderService(forwarder))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
*/
package services
