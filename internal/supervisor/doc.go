// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

/*
Package supervisor runs Cartotrack's long-lived services under a suture v4
supervisor tree.

	root ("cartotrack")
	├── data-layer
	│   └── CheckpointService
	├── messaging-layer
	│   ├── WebSocketHubService
	│   └── EventForwarderService (events.enabled)
	└── api-layer
	    └── HTTPServerService

Each layer restarts its own children with suture's backoff, so a forwarder
that cannot reach NATS never takes the HTTP server down with it. Supervisor
events are logged through sutureslog, fed by logging.NewSlogLogger so they
land in the same zerolog stream as everything else.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx) // returns when ctx is canceled

Service wrappers live in the services subpackage.
*/
package supervisor
