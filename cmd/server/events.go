// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package main

import (
	"github.com/tomtom215/cartotrack/internal/config"
	"github.com/tomtom215/cartotrack/internal/eventbus"
	"github.com/tomtom215/cartotrack/internal/logging"
)

// initEvents builds the NATS forwarder, or returns nil when events are disabled.
// The NATS connection retries in the background, so an unreachable broker
// does not block startup.
func initEvents(cfg config.EventsConfig) (*eventbus.Forwarder, error) {
	if !cfg.Enabled {
		logging.Info().Msg("Event forwarding disabled (EVENTS_ENABLED=false)")
		return nil, nil
	}

	pub, err := eventbus.NewNATSPublisher(cfg, eventbus.NewLoggerAdapter())
	if err != nil {
		return nil, err
	}

	logging.Info().
		Str("nats_url", cfg.NATSURL).
		Str("topic", cfg.Topic).
		Int("buffer_size", cfg.BufferSize).
		Msg("Event forwarding enabled")
	return eventbus.NewForwarder(pub, cfg.Topic, cfg.BufferSize), nil
}
