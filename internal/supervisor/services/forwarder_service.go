// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/thejerf/suture/v4"
)

// EventForwarderRunner is satisfied by *eventbus.Forwarder.
type EventForwarderRunner interface {
	Serve(ctx context.Context) error
}

// EventForwarderService runs the outbound event forwarder. The forwarder
// closes its publisher when Serve returns, so it runs at most once.
type EventForwarderService struct {
	forwarder EventForwarderRunner
	name      string
}

// NewEventForwarderService wraps forwarder.
func NewEventForwarderService(forwarder EventForwarderRunner) *EventForwarderService {
	return &EventForwarderService{
		forwarder: forwarder,
		name:      "event-forwarder",
	}
}

// Serve implements suture.Service.
func (s *EventForwarderService) Serve(ctx context.Context) error {
	err := s.forwarder.Serve(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: event forwarder stopped: %w", suture.ErrDoNotRestart, err)
	}
	return suture.ErrDoNotRestart
}

// String implements fmt.Stringer for suture's logs.
func (s *EventForwarderService) String() string {
	return s.name
}
