// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

/*
Package eventbus forwards accepted position reports to other systems as
PositionEvent messages over Watermill.

The Forwarder sits behind the ingest path: Forward only enqueues, and a
single goroutine (Serve, run under the supervisor) publishes. When the
queue is full new events are dropped and counted. Events are at-most-once:
a publish that fails, or is rejected by the open circuit breaker, is logged
and not retried.

The production transport is core NATS through watermill-nats. Tests use the
in-process gochannel Pub/Sub.
*/
package eventbus
