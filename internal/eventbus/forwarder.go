// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package eventbus

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/cartotrack/internal/logging"
	"github.com/tomtom215/cartotrack/internal/metrics"
	"github.com/tomtom215/cartotrack/internal/models"
)

// ErrQueueFull is returned by Forward when the event could not be queued.
var ErrQueueFull = errors.New("event queue full")

// ErrForwarderStopped is returned by Forward once Serve has returned.
var ErrForwarderStopped = errors.New("event forwarder stopped")

// DefaultBufferSize is used when the configured buffer is not positive.
const DefaultBufferSize = 1024

// ForwarderStats is a snapshot of forwarder counters.
type ForwarderStats struct {
	Queued    int64
	Published int64
	Failed    int64
	Dropped   int64
}

// Forwarder queues position events and publishes them from one goroutine.
type Forwarder struct {
	publisher *Publisher
	topic     string
	queue     chan *PositionEvent
	done      chan struct{}
	stopped   atomic.Bool
	now       func() time.Time

	queued    atomic.Int64
	published atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// NewForwarder creates a forwarder publishing to topic.
func NewForwarder(pub *Publisher, topic string, bufferSize int) *Forwarder {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Forwarder{
		publisher: pub,
		topic:     topic,
		queue:     make(chan *PositionEvent, bufferSize),
		done:      make(chan struct{}),
		now:       time.Now,
	}
}

// Forward enqueues an event for r. It never blocks.
func (f *Forwarder) Forward(r *models.TelemetryReport) error {
	if f.stopped.Load() {
		return ErrForwarderStopped
	}

	select {
	case f.queue <- NewPositionEvent(r, f.now()):
		f.queued.Add(1)
		return nil
	default:
		f.dropped.Add(1)
		metrics.RecordEventForward("dropped")
		return ErrQueueFull
	}
}

// Serve publishes queued events until ctx is done, then closes the publisher.
// Events still queued at shutdown are published best effort before returning.
func (f *Forwarder) Serve(ctx context.Context) error {
	defer close(f.done)
	defer func() {
		if err := f.publisher.Close(); err != nil {
			logging.Warn().Err(err).Msg("failed to close event publisher")
		}
	}()

	logging.Info().Str("topic", f.topic).Msg("event forwarder started")

	for {
		select {
		case e := <-f.queue:
			f.publish(e)
		case <-ctx.Done():
			f.stopped.Store(true)
			f.drain()
			logging.Info().
				Int64("published", f.published.Load()).
				Int64("failed", f.failed.Load()).
				Int64("dropped", f.dropped.Load()).
				Msg("event forwarder stopped")
			return ctx.Err()
		}
	}
}

// drain publishes whatever is already queued without waiting for more.
func (f *Forwarder) drain() {
	for {
		select {
		case e := <-f.queue:
			f.publish(e)
		default:
			return
		}
	}
}

func (f *Forwarder) publish(e *PositionEvent) {
	msg, err := e.ToMessage()
	if err != nil {
		f.failed.Add(1)
		metrics.RecordEventForward("failed")
		logging.Error().Err(err).Str("event_id", e.EventID).Msg("failed to encode position event")
		return
	}

	err = f.publisher.Publish(f.topic, msg)
	switch {
	case err == nil:
		f.published.Add(1)
		metrics.RecordEventForward("published")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		f.failed.Add(1)
		metrics.RecordEventForward("rejected")
		logging.Debug().Str("event_id", e.EventID).Msg("event publisher circuit open, event skipped")
	default:
		f.failed.Add(1)
		metrics.RecordEventForward("failed")
		logging.Warn().Err(err).Str("event_id", e.EventID).Str("device_id", e.DeviceID).Msg("failed to publish position event")
	}
}

// Done is closed when Serve returns.
func (f *Forwarder) Done() <-chan struct{} {
	return f.done
}

// Stats returns the current counters.
func (f *Forwarder) Stats() ForwarderStats {
	return ForwarderStats{
		Queued:    f.queued.Load(),
		Published: f.published.Load(),
		Failed:    f.failed.Load(),
		Dropped:   f.dropped.Load(),
	}
}
