// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/cartotrack/internal/logging"
	"github.com/tomtom215/cartotrack/internal/metrics"
	"github.com/tomtom215/cartotrack/internal/models"
	"github.com/tomtom215/cartotrack/internal/validation"
	"github.com/tomtom215/cartotrack/internal/websocket"
)

// DefaultStoreTimeout bounds a single store call.
const DefaultStoreTimeout = 5 * time.Second

// Store is the durable position store. Implemented by *database.DB and
// *tracklog.Log.
type Store interface {
	Append(ctx context.Context, r *models.TelemetryReport) (models.StoreRef, error)
	LatestPerDevice(ctx context.Context) ([]models.PositionEntry, error)
	Ping(ctx context.Context) error
	Backend() string
}

// Broadcaster pushes accepted reports to live subscribers.
type Broadcaster interface {
	PublishReport(r *models.TelemetryReport) websocket.PublishResult
}

// Forwarder hands accepted reports to the outbound event bus. It must not
// block on the transport.
type Forwarder interface {
	Forward(r *models.TelemetryReport) error
}

// Coordinator owns the ingest pipeline and the latest-position query.
type Coordinator struct {
	store        Store
	hub          Broadcaster
	forwarder    Forwarder
	storeTimeout time.Duration
	strict       bool
	now          func() time.Time

	// commit is held from Append until the report is published, so
	// broadcast order matches insertion order. It is a channel so waiting
	// for it honors the store deadline.
	commit chan struct{}
}

// NewCoordinator creates a coordinator. hub may be nil when nothing listens
// for live updates; storeTimeout <= 0 uses DefaultStoreTimeout.
func NewCoordinator(store Store, hub Broadcaster, storeTimeout time.Duration) *Coordinator {
	if storeTimeout <= 0 {
		storeTimeout = DefaultStoreTimeout
	}
	return &Coordinator{
		store:        store,
		hub:          hub,
		storeTimeout: storeTimeout,
		now:          time.Now,
		commit:       make(chan struct{}, 1),
	}
}

// SetStrictFields makes Ingest reject reports with unknown keys.
func (c *Coordinator) SetStrictFields(strict bool) {
	c.strict = strict
}

// SetForwarder enables outbound events for accepted reports.
func (c *Coordinator) SetForwarder(f Forwarder) {
	c.forwarder = f
}

// Backend names the store in use.
func (c *Coordinator) Backend() string {
	return c.store.Backend()
}

// Ingest validates raw, appends it, broadcasts it and forwards it.
//
// The returned error wraps ErrValidation or ErrStorageUnavailable. On
// success the normalized report is returned.
func (c *Coordinator) Ingest(ctx context.Context, raw map[string]interface{}) (*models.TelemetryReport, error) {
	receivedAt := c.now()

	parse := validation.ParseTelemetryReport
	if c.strict {
		parse = validation.ParseTelemetryReportStrict
	}
	report, verr := parse(raw, receivedAt)
	if verr != nil {
		metrics.RecordIngest(metrics.OutcomeRejected, 0)
		logging.Ctx(ctx).Debug().Str("reason", verr.Error()).Msg("telemetry report rejected")
		return nil, fmt.Errorf("%w: %w", ErrValidation, verr)
	}

	ctx = logging.ContextWithDeviceID(ctx, report.DeviceID)

	if err := c.persistAndPublish(ctx, report); err != nil {
		metrics.RecordIngest(metrics.OutcomeStorageUnavailable, 0)
		logging.Ctx(ctx).Warn().Err(err).Msg("telemetry report not stored")
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	c.forward(ctx, report)

	metrics.RecordIngest(metrics.OutcomeAccepted, time.Since(receivedAt))
	return report, nil
}

// persistAndPublish appends report and, once committed, publishes it before
// the next report may be appended. Waiting for the previous report counts
// against the store timeout.
func (c *Coordinator) persistAndPublish(ctx context.Context, report *models.TelemetryReport) error {
	storeCtx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()

	select {
	case c.commit <- struct{}{}:
	case <-storeCtx.Done():
		return fmt.Errorf("waiting for previous report: %w", storeCtx.Err())
	}
	defer func() { <-c.commit }()

	if err := c.persist(storeCtx, report); err != nil {
		return err
	}
	c.broadcast(ctx, report)
	return nil
}

func (c *Coordinator) persist(storeCtx context.Context, report *models.TelemetryReport) error {
	start := time.Now()
	ref, err := c.store.Append(storeCtx, report)
	metrics.RecordStoreOperation(c.store.Backend(), "append", time.Since(start), err)
	if err != nil {
		return err
	}

	logging.Ctx(storeCtx).Debug().Int64("seq", ref.Seq).Msg("telemetry report stored")
	return nil
}

// broadcast never fails the request; per-subscriber outcomes are counted by the hub.
func (c *Coordinator) broadcast(ctx context.Context, report *models.TelemetryReport) {
	if c.hub == nil {
		return
	}
	res := c.hub.PublishReport(report)
	if res.Dropped > 0 || res.Disconnected > 0 {
		logging.Ctx(ctx).Debug().
			Int("delivered", res.Delivered).
			Int("dropped", res.Dropped).
			Int("disconnected", res.Disconnected).
			Msg("live update not delivered to every subscriber")
	}
}

func (c *Coordinator) forward(ctx context.Context, report *models.TelemetryReport) {
	if c.forwarder == nil {
		return
	}
	if err := c.forwarder.Forward(report); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("position event not forwarded")
	}
}

// Latest returns the last known position of every device, ordered by device ID.
// It reads the store on every call.
func (c *Coordinator) Latest(ctx context.Context) ([]models.TelemetryReport, error) {
	storeCtx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()

	start := time.Now()
	entries, err := c.store.LatestPerDevice(storeCtx)
	metrics.RecordStoreOperation(c.store.Backend(), "latest", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	reports := make([]models.TelemetryReport, len(entries))
	for i := range entries {
		reports[i] = entries[i].TelemetryReport
	}
	return reports, nil
}

// Ready reports whether the store can be reached.
func (c *Coordinator) Ready(ctx context.Context) error {
	storeCtx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()

	if err := c.store.Ping(storeCtx); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}
