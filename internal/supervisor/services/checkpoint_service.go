// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tomtom215/cartotrack/internal/logging"
	"github.com/tomtom215/cartotrack/internal/metrics"
)

// checkpointTimeout bounds a single scheduled checkpoint.
const checkpointTimeout = 2 * time.Minute

// Checkpointer is satisfied by *database.DB and *tracklog.Log.
type Checkpointer interface {
	Checkpoint(ctx context.Context) error
	Backend() string
}

// CheckpointService checkpoints the position store on a cron schedule.
type CheckpointService struct {
	store    Checkpointer
	schedule string
	name     string
}

// NewCheckpointService creates the service. schedule uses the standard
// five-field cron syntax or descriptors such as "@every 15m".
func NewCheckpointService(store Checkpointer, schedule string) *CheckpointService {
	return &CheckpointService{
		store:    store,
		schedule: schedule,
		name:     "store-checkpoint",
	}
}

// Serve implements suture.Service. Runs never overlap; a checkpoint still in
// progress at shutdown is allowed to finish.
func (s *CheckpointService) Serve(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.schedule, func() { s.runCheckpoint(ctx) }); err != nil {
		return fmt.Errorf("invalid checkpoint schedule %q: %w", s.schedule, err)
	}

	c.Start()
	logging.Info().Str("backend", s.store.Backend()).Str("schedule", s.schedule).Msg("Checkpoint scheduler started")

	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}

func (s *CheckpointService) runCheckpoint(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), checkpointTimeout)
	defer cancel()

	start := time.Now()
	err := s.store.Checkpoint(runCtx)
	metrics.RecordCheckpoint(s.store.Backend(), err)
	if err != nil {
		logging.Warn().Err(err).Str("backend", s.store.Backend()).Msg("Store checkpoint failed")
		return
	}
	logging.Debug().Str("backend", s.store.Backend()).Dur("duration", time.Since(start)).Msg("Store checkpoint completed")
}

// String implements fmt.Stringer for suture's logs.
func (s *CheckpointService) String() string {
	return s.name
}
