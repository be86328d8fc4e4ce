// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

// Package tracklog is an embedded position store built on BadgerDB, for
// deployments that do not want the DuckDB file (storage.backend: badger).
//
// Reports are written under "report:" followed by the big-endian insertion
// marker, so key order is insertion order. Nothing is ever overwritten.
// LatestPerDevice reduces a snapshot of the whole log on every call.
package tracklog

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"

	"github.com/tomtom215/cartotrack/internal/config"
	"github.com/tomtom215/cartotrack/internal/logging"
	"github.com/tomtom215/cartotrack/internal/models"
)

// ErrStorageUnavailable wraps every failure to read from or commit to the log.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("tracklog closed")

const (
	prefixReport = "report:"
	keySequence  = "meta:seq"

	// sequenceBandwidth is how many markers Badger leases per disk write.
	// Unused leased markers are skipped after a restart, which keeps them
	// increasing.
	sequenceBandwidth = 1000
)

// record is the stored value; the marker lives in the key.
type record struct {
	DeviceID   string    `json:"device_id"`
	Latitude   float64   `json:"lat"`
	Longitude  float64   `json:"lng"`
	Speed      *float64  `json:"speed,omitempty"`
	Heading    *float64  `json:"heading,omitempty"`
	ReportedAt time.Time `json:"reported_at"`
	ReceivedAt time.Time `json:"received_at"`
}

// Log is the BadgerDB-backed position store.
type Log struct {
	db  *badger.DB
	seq *badger.Sequence
	cfg config.TracklogConfig

	// writeSlot makes marker allocation and commit one step, so markers are
	// committed in increasing order. Waiting for it honors ctx.
	writeSlot chan struct{}

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the log described by cfg.
func Open(cfg config.TracklogConfig) (*Log, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.Compression = options.Snappy
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	seq, err := db.GetSequence([]byte(keySequence), sequenceBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sequence: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("Track log opened")

	return &Log{db: db, seq: seq, cfg: cfg, writeSlot: make(chan struct{}, 1)}, nil
}

func reportKey(seq int64) []byte {
	k := make([]byte, len(prefixReport)+8)
	copy(k, prefixReport)
	binary.BigEndian.PutUint64(k[len(prefixReport):], uint64(seq))
	return k
}

func seqFromKey(k []byte) int64 {
	return int64(binary.BigEndian.Uint64(k[len(prefixReport):]))
}

func (l *Log) checkOpen() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, ErrClosed)
	}
	return nil
}

// Append writes r under the next marker in a single Badger transaction.
func (l *Log) Append(ctx context.Context, r *models.TelemetryReport) (models.StoreRef, error) {
	if err := l.checkOpen(); err != nil {
		return models.StoreRef{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.StoreRef{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	data, err := json.Marshal(&record{
		DeviceID:   r.DeviceID,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		Speed:      r.Speed,
		Heading:    r.Heading,
		ReportedAt: models.NormalizeTimestamp(r.Timestamp),
		ReceivedAt: time.Now().UTC(),
	})
	if err != nil {
		return models.StoreRef{}, fmt.Errorf("marshal report: %w", err)
	}

	select {
	case l.writeSlot <- struct{}{}:
	case <-ctx.Done():
		return models.StoreRef{}, fmt.Errorf("%w: waiting for writer: %w", ErrStorageUnavailable, ctx.Err())
	}
	defer func() { <-l.writeSlot }()

	if err := l.checkOpen(); err != nil {
		return models.StoreRef{}, err
	}

	next, err := l.seq.Next()
	if err != nil {
		return models.StoreRef{}, fmt.Errorf("%w: allocate marker: %w", ErrStorageUnavailable, err)
	}
	seq := int64(next) + 1

	if err := ctx.Err(); err != nil {
		return models.StoreRef{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	err = l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(reportKey(seq), data)
	})
	if err != nil {
		return models.StoreRef{}, fmt.Errorf("%w: write report: %w", ErrStorageUnavailable, err)
	}
	return models.StoreRef{Seq: seq}, nil
}

// LatestPerDevice scans a consistent snapshot of the log and returns the
// newest entry of each device, ordered by device ID.
func (l *Log) LatestPerDevice(ctx context.Context) ([]models.PositionEntry, error) {
	if err := l.checkOpen(); err != nil {
		return nil, err
	}

	latest := make(map[string]*models.PositionEntry)
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Prefix = []byte(prefixReport)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()

			var rec record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode %x: %w", item.Key(), err)
			}

			e := &models.PositionEntry{
				TelemetryReport: models.TelemetryReport{
					DeviceID:  rec.DeviceID,
					Latitude:  rec.Latitude,
					Longitude: rec.Longitude,
					Speed:     rec.Speed,
					Heading:   rec.Heading,
					Timestamp: rec.ReportedAt.UTC(),
				},
				Seq: seqFromKey(item.KeyCopy(nil)),
			}
			if cur, ok := latest[e.DeviceID]; !ok || e.Newer(cur) {
				latest[e.DeviceID] = e
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scan reports: %w", ErrStorageUnavailable, err)
	}

	out := make([]models.PositionEntry, 0, len(latest))
	for _, e := range latest {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

// CountReports returns the number of stored reports.
func (l *Log) CountReports(ctx context.Context) (int64, error) {
	if err := l.checkOpen(); err != nil {
		return 0, err
	}
	var n int64
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixReport)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count reports: %w", ErrStorageUnavailable, err)
	}
	return n, nil
}

// Ping reports whether the log is open and readable.
func (l *Log) Ping(ctx context.Context) error {
	if err := l.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if err := l.db.View(func(*badger.Txn) error { return nil }); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// Checkpoint runs one round of value-log garbage collection. Badger
// returns ErrNoRewrite when there was nothing to collect and ErrRejected
// when a collection is already running; neither is an error.
func (l *Log) Checkpoint(ctx context.Context) error {
	if err := l.checkOpen(); err != nil {
		return err
	}
	if l.cfg.InMemory {
		return nil
	}
	if err := l.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) {
		return fmt.Errorf("value log gc: %w", err)
	}
	return nil
}

// Backend names the store implementation for health output.
func (l *Log) Backend() string {
	return "badger"
}

// Close releases the marker lease and closes the database.
func (l *Log) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	// Wait for an in-flight append to finish.
	l.writeSlot <- struct{}{}
	defer func() { <-l.writeSlot }()

	if err := l.seq.Release(); err != nil {
		logging.Warn().Err(err).Msg("Failed to release track log sequence")
	}
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	logging.Info().Msg("Track log closed")
	return nil
}
