// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/cartotrack/internal/logging"
	"github.com/tomtom215/cartotrack/internal/models"
)

const insertReportSQL = `
INSERT INTO telemetry_reports (device_id, latitude, longitude, speed, heading, reported_at, received_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING seq`

// latestPerDeviceSQL keeps, per device, the row with the greatest
// reported_at and, among equal timestamps, the greatest seq.
const latestPerDeviceSQL = `
SELECT device_id, latitude, longitude, speed, heading, reported_at, seq
FROM telemetry_reports
QUALIFY ROW_NUMBER() OVER (PARTITION BY device_id ORDER BY reported_at DESC, seq DESC) = 1
ORDER BY device_id ASC`

// Append durably records r and returns its insertion marker. The
// insert runs in its own transaction; on any error nothing is written.
func (db *DB) Append(ctx context.Context, r *models.TelemetryReport) (models.StoreRef, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if err := db.acquireWrite(ctx); err != nil {
		return models.StoreRef{}, fmt.Errorf("%w: waiting for writer: %w", ErrStorageUnavailable, err)
	}
	defer db.releaseWrite()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return models.StoreRef{}, fmt.Errorf("%w: begin append: %w", ErrStorageUnavailable, err)
	}

	var seq int64
	err = tx.QueryRowContext(ctx, insertReportSQL,
		r.DeviceID,
		r.Latitude,
		r.Longitude,
		nullableFloat(r.Speed),
		nullableFloat(r.Heading),
		models.NormalizeTimestamp(r.Timestamp),
		time.Now().UTC(),
	).Scan(&seq)
	if err != nil {
		_ = tx.Rollback()
		if isConnectionError(err) {
			logging.Error().Err(err).Msg("Position store connection lost")
		}
		return models.StoreRef{}, fmt.Errorf("%w: insert report: %w", ErrStorageUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return models.StoreRef{}, fmt.Errorf("%w: commit report: %w", ErrStorageUnavailable, err)
	}
	return models.StoreRef{Seq: seq}, nil
}

// LatestPerDevice returns one entry per device, ordered by device ID.
func (db *DB) LatestPerDevice(ctx context.Context) ([]models.PositionEntry, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, latestPerDeviceSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: query latest positions: %w", ErrStorageUnavailable, err)
	}
	defer closeWithLog(rows, "rows")

	entries := make([]models.PositionEntry, 0)
	for rows.Next() {
		var (
			e       models.PositionEntry
			speed   sql.NullFloat64
			heading sql.NullFloat64
		)
		if err := rows.Scan(&e.DeviceID, &e.Latitude, &e.Longitude, &speed, &heading, &e.Timestamp, &e.Seq); err != nil {
			return nil, fmt.Errorf("%w: scan latest position: %w", ErrStorageUnavailable, err)
		}
		e.Speed = floatPtr(speed)
		e.Heading = floatPtr(heading)
		e.Timestamp = e.Timestamp.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate latest positions: %w", ErrStorageUnavailable, err)
	}
	return entries, nil
}

// CountReports returns the number of stored reports.
func (db *DB) CountReports(ctx context.Context) (int64, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var n int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM telemetry_reports`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count reports: %w", ErrStorageUnavailable, err)
	}
	return n, nil
}

func nullableFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
