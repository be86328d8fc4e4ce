// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package database

import (
	"context"
	"fmt"
	"time"
)

func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// createTables creates the telemetry log. Timestamps are stored as UTC in
// plain TIMESTAMP columns so no ICU extension is required.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE SEQUENCE IF NOT EXISTS telemetry_seq START 1;`,
		`CREATE TABLE IF NOT EXISTS telemetry_reports (
			seq BIGINT PRIMARY KEY DEFAULT nextval('telemetry_seq'),
			device_id VARCHAR NOT NULL,
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			speed DOUBLE,
			heading DOUBLE,
			reported_at TIMESTAMP NOT NULL,
			received_at TIMESTAMP NOT NULL,
			CHECK (latitude BETWEEN -90 AND 90),
			CHECK (longitude BETWEEN -180 AND 180)
		);`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}
