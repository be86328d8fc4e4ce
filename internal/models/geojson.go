// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package models

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Point returns the report position as an orb.Point (lng, lat order).
func (r *TelemetryReport) Point() orb.Point {
	return orb.Point{r.Longitude, r.Latitude}
}

// PositionsFeatureCollection renders latest positions as GeoJSON points so
// map clients can load /latest directly as a layer.
func PositionsFeatureCollection(reports []TelemetryReport) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range reports {
		r := &reports[i]
		f := geojson.NewFeature(r.Point())
		f.ID = r.DeviceID
		f.Properties["deviceId"] = r.DeviceID
		f.Properties["ts"] = r.Timestamp.UTC().Format(time.RFC3339Nano)
		if r.Speed != nil {
			f.Properties["speed"] = *r.Speed
		} else {
			f.Properties["speed"] = nil
		}
		if r.Heading != nil {
			f.Properties["heading"] = *r.Heading
		} else {
			f.Properties["heading"] = nil
		}
		fc.Append(f)
	}
	return fc
}
