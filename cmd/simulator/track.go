// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package main

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Default start point and per-step jitter in degrees (about 17 m).
const (
	defaultStartLat = 37.9144
	defaultStartLng = 40.2306
	defaultJitter   = 0.00015

	// jitterBias skews each step slightly north-east so the track drifts
	// instead of circling the start point.
	jitterBias = 0.01
)

// Report is the ingest body the simulator sends.
type Report struct {
	DeviceID string   `json:"deviceId"`
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	Speed    *float64 `json:"speed,omitempty"`
	Heading  *float64 `json:"heading,omitempty"`
	TS       string   `json:"ts,omitempty"`
}

// Track is a random walk with speed and heading derived from consecutive
// points.
type Track struct {
	deviceID string
	pos      orb.Point
	jitter   float64
	rng      *rand.Rand
}

// NewTrack starts a walk at lat/lng. seed makes the walk reproducible.
func NewTrack(deviceID string, lat, lng, jitter float64, seed uint64) *Track {
	return &Track{
		deviceID: deviceID,
		pos:      orb.Point{lng, lat},
		jitter:   jitter,
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (t *Track) step(v float64) float64 {
	return v + (t.rng.Float64()-jitterBias)*t.jitter
}

// Next moves one step and returns the report for the new position. elapsed
// is the time since the previous report and is used for the speed.
func (t *Track) Next(now time.Time, elapsed time.Duration) Report {
	prev := t.pos
	next := orb.Point{clamp(t.step(prev.Lon()), -180, 180), clamp(t.step(prev.Lat()), -90, 90)}
	t.pos = next

	r := Report{
		DeviceID: t.deviceID,
		Lat:      next.Lat(),
		Lng:      next.Lon(),
		TS:       now.UTC().Format(time.RFC3339Nano),
	}
	if elapsed > 0 {
		kmh := geo.Distance(prev, next) / elapsed.Seconds() * 3.6
		heading := math.Mod(geo.Bearing(prev, next)+360, 360)
		r.Speed = &kmh
		r.Heading = &heading
	}
	return r
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
