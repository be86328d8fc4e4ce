// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package eventbus

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/cartotrack/internal/models"
)

// Metadata keys set on every message.
const (
	MetadataDeviceID  = "device_id"
	MetadataEventType = "event_type"
)

// EventTypePosition is the only event type published.
const EventTypePosition = "position.reported"

// PositionEvent is the outbound form of an accepted report. The report
// fields use the same names as the ingest body and the live updates.
type PositionEvent struct {
	EventID    string    `json:"eventId"`
	Type       string    `json:"type"`
	DeviceID   string    `json:"deviceId"`
	Latitude   float64   `json:"lat"`
	Longitude  float64   `json:"lng"`
	Speed      *float64  `json:"speed"`
	Heading    *float64  `json:"heading"`
	Timestamp  time.Time `json:"ts"`
	AcceptedAt time.Time `json:"acceptedAt"`
}

// NewPositionEvent wraps r with a fresh event ID.
func NewPositionEvent(r *models.TelemetryReport, acceptedAt time.Time) *PositionEvent {
	return &PositionEvent{
		EventID:    uuid.New().String(),
		Type:       EventTypePosition,
		DeviceID:   r.DeviceID,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		Speed:      r.Speed,
		Heading:    r.Heading,
		Timestamp:  r.Timestamp,
		AcceptedAt: acceptedAt.UTC(),
	}
}

// ToMessage encodes e as a Watermill message whose UUID is the event ID.
func (e *PositionEvent) ToMessage() (*message.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(e.EventID, data)
	msg.Metadata.Set(MetadataDeviceID, e.DeviceID)
	msg.Metadata.Set(MetadataEventType, e.Type)
	return msg, nil
}

// DecodePositionEvent reverses ToMessage.
func DecodePositionEvent(msg *message.Message) (*PositionEvent, error) {
	var e PositionEvent
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &e, nil
}
