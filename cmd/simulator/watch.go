// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package main

import (
	"context"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/cartotrack/internal/logging"
)

type liveMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + "/ws"
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://") + "/ws"
	default:
		return base + "/ws"
	}
}

// watch prints every location event until ctx is done or the server closes
// the connection.
func watch(ctx context.Context, base string) error {
	url := wsURL(base)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	logging.Info().Str("url", url).Msg("connected")

	go func() {
		<-ctx.Done()
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return ctx.Err()
			}
			return err
		}

		var msg liveMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logging.Warn().Err(err).Msg("unreadable message")
			continue
		}
		if msg.Type != "location" {
			continue
		}
		logging.Info().RawJSON("data", msg.Data).Msg("location")
	}
}
