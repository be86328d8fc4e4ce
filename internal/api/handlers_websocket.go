// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/cartotrack/internal/logging"
	ws "github.com/tomtom215/cartotrack/internal/websocket"
)

const wsHandshakeTimeout = 10 * time.Second

// checkOrigin accepts requests without an Origin header (non-browser
// clients) and browser requests from an allowed origin.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.origins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	logging.Ctx(r.Context()).Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket origin rejected")
	return false
}

func (h *Handler) getUpgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		HandshakeTimeout: wsHandshakeTimeout,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkOrigin,
	}
}

// WebSocket upgrades the connection and subscribes it to live updates.
// A client only receives reports accepted after it subscribed.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		respondError(w, r, http.StatusServiceUnavailable, apiError(ErrCodeServiceUnavailable, "WebSocket service unavailable"), nil)
		return
	}

	conn, err := h.getUpgrader().Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	if !h.wsHub.Subscribe(client) {
		logging.Ctx(r.Context()).Debug().Msg("WebSocket client arrived after shutdown")
	}
	// With a closed queue the write pump sends a close frame and exits.
	client.Start()
}
