// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/cartotrack/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // clients only ever send pings
)

// clientIDCounter orders clients by subscription time.
var clientIDCounter atomic.Uint64

// Client is one subscriber. conn is nil for in-process subscribers, which
// read Messages() directly.
type Client struct {
	id        uint64
	sessionID string
	hub       *Hub
	conn      *websocket.Conn
	send      chan Message
	closeOnce sync.Once
}

// NewClient creates a client with a queue sized for hub.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:        clientIDCounter.Add(1),
		sessionID: uuid.New().String(),
		hub:       hub,
		conn:      conn,
		send:      make(chan Message, hub.QueueSize()),
	}
}

// ID returns the client's ordering ID.
func (c *Client) ID() uint64 {
	return c.id
}

// SessionID returns a random identifier for log correlation.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Messages exposes the queue. It is closed when the client is unsubscribed.
func (c *Client) Messages() <-chan Message {
	return c.send
}

// closeSend is only called by the hub with its lock held.
func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// readPump consumes frames until the connection fails, answering pings.
// Leaving it unsubscribes the client.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unsubscribe(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logging.Warn().Err(err).Str("session_id", c.sessionID).Msg("unexpected websocket close")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == MessageTypePing {
			c.hub.sendTo(c, Message{Type: MessageTypePong})
		}
	}
}

// writePump drains the queue to the socket and keeps the connection alive
// with pings. A closed queue sends a close frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				logging.Error().Err(err).Str("type", msg.Type).Msg("failed to encode websocket message")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logging.Debug().Err(err).Str("session_id", c.sessionID).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start runs the pumps for a connected client. Subscribe first.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
