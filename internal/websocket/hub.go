// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

package websocket

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tomtom215/cartotrack/internal/logging"
	"github.com/tomtom215/cartotrack/internal/metrics"
	"github.com/tomtom215/cartotrack/internal/models"
)

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types.
const (
	MessageTypeLocation = "location"
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
)

// Message is one JSON frame on the socket.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// OverflowPolicy decides what happens when a client's queue is full.
type OverflowPolicy string

const (
	// OverflowDisconnect unsubscribes the slow client and closes its connection.
	OverflowDisconnect OverflowPolicy = "disconnect"
	// OverflowDropOldest discards the oldest queued message for that client.
	OverflowDropOldest OverflowPolicy = "drop_oldest"
)

// DefaultQueueSize is the per-client send queue length.
const DefaultQueueSize = 256

// HubConfig configures a Hub.
type HubConfig struct {
	QueueSize int
	Overflow  OverflowPolicy
}

// ParseOverflowPolicy validates a configured policy name.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch OverflowPolicy(s) {
	case OverflowDisconnect, "":
		return OverflowDisconnect, nil
	case OverflowDropOldest:
		return OverflowDropOldest, nil
	default:
		return "", fmt.Errorf("unknown overflow policy %q (want %q or %q)", s, OverflowDisconnect, OverflowDropOldest)
	}
}

// PublishResult counts what happened to one published message.
type PublishResult struct {
	Delivered    int
	Dropped      int
	Disconnected int
}

// Hub owns the subscriber set. mu guards clients and also serializes
// Publish, which is what gives all clients the same message order.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool

	queueSize int
	overflow  OverflowPolicy
}

// NewHub creates a hub. Zero values in cfg fall back to the defaults.
func NewHub(cfg HubConfig) *Hub {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Overflow == "" {
		cfg.Overflow = OverflowDisconnect
	}
	return &Hub{
		clients:   make(map[*Client]struct{}),
		queueSize: cfg.QueueSize,
		overflow:  cfg.Overflow,
	}
}

// Subscribe adds c to the set. It returns false, and closes c's queue, if
// the hub has already shut down.
func (h *Hub) Subscribe(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		c.closeSend()
		return false
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	metrics.WebSocketSubscribers.Set(float64(n))

	logging.Debug().Uint64("client_id", c.id).Int("total_clients", n).Msg("websocket client subscribed")
	return true
}

// Unsubscribe removes c and closes its queue. Unknown or already removed
// clients are ignored.
func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.removeLocked(c) {
		logging.Debug().Uint64("client_id", c.id).Int("total_clients", len(h.clients)).Msg("websocket client unsubscribed")
	}
}

// removeLocked must be called with mu held.
func (h *Hub) removeLocked(c *Client) bool {
	if _, ok := h.clients[c]; !ok {
		return false
	}
	delete(h.clients, c)
	c.closeSend()
	metrics.WebSocketSubscribers.Set(float64(len(h.clients)))
	return true
}

// Publish delivers msg to every current subscriber without blocking.
func (h *Hub) Publish(msg Message) PublishResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	var res PublishResult
	if h.closed || len(h.clients) == 0 {
		return res
	}

	clients := h.sortedLocked()
	for _, c := range clients {
		select {
		case c.send <- msg:
			res.Delivered++
			continue
		default:
		}

		switch h.overflow {
		case OverflowDropOldest:
			select {
			case <-c.send:
				res.Dropped++
			default:
			}
			select {
			case c.send <- msg:
				res.Delivered++
			default:
				res.Dropped++
			}
		default:
			h.removeLocked(c)
			res.Disconnected++
			logging.Warn().
				Uint64("client_id", c.id).
				Int("queue_size", h.queueSize).
				Msg("websocket client too slow, disconnecting")
		}
	}

	metrics.RecordBroadcast(res.Delivered, res.Dropped, res.Disconnected)
	return res
}

// PublishReport broadcasts an accepted report as a location message.
func (h *Hub) PublishReport(r *models.TelemetryReport) PublishResult {
	return h.Publish(Message{Type: MessageTypeLocation, Data: r})
}

// sendTo queues msg for a single client if it is still subscribed. Used for
// replies such as pong so that only the hub ever writes to a queue.
func (h *Hub) sendTo(c *Client, msg Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// sortedLocked returns the clients in subscription order. Must be called with mu held.
func (h *Hub) sortedLocked() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	return clients
}

// ClientCount returns the number of subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// QueueSize returns the per-client queue length new clients should use.
func (h *Hub) QueueSize() int {
	return h.queueSize
}

// RunWithContext blocks until ctx is done, then disconnects every client.
// The hub itself needs no loop; this exists so a supervisor owns its lifetime.
// Subscribe calls after shutdown are refused.
func (h *Hub) RunWithContext(ctx context.Context) error {
	h.mu.Lock()
	h.closed = false
	h.mu.Unlock()

	<-ctx.Done()

	n := h.Close()
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(shutdownReason(ctx))).
		Int("clients_closed", n).
		Msg("websocket hub stopped")
	return ctx.Err()
}

// Close disconnects all clients and refuses new ones. It returns the number
// of clients that were connected.
func (h *Hub) Close() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	clients := h.sortedLocked()
	for _, c := range clients {
		h.removeLocked(c)
	}
	return len(clients)
}

func shutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}
