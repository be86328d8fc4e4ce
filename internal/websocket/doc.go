// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

/*
Package websocket is the live broadcaster: it pushes every accepted
telemetry report to all currently connected observers.

	┌──────────┐  Publish(location)
	│   Hub    │──────────────┬──────────────┐
	└──────────┘              │              │
	                     ┌────┴────┐    ┌────┴────┐
	                     │ Client1 │    │ Client2 │  bounded send queue each
	                     └─────────┘    └─────────┘

Delivery rules:

  - A report reaches exactly the clients subscribed when Publish is called.
    There is no replay buffer; a client that connects later only sees later
    reports.
  - Publish calls are serialized, so every client observes reports in the
    same order.
  - Publish never waits for a client. Each client has a bounded queue; when
    it is full the hub either disconnects that client (default) or discards
    the oldest queued message for it (overflow policy drop_oldest).

Each websocket connection runs a readPump (pong/ping handling, detects
disconnect) and a writePump (drains the queue to the socket, sends pings).
Messages are JSON:

	{"type":"location","data":{"deviceId":"truck-1","lat":37.91,"lng":40.23,"speed":null,"heading":null,"ts":"..."}}
*/
package websocket
