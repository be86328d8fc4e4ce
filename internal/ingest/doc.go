// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

/*
Package ingest runs one telemetry report through the pipeline:

	validate -> store.Append -> hub.PublishReport -> forwarder.Forward

and answers the latest-position query straight from the store.

A report that fails validation never reaches the store. A report the store
did not commit is never broadcast. Once the store has committed a report the
request succeeds, whatever happens to the broadcast or the outbound event;
those failures are logged and counted only.

Nothing here retries. A caller that gets ErrStorageUnavailable may resend,
and the store will then hold two rows for that report.

Append and publish form one step: a report is published before the next one
is appended, so every subscriber sees reports in insertion-marker order. A
request waiting for that step counts the wait against the store timeout.
The outbound event is forwarded after the step and carries no ordering
guarantee.

With SetStrictFields, keys other than the six report fields are rejected.
*/
package ingest
