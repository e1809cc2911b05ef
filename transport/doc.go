// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport is the host side of the bridge: a loopback-only
// WebSocket server driven entirely by [Server.Poll].
//
// The host calls Poll once per tick. Each call runs four phases in
// order:
//
//   - accept: TCP streams accepted since the last poll become pending
//     peers stamped with the clock's current time and a fresh [ConnID]
//   - handshake: pending peers whose WebSocket upgrade finished are
//     promoted to open and reported through [Observer.Connected]. A
//     failed upgrade, or one older than the handshake timeout, is
//     dropped without an event and without a response
//   - drain: frames queued on each open peer are reported in arrival
//     order through [Observer.MessageReceived]
//   - reap: peers that reached [StateClosed] are removed and reported
//     through [Observer.Disconnected]
//
// Poll never blocks. Socket reads, writes, and the upgrade itself run
// on goroutines owned by each peer, which hand results to Poll over
// buffered channels. Observer callbacks therefore run on the goroutine
// calling Poll, and commands from different connections are handled
// strictly one after another.
//
// [Server.Send] queues a frame for one peer and returns [ErrNotFound]
// or [ErrUnavailable] when the peer is unknown or not open.
// [Server.Broadcast] sends to every open peer and reports the combined
// failure.
package transport
