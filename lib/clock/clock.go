// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the time source shared by the transport, the
// correlation client, and the host scheduler. Components take a Clock
// instead of calling the time package so that handshake ages, request
// timers, and deferred callbacks can be driven by a [Fake] in tests.
package clock

import "time"

// Clock is the subset of the time package the bridge depends on.
type Clock interface {
	Now() time.Time

	// AfterFunc calls f once d has elapsed. A Fake invokes f on the
	// goroutine calling Advance.
	AfterFunc(d time.Duration, f func()) *Timer

	// NewTicker panics if d <= 0, like time.NewTicker.
	NewTicker(d time.Duration) *Ticker
}

// Timer cancels a callback registered with AfterFunc.
type Timer struct {
	stop func() bool
}

// Stop reports whether the call prevented the callback from running.
func (t *Timer) Stop() bool { return t.stop() }

// Ticker delivers ticks on C. Ticks are dropped while C is full.
type Ticker struct {
	C    <-chan time.Time
	stop func()
}

func (t *Ticker) Stop() { t.stop() }

// Real returns the wall clock.
func Real() Clock { return wallClock{} }

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) AfterFunc(d time.Duration, f func()) *Timer {
	return &Timer{stop: time.AfterFunc(d, f).Stop}
}

func (wallClock) NewTicker(d time.Duration) *Ticker {
	ticker := time.NewTicker(d)
	return &Ticker{C: ticker.C, stop: ticker.Stop}
}
