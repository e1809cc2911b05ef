// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// Fake is a manually advanced Clock. It is safe for concurrent use.
//
// Callbacks registered with AfterFunc run synchronously inside Advance,
// ordered by deadline and then by registration. They must not call
// Advance themselves.
type Fake struct {
	mu      sync.Mutex
	changed *sync.Cond
	now     time.Time
	seq     uint64
	entries []*fakeEntry
}

type fakeEntry struct {
	seq      uint64
	deadline time.Time
	interval time.Duration
	callback func()
	ticks    chan time.Time
	done     bool
}

// NewFake returns a Fake reading start until advanced.
func NewFake(start time.Time) *Fake {
	fake := &Fake{now: start}
	fake.changed = sync.NewCond(&fake.mu)
	return fake
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) AfterFunc(d time.Duration, callback func()) *Timer {
	entry := f.add(d, 0, callback, nil)
	return &Timer{stop: func() bool { return f.cancel(entry) }}
}

func (f *Fake) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}
	ticks := make(chan time.Time, 1)
	entry := f.add(d, d, nil, ticks)
	return &Ticker{C: ticks, stop: func() { f.cancel(entry) }}
}

func (f *Fake) add(d, interval time.Duration, callback func(), ticks chan time.Time) *fakeEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	entry := &fakeEntry{
		seq:      f.seq,
		deadline: f.now.Add(d),
		interval: interval,
		callback: callback,
		ticks:    ticks,
	}
	f.entries = append(f.entries, entry)
	f.changed.Broadcast()
	return entry
}

func (f *Fake) cancel(entry *fakeEntry) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry.done {
		return false
	}
	entry.done = true
	f.entries = slices.DeleteFunc(f.entries, func(e *fakeEntry) bool { return e == entry })
	return true
}

// Advance moves the clock forward by d, firing everything that falls
// due on the way. A ticker spanning several intervals fires once per
// interval, subject to its channel's capacity.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		entry, at := f.nextDue(target)
		if entry == nil {
			break
		}
		if entry.callback != nil {
			entry.callback()
			continue
		}
		select {
		case entry.ticks <- at:
		default:
		}
	}

	f.mu.Lock()
	f.now = target
	f.mu.Unlock()
}

// nextDue pops the earliest entry due at or before target, moving the
// clock to its deadline. Tickers are rescheduled rather than removed.
func (f *Fake) nextDue(target time.Time) (*fakeEntry, time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var next *fakeEntry
	for _, entry := range f.entries {
		if entry.deadline.After(target) {
			continue
		}
		if next == nil || entry.deadline.Before(next.deadline) ||
			(entry.deadline.Equal(next.deadline) && entry.seq < next.seq) {
			next = entry
		}
	}
	if next == nil {
		return nil, time.Time{}
	}

	at := next.deadline
	if at.After(f.now) {
		f.now = at
	}
	if next.interval > 0 {
		next.deadline = next.deadline.Add(next.interval)
	} else {
		next.done = true
		f.entries = slices.DeleteFunc(f.entries, func(e *fakeEntry) bool { return e == next })
	}
	return next, at
}

// WaitForTimers blocks until at least n timers or tickers are pending.
// Tests call it before Advance when another goroutine registers the
// timer.
func (f *Fake) WaitForTimers(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.entries) < n {
		f.changed.Wait()
	}
}

// PendingCount is the number of timers and tickers not yet fired or
// stopped.
func (f *Fake) PendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}
