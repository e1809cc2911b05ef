// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package schedule runs deferred callbacks on the host's own tick.
//
// Handlers must return quickly, so anything that has to happen later,
// such as releasing a held key or broadcasting a delayed notification,
// is registered with [Scheduler.After]. The host calls
// [Scheduler.RunDue] once per tick, and due callbacks run there on the
// host goroutine, never on a timer goroutine of their own.
package schedule

import (
	"container/heap"
	"log/slog"
	"sync"
	"time"

	"github.com/LeanderM99/GodotMCP/lib/clock"
)

// Scheduler is a queue of callbacks ordered by due time. It is safe
// for concurrent use.
type Scheduler struct {
	clock  clock.Clock
	logger *slog.Logger

	mu    sync.Mutex
	seq   uint64
	tasks taskHeap
}

type task struct {
	due      time.Time
	seq      uint64
	fn       func()
	index    int
	canceled bool
}

// New returns an empty Scheduler. A nil logger uses slog.Default().
func New(c clock.Clock, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{clock: c, logger: logger}
}

// After queues fn to run on the first RunDue at least d from now. The
// returned function cancels it and reports whether fn had not yet
// started.
func (s *Scheduler) After(d time.Duration, fn func()) (cancel func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &task{due: s.clock.Now().Add(d), seq: s.seq, fn: fn}
	heap.Push(&s.tasks, t)
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t.canceled || t.index < 0 {
			return false
		}
		t.canceled = true
		heap.Remove(&s.tasks, t.index)
		return true
	}
}

// RunDue runs every callback whose due time has passed, in due order
// with ties in registration order, and returns how many ran. Callbacks
// queued while RunDue is running wait for the next call, even with no
// delay, so a callback that requeues itself cannot stall the tick.
// A callback that panics is logged and does not stop the others.
func (s *Scheduler) RunDue() int {
	now := s.clock.Now()
	s.mu.Lock()
	last := s.seq
	s.mu.Unlock()

	ran := 0
	for {
		s.mu.Lock()
		// Tasks queued before entry and due by now sort ahead of any
		// queued since, so stopping at the first newer one is exact.
		if len(s.tasks) == 0 || s.tasks[0].due.After(now) || s.tasks[0].seq > last {
			s.mu.Unlock()
			return ran
		}
		t := heap.Pop(&s.tasks).(*task)
		s.mu.Unlock()

		s.run(t.fn)
		ran++
	}
}

func (s *Scheduler) run(fn func()) {
	defer func() {
		if fault := recover(); fault != nil {
			s.logger.Error("scheduled callback panicked", "panic", fault)
		}
	}()
	fn()
}

// Len returns the number of queued callbacks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// taskHeap implements heap.Interface over due time, then sequence.
type taskHeap []*task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	t := x.(*task)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() any {
	old := *h
	t := old[len(old)-1]
	old[len(old)-1] = nil
	t.index = -1
	*h = old[:len(old)-1]
	return t
}
