// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package host drives the editor side of the bridge from a single tick.
//
// A [Host] owns the transport server and observes it. Every inbound
// frame is answered on the same connection with the router's response
// in the frame's own format. Each tick first runs deferred callbacks
// that have come due and then polls the transport, so handlers and
// scheduled work always run on the goroutine calling [Host.Tick].
package host

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/LeanderM99/GodotMCP/lib/clock"
	"github.com/LeanderM99/GodotMCP/lib/router"
	"github.com/LeanderM99/GodotMCP/lib/schedule"
	"github.com/LeanderM99/GodotMCP/transport"
)

// RateLimitedMessage is the error returned for frames over a
// connection's rate limit.
const RateLimitedMessage = "rate limit exceeded"

// Config configures a Host. Zero RateLimit disables limiting.
type Config struct {
	// Port zero picks a free port. See Server().Addr().
	Port         int
	TickInterval time.Duration

	// RateLimit is the sustained commands per second accepted from one
	// connection, with bursts up to RateBurst.
	RateLimit float64
	RateBurst int

	// Transport tunes the server. Its Clock and Logger are replaced
	// by the Host's.
	Transport transport.Config

	Clock  clock.Clock
	Logger *slog.Logger
}

// Host connects the transport, the router, and the scheduler.
type Host struct {
	port         int
	tickInterval time.Duration
	limit        rate.Limit
	burst        int

	clock     clock.Clock
	logger    *slog.Logger
	router    *router.Router
	scheduler *schedule.Scheduler
	server    *transport.Server

	// limiters is touched only from observer callbacks, which run
	// inside Tick.
	limiters map[transport.ConnID]*rate.Limiter
}

// New builds a stopped Host. The scheduler must use the same clock as
// config.Clock.
func New(config Config, commands *router.Router, scheduler *schedule.Scheduler) *Host {
	if config.TickInterval <= 0 {
		config.TickInterval = 16 * time.Millisecond
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	h := &Host{
		port:         config.Port,
		tickInterval: config.TickInterval,
		clock:        config.Clock,
		logger:       config.Logger,
		router:       commands,
		scheduler:    scheduler,
		limiters:     make(map[transport.ConnID]*rate.Limiter),
	}
	if config.RateLimit > 0 {
		h.limit = rate.Limit(config.RateLimit)
		h.burst = max(config.RateBurst, 1)
	}

	transportConfig := config.Transport
	transportConfig.Clock = config.Clock
	transportConfig.Logger = config.Logger.With("component", "transport")
	h.server = transport.NewServer(transportConfig, h)
	return h
}

// Start begins listening.
func (h *Host) Start() error {
	return h.server.Start(h.port)
}

// Stop closes every connection. Queued callbacks are kept.
func (h *Host) Stop() {
	h.server.Stop()
	clear(h.limiters)
}

// Tick runs due callbacks and then polls the transport once.
func (h *Host) Tick() {
	h.scheduler.RunDue()
	h.server.Poll()
}

// Run starts the Host and serves it until ctx is done.
func (h *Host) Run(ctx context.Context) error {
	if err := h.Start(); err != nil {
		return err
	}
	return h.Serve(ctx)
}

// Serve ticks a started Host until ctx is done and then stops it.
func (h *Host) Serve(ctx context.Context) error {
	defer h.Stop()

	ticker := h.clock.NewTicker(h.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			h.Tick()
		}
	}
}

// Server exposes the transport for inspection.
func (h *Host) Server() *transport.Server { return h.server }

// Broadcast sends text to every open connection.
func (h *Host) Broadcast(text string) error {
	return h.server.Broadcast(text)
}

func (h *Host) Connected(id transport.ConnID) {
	if h.limit > 0 {
		h.limiters[id] = rate.NewLimiter(h.limit, h.burst)
	}
	h.logger.Info("client connected", "id", uint64(id))
}

func (h *Host) Disconnected(id transport.ConnID) {
	delete(h.limiters, id)
	h.logger.Info("client disconnected", "id", uint64(id))
}

func (h *Host) MessageReceived(message transport.Message) {
	var response []byte
	if limiter, ok := h.limiters[message.ID]; ok && !limiter.AllowN(h.clock.Now(), 1) {
		h.logger.Warn("rate limit exceeded", "id", uint64(message.ID))
		response = h.router.Reject(message.Format, message.Data, RateLimitedMessage)
	} else {
		response = h.router.RouteFrame(message.Format, message.Data)
	}
	if err := h.server.SendFrame(message.ID, message.Format, response); err != nil {
		h.logger.Warn("dropping response", "id", uint64(message.ID), "error", err)
	}
}
