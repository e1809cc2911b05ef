// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package client is the agent side of the bridge. A [Client] keeps one
// WebSocket connection to the host and turns each command into a call
// that blocks until the response with the same id arrives.
//
// Any number of goroutines may call [Client.Send] at once. Every
// request is settled exactly once: by its response, by its timer, by
// the caller's context, or by the connection closing. Settling stops
// the timer and removes the request from the pending table. A dropped
// connection is not redialed in the background; the next Send dials
// again.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/LeanderM99/GodotMCP/lib/clock"
	"github.com/LeanderM99/GodotMCP/lib/netutil"
)

const (
	DefaultRequestTimeout = 60 * time.Second
	DefaultDialTimeout    = 5 * time.Second
)

// Config configures a Client. Zero fields take defaults.
type Config struct {
	// Address is host:port of the editor's transport. Defaults to the
	// loopback address on port 6550.
	Address        string
	RequestTimeout time.Duration
	DialTimeout    time.Duration
	Clock          clock.Clock
	Logger         *slog.Logger
}

// Client correlates requests and responses over one connection.
type Client struct {
	address string
	timeout time.Duration
	dialer  *websocket.Dialer
	clock   clock.Clock
	logger  *slog.Logger

	// connectMu serializes dials so concurrent callers share one.
	connectMu sync.Mutex

	mu      sync.Mutex
	current *connection
	closed  bool
}

// New returns a Client that has not dialed yet.
func New(config Config) *Client {
	if config.Address == "" {
		config.Address = netutil.LoopbackAddr(6550)
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = DefaultDialTimeout
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		address: config.Address,
		timeout: config.RequestTimeout,
		dialer: &websocket.Dialer{
			HandshakeTimeout: config.DialTimeout,
		},
		clock:  config.Clock,
		logger: config.Logger,
	}
}

// Connect dials the host unless a connection is already open.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.connection(ctx)
	return err
}

// Connected reports whether a connection is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil && !c.current.isClosed()
}

// Pending returns the number of requests awaiting a response.
func (c *Client) Pending() int {
	c.mu.Lock()
	current := c.current
	c.mu.Unlock()
	if current == nil {
		return 0
	}
	return current.pendingCount()
}

// Close drops the connection, rejecting outstanding requests with
// ErrConnectionClosed. Later calls to Send fail.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	current := c.current
	c.current = nil
	c.mu.Unlock()
	if current != nil {
		current.shutdown(ErrConnectionClosed)
	}
	return nil
}

func (c *Client) connection(ctx context.Context) (*connection, error) {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrConnectionClosed
	}
	if c.current != nil && !c.current.isClosed() {
		current := c.current
		c.mu.Unlock()
		return current, nil
	}
	c.mu.Unlock()

	ws, _, err := c.dialer.DialContext(ctx, "ws://"+c.address, nil)
	if err != nil {
		return nil, &ConnectError{Address: c.address, Err: err}
	}
	current := newConnection(ws, c.logger)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		ws.Close()
		return nil, ErrConnectionClosed
	}
	c.current = current
	c.mu.Unlock()

	c.logger.Info("connected to godot", "address", c.address)
	go c.watch(current)
	return current, nil
}

// watch runs the connection's reader and resets the Client when it
// ends, so the next Send dials again.
func (c *Client) watch(current *connection) {
	err := current.readLoop()
	current.shutdown(ErrConnectionClosed)

	c.mu.Lock()
	if c.current == current {
		c.current = nil
	}
	c.mu.Unlock()

	if err != nil && !netutil.IsExpectedCloseError(err) {
		c.logger.Warn("disconnected from godot", "address", c.address, "error", err)
		return
	}
	c.logger.Info("disconnected from godot", "address", c.address)
}

// Send issues one command and waits for its outcome. It returns the
// response's data on success, a *CommandError on a failure response,
// a *TimeoutError when the request timer fires, ErrConnectionClosed
// when the connection drops first, or ctx.Err() when ctx ends first.
func (c *Client) Send(ctx context.Context, category, command string, params map[string]any) (json.RawMessage, error) {
	current, err := c.connection(ctx)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = map[string]any{}
	}

	id := uuid.NewString()
	request := current.register(id, func() *clock.Timer {
		return c.clock.AfterFunc(c.timeout, func() {
			current.settle(id, outcome{err: &TimeoutError{Category: category, Command: command, Timeout: c.timeout}})
		})
	})
	if request == nil {
		return nil, ErrConnectionClosed
	}

	frame, err := json.Marshal(wireCommand{ID: id, Category: category, Command: command, Params: params})
	if err != nil {
		current.settle(id, outcome{err: err})
		return nil, fmt.Errorf("encoding %s.%s: %w", category, command, err)
	}
	if err := current.write(frame); err != nil {
		current.settle(id, outcome{err: ErrConnectionClosed})
		current.close()
	}

	select {
	case settled := <-request.done:
		return result(settled, category, command)
	case <-ctx.Done():
		if current.settle(id, outcome{err: ctx.Err()}) {
			return nil, ctx.Err()
		}
		// Settled concurrently; the outcome is already buffered.
		return result(<-request.done, category, command)
	}
}

func result(settled outcome, category, command string) (json.RawMessage, error) {
	if settled.err != nil {
		return nil, settled.err
	}
	if !settled.response.Success {
		message := settled.response.Error
		if message == "" {
			message = "Unknown error from Godot"
		}
		return nil, &CommandError{Category: category, Command: command, Message: message}
	}
	return settled.response.Data, nil
}

type wireCommand struct {
	ID       string         `json:"id"`
	Category string         `json:"category"`
	Command  string         `json:"command"`
	Params   map[string]any `json:"params"`
}

type wireResponse struct {
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}
