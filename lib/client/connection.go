// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/LeanderM99/GodotMCP/lib/clock"
)

// outcome settles a pending request. Exactly one of err and response
// is meaningful.
type outcome struct {
	response wireResponse
	err      error
}

type pendingRequest struct {
	timer *clock.Timer
	done  chan outcome
}

// connection is one dialed WebSocket plus the requests waiting on it.
// The pending table owns each request's timer; every path that removes
// a request stops its timer.
type connection struct {
	ws     *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]*pendingRequest
	closed  bool
}

func newConnection(ws *websocket.Conn, logger *slog.Logger) *connection {
	return &connection{
		ws:      ws,
		logger:  logger,
		pending: make(map[string]*pendingRequest),
	}
}

// register adds a pending request with the timer returned by start. It
// returns nil once the connection has shut down.
func (c *connection) register(id string, start func() *clock.Timer) *pendingRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	request := &pendingRequest{done: make(chan outcome, 1)}
	request.timer = start()
	c.pending[id] = request
	return request
}

// settle resolves the request with the given id if it is still pending
// and reports whether it did.
func (c *connection) settle(id string, result outcome) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	request, ok := c.pending[id]
	if !ok {
		return false
	}
	delete(c.pending, id)
	request.timer.Stop()
	request.done <- result
	return true
}

func (c *connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *connection) pendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// shutdown closes the socket and rejects every pending request with
// err. Only the first call has an effect.
func (c *connection) shutdown(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.pending
	c.pending = make(map[string]*pendingRequest)
	for _, request := range pending {
		request.timer.Stop()
		request.done <- outcome{err: err}
	}
	c.mu.Unlock()

	c.close()
}

func (c *connection) close() {
	c.ws.Close()
}

func (c *connection) write(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

// readLoop settles requests from inbound responses until the socket
// fails, and returns that failure.
func (c *connection) readLoop() error {
	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}
		if messageType != websocket.TextMessage {
			c.logger.Debug("ignoring non-text frame", "type", messageType)
			continue
		}
		var response wireResponse
		if err := json.Unmarshal(data, &response); err != nil {
			c.logger.Warn("dropping unparseable response", "error", err, "bytes", len(data))
			continue
		}
		if !c.settle(response.ID, outcome{response: response}) {
			c.logger.Debug("dropping response for unknown request", "id", response.ID)
		}
	}
}
