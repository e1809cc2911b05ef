// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package router decodes command envelopes, dispatches them by category
// to registered handlers, and encodes exactly one response envelope per
// inbound frame.
//
// Handlers run synchronously on the caller's goroutine, which in the
// host is the tick. A handler that panics is contained: the panic
// becomes a failure response and the router keeps serving.
package router

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/LeanderM99/GodotMCP/lib/codec"
)

// Handler serves every command of one category.
type Handler interface {
	Handle(command string, params map[string]any) Result
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(command string, params map[string]any) Result

func (f HandlerFunc) Handle(command string, params map[string]any) Result {
	return f(command, params)
}

// Router maps categories to handlers. Registration normally happens
// once at startup, but the map is guarded so late registration from
// another goroutine is safe.
type Router struct {
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[string]Handler
}

// New returns an empty Router. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		logger:   logger,
		handlers: make(map[string]Handler),
	}
}

// RegisterHandler binds a category to a handler, replacing any earlier
// registration for the same category.
func (r *Router) RegisterHandler(category string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[category]; exists {
		r.logger.Warn("replacing handler", "category", category)
	}
	r.handlers[category] = handler
}

// Categories returns the registered categories in sorted order.
func (r *Router) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	categories := make([]string, 0, len(r.handlers))
	for category := range r.handlers {
		categories = append(categories, category)
	}
	slices.Sort(categories)
	return categories
}

// Route handles one JSON text frame and returns the JSON response.
func (r *Router) Route(raw string) string {
	return string(r.RouteFrame(codec.JSON, []byte(raw)))
}

// RouteFrame handles one frame and returns the response encoded in the
// same format.
func (r *Router) RouteFrame(format codec.Format, data []byte) []byte {
	command, err := decodeCommand(format, data)
	if err != nil {
		r.logger.Debug("rejecting malformed command", "format", format, "id", command.ID, "error", err)
		return r.encode(format, Failure(err.Error()).response(command.ID))
	}
	return r.encode(format, r.dispatch(command).response(command.ID))
}

// Reject answers a frame without dispatching it. The id is extracted on
// a best-effort basis so the caller can still correlate the failure.
func (r *Router) Reject(format codec.Format, data []byte, message string) []byte {
	command, _ := decodeCommand(format, data)
	return r.encode(format, Failure(message).response(command.ID))
}

func (r *Router) dispatch(command Command) (result Result) {
	r.mu.RLock()
	handler, ok := r.handlers[command.Category]
	r.mu.RUnlock()
	if !ok {
		return Failuref("Unknown category: %s", command.Category)
	}

	defer func() {
		if fault := recover(); fault != nil {
			message := fmt.Sprint(fault)
			if err, isErr := fault.(error); isErr {
				message = err.Error()
			}
			r.logger.Error("handler panicked",
				"category", command.Category,
				"command", command.Command,
				"id", command.ID,
				"panic", message,
			)
			result = Failure(message)
		}
	}()

	result = handler.Handle(command.Command, command.Params)
	if !result.OK() {
		r.logger.Debug("command failed",
			"category", command.Category,
			"command", command.Command,
			"id", command.ID,
			"error", result.Message(),
		)
	}
	return result
}

// encode always produces a frame. Data that cannot be encoded turns the
// response into a failure naming the encoding error.
func (r *Router) encode(format codec.Format, response Response) []byte {
	data, err := codec.Marshal(format, response)
	if err == nil {
		return data
	}
	r.logger.Error("encoding response", "id", response.ID, "format", format, "error", err)
	data, err = codec.Marshal(format, Response{
		ID:    response.ID,
		Error: "Failed to encode response: " + err.Error(),
	})
	if err != nil {
		// Only reachable with an unsupported format.
		panic(fmt.Sprintf("router: cannot encode failure response: %v", err))
	}
	return data
}
