// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package router

import "fmt"

// Result is what a Handler produces for one command: either data to
// return to the caller or an error message.
type Result struct {
	ok      bool
	data    any
	message string
}

// Success wraps data for a successful response. A nil data value is
// sent as an empty object.
func Success(data any) Result {
	if data == nil {
		data = map[string]any{}
	}
	return Result{ok: true, data: data}
}

// Failure reports a command-level error.
func Failure(message string) Result {
	return Result{message: message}
}

// Failuref formats a command-level error.
func Failuref(format string, args ...any) Result {
	return Result{message: fmt.Sprintf(format, args...)}
}

func (r Result) OK() bool        { return r.ok }
func (r Result) Data() any       { return r.data }
func (r Result) Message() string { return r.message }

func (r Result) response(id string) Response {
	if r.ok {
		return Response{ID: id, Success: true, Data: r.data}
	}
	message := r.message
	if message == "" {
		message = "Unknown error"
	}
	return Response{ID: id, Error: message}
}
