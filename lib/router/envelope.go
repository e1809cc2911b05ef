// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"strconv"

	"github.com/LeanderM99/GodotMCP/lib/codec"
)

// UnknownID is echoed when a request carries no usable id.
const UnknownID = "unknown"

// Command is an inbound request envelope.
type Command struct {
	ID       string         `json:"id"`
	Category string         `json:"category"`
	Command  string         `json:"command"`
	Params   map[string]any `json:"params"`
}

// Response is the outbound envelope. Data is set only on success and
// Error only on failure.
type Response struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// decodeCommand parses a frame into a Command. The returned id is
// usable even when err is non-nil, so that a malformed request that
// still identifies itself gets a correlated failure.
func decodeCommand(format codec.Format, data []byte) (Command, error) {
	var fields map[string]any
	if err := codec.Unmarshal(format, data, &fields); err != nil {
		return Command{ID: UnknownID}, &envelopeError{prefix: "Invalid " + formatName(format), err: err}
	}
	if fields == nil {
		return Command{ID: UnknownID}, &envelopeError{prefix: "Invalid " + formatName(format), detail: "expected an object"}
	}

	command := Command{
		ID:       idString(fields["id"]),
		Category: stringField(fields["category"]),
		Command:  stringField(fields["command"]),
		Params:   map[string]any{},
	}
	switch params := fields["params"].(type) {
	case nil:
	case map[string]any:
		command.Params = params
	default:
		return command, &envelopeError{prefix: "Invalid params", detail: "expected an object"}
	}
	return command, nil
}

type envelopeError struct {
	prefix string
	detail string
	err    error
}

func (e *envelopeError) Error() string {
	if e.err != nil {
		return e.prefix + ": " + e.err.Error()
	}
	return e.prefix + ": " + e.detail
}

func (e *envelopeError) Unwrap() error { return e.err }

func formatName(format codec.Format) string {
	if format == codec.CBOR {
		return "CBOR"
	}
	return "JSON"
}

// idString accepts string and numeric ids. Anything else, including an
// empty string, maps to UnknownID.
func idString(value any) string {
	switch id := value.(type) {
	case string:
		if id != "" {
			return id
		}
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case uint64:
		return strconv.FormatUint(id, 10)
	case int64:
		return strconv.FormatInt(id, 10)
	}
	return UnknownID
}

func stringField(value any) string {
	text, _ := value.(string)
	return text
}
