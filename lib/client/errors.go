// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"fmt"
	"time"
)

// ErrConnectionClosed rejects requests outstanding when the connection
// drops or the Client is closed.
var ErrConnectionClosed = errors.New("Connection closed")

// ConnectError reports a failed dial. Its message tells the user what
// is most likely wrong.
type ConnectError struct {
	Address string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("Cannot connect to Godot at %s. Make sure the Godot editor is running with the MCP plugin enabled. Error: %v", e.Address, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// TimeoutError reports a request that got no response in time. The
// command may still run on the host.
type TimeoutError struct {
	Category string
	Command  string
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Command %s.%s timed out after %dms", e.Category, e.Command, e.Timeout.Milliseconds())
}

// CommandError is a failure response from the host.
type CommandError struct {
	Category string
	Command  string
	Message  string
}

func (e *CommandError) Error() string { return e.Message }
