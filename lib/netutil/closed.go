// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil has the small network helpers shared by the host-side
// transport and the agent-side client.
package netutil

import (
	"errors"
	"io"
	"net"
	"strconv"
	"syscall"

	"github.com/gorilla/websocket"
)

// LoopbackHost is the only address the transport binds to and the
// default the client dials.
const LoopbackHost = "127.0.0.1"

// LoopbackAddr joins LoopbackHost and port.
func LoopbackAddr(port int) string {
	return net.JoinHostPort(LoopbackHost, strconv.Itoa(port))
}

// IsExpectedCloseError reports whether err is an ordinary end of a
// connection rather than a fault worth logging. The ordinary endings
// are EOF, a locally closed socket, a broken pipe, a reset, and a
// WebSocket close frame with a normal, going-away, or absent status.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}
