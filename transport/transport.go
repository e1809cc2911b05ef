// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LeanderM99/GodotMCP/lib/clock"
	"github.com/LeanderM99/GodotMCP/lib/codec"
)

const (
	DefaultPort             = 6550
	DefaultHandshakeTimeout = 3 * time.Second
	DefaultMaxMessageSize   = 16 << 20
	DefaultSendQueueSize    = 64
	DefaultWriteTimeout     = 10 * time.Second

	// inboundQueueSize bounds the frames a peer buffers between polls.
	// A full queue stalls that peer's reader, pushing back on the
	// socket.
	inboundQueueSize = 256
)

var (
	// ErrNotFound means no connection, pending or open, has the id.
	ErrNotFound = errors.New("transport: connection not found")

	// ErrUnavailable means the connection exists but cannot take a
	// frame: it is still pending, already closing, or its send queue
	// is full.
	ErrUnavailable = errors.New("transport: connection unavailable")

	ErrAlreadyRunning = errors.New("transport: server already running")
)

// ConnID identifies a connection for the lifetime of a Server. Ids
// start at 1, increase with every accepted stream, and are never
// reused.
type ConnID uint64

func (id ConnID) String() string { return fmt.Sprintf("conn-%d", uint64(id)) }

// State is a connection's lifecycle position. Transitions only move
// forward. Closing is skipped when the stream drops without a close
// frame.
type State int32

const (
	StatePending State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Message is one inbound frame. Text frames carry JSON and binary
// frames carry CBOR.
type Message struct {
	ID     ConnID
	Format codec.Format
	Data   []byte
}

func (m Message) Text() string { return string(m.Data) }

// Observer receives connection events. Methods are called from Poll,
// never concurrently, and may call back into the Server.
type Observer interface {
	Connected(id ConnID)
	Disconnected(id ConnID)
	MessageReceived(message Message)
}

// ObserverFuncs adapts optional callbacks to the Observer interface.
type ObserverFuncs struct {
	OnConnected    func(id ConnID)
	OnDisconnected func(id ConnID)
	OnMessage      func(message Message)
}

func (o ObserverFuncs) Connected(id ConnID) {
	if o.OnConnected != nil {
		o.OnConnected(id)
	}
}

func (o ObserverFuncs) Disconnected(id ConnID) {
	if o.OnDisconnected != nil {
		o.OnDisconnected(id)
	}
}

func (o ObserverFuncs) MessageReceived(message Message) {
	if o.OnMessage != nil {
		o.OnMessage(message)
	}
}

// Config tunes a Server. Zero fields take the package defaults.
type Config struct {
	HandshakeTimeout time.Duration

	// MaxMessageSize is the largest inbound frame in bytes. Larger
	// frames close the connection.
	MaxMessageSize int64

	// SendQueueSize is the number of outbound frames buffered per
	// peer before Send reports ErrUnavailable.
	SendQueueSize int

	// WriteTimeout bounds a single socket write.
	WriteTimeout time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = DefaultSendQueueSize
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
