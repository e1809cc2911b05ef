// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/LeanderM99/GodotMCP/lib/codec"
	"github.com/LeanderM99/GodotMCP/lib/netutil"
)

// controlTimeout bounds close-frame writes.
const controlTimeout = time.Second

type outboundFrame struct {
	messageType int
	data        []byte
}

// peer is an open connection. Its reader goroutine fills inbound and
// closes it on exit. Its writer goroutine drains outbound. Both stop
// when done is closed.
type peer struct {
	id     ConnID
	ws     *websocket.Conn
	logger *slog.Logger

	state    atomic.Int32
	inbound  chan Message
	outbound chan outboundFrame
	done     chan struct{}
	stopOnce sync.Once

	// removing is touched only by Poll.
	removing bool
}

func newPeer(id ConnID, ws *websocket.Conn, config Config) *peer {
	p := &peer{
		id:       id,
		ws:       ws,
		logger:   config.Logger.With("id", uint64(id)),
		inbound:  make(chan Message, inboundQueueSize),
		outbound: make(chan outboundFrame, config.SendQueueSize),
		done:     make(chan struct{}),
	}
	p.state.Store(int32(StateOpen))

	ws.SetReadLimit(config.MaxMessageSize)
	ws.SetCloseHandler(func(code int, text string) error {
		p.advance(StateClosing)
		reply := []byte{}
		if code != websocket.CloseNoStatusReceived {
			reply = websocket.FormatCloseMessage(code, "")
		}
		err := ws.WriteControl(websocket.CloseMessage, reply, time.Now().Add(controlTimeout))
		if err != nil && !netutil.IsExpectedCloseError(err) && !errors.Is(err, websocket.ErrCloseSent) {
			return err
		}
		return nil
	})

	go p.readLoop()
	go p.writeLoop(config.WriteTimeout)
	return p
}

func (p *peer) State() State { return State(p.state.Load()) }

// advance moves the state forward to next. It reports false when the
// peer is already at or past next.
func (p *peer) advance(next State) bool {
	for {
		current := p.state.Load()
		if current >= int32(next) {
			return false
		}
		if p.state.CompareAndSwap(current, int32(next)) {
			return true
		}
	}
}

// stop closes the socket and ends both goroutines. Safe to call more
// than once.
func (p *peer) stop() {
	p.stopOnce.Do(func() {
		p.advance(StateClosed)
		close(p.done)
		p.ws.Close()
	})
}

// goAway sends a close frame before stopping.
func (p *peer) goAway(reason string) {
	message := websocket.FormatCloseMessage(websocket.CloseGoingAway, reason)
	p.ws.WriteControl(websocket.CloseMessage, message, time.Now().Add(controlTimeout))
	p.stop()
}

func (p *peer) enqueue(format codec.Format, data []byte) bool {
	messageType := websocket.TextMessage
	if format == codec.CBOR {
		messageType = websocket.BinaryMessage
	}
	select {
	case p.outbound <- outboundFrame{messageType: messageType, data: data}:
		return true
	default:
		return false
	}
}

func (p *peer) readLoop() {
	defer close(p.inbound)
	defer p.stop()
	for {
		messageType, data, err := p.ws.ReadMessage()
		if err != nil {
			if !netutil.IsExpectedCloseError(err) {
				p.logger.Warn("connection read failed", "error", err)
			}
			return
		}
		format := codec.JSON
		if messageType == websocket.BinaryMessage {
			format = codec.CBOR
		}
		select {
		case p.inbound <- Message{ID: p.id, Format: format, Data: data}:
		case <-p.done:
			return
		}
	}
}

func (p *peer) writeLoop(timeout time.Duration) {
	for {
		select {
		case frame := <-p.outbound:
			// Socket deadlines are wall-clock by nature.
			p.ws.SetWriteDeadline(time.Now().Add(timeout))
			if err := p.ws.WriteMessage(frame.messageType, frame.data); err != nil {
				if !netutil.IsExpectedCloseError(err) {
					p.logger.Warn("connection write failed", "error", err)
				}
				p.stop()
				return
			}
		case <-p.done:
			return
		}
	}
}
