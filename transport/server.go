// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/LeanderM99/GodotMCP/lib/clock"
	"github.com/LeanderM99/GodotMCP/lib/codec"
	"github.com/LeanderM99/GodotMCP/lib/netutil"
)

const (
	acceptQueueSize = 64
	acceptBackoff   = 50 * time.Millisecond
)

// Server is the poll-driven WebSocket server. Start, Stop, Send, and
// Broadcast may be called from any goroutine. Poll must be called from
// one goroutine at a time.
type Server struct {
	config   Config
	observer Observer
	clock    clock.Clock
	logger   *slog.Logger
	upgrader *websocket.Upgrader

	mu       sync.Mutex
	listener net.Listener
	accepted chan net.Conn
	done     chan struct{}
	nextID   ConnID
	pending  []*pendingPeer
	open     []*peer // ascending id order
	byID     map[ConnID]*peer
}

// NewServer returns a stopped Server. A nil observer discards events.
func NewServer(config Config, observer Observer) *Server {
	config = config.withDefaults()
	if observer == nil {
		observer = ObserverFuncs{}
	}
	return &Server{
		config:   config,
		observer: observer,
		clock:    config.Clock,
		logger:   config.Logger,
		upgrader: newUpgrader(),
		byID:     make(map[ConnID]*peer),
	}
}

// Start listens on the loopback interface. Port 0 picks a free port;
// see Addr. Failing to bind is returned to the caller and leaves the
// Server stopped.
func (s *Server) Start(port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return ErrAlreadyRunning
	}
	address := netutil.LoopbackAddr(port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", address, err)
	}

	s.listener = listener
	s.accepted = make(chan net.Conn, acceptQueueSize)
	s.done = make(chan struct{})
	go s.acceptLoop(listener, s.accepted, s.done)

	s.logger.Info("transport listening", "address", listener.Addr().String())
	return nil
}

// Stop closes the listener and every pending and open connection, and
// clears the registry. It emits no events and is safe to call on a
// stopped Server.
func (s *Server) Stop() {
	s.mu.Lock()
	if s.listener == nil {
		s.mu.Unlock()
		return
	}
	close(s.done)
	s.listener.Close()
	s.listener = nil
	for range len(s.accepted) {
		(<-s.accepted).Close()
	}
	s.accepted = nil
	pending, open := s.pending, s.open
	s.pending, s.open = nil, nil
	s.byID = make(map[ConnID]*peer)
	s.mu.Unlock()

	for _, candidate := range pending {
		candidate.conn.Close()
	}
	for _, p := range open {
		p.goAway("server stopping")
	}
	s.logger.Info("transport stopped", "closed_pending", len(pending), "closed_open", len(open))
}

// Running reports whether the Server is listening.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener != nil
}

// Addr returns the listening address, or nil when stopped.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Connections returns the ids of open connections in ascending order.
func (s *Server) Connections() []ConnID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]ConnID, 0, len(s.open))
	for _, p := range s.open {
		ids = append(ids, p.id)
	}
	return ids
}

// PendingCount returns the number of connections still handshaking.
func (s *Server) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Poll advances every connection by one step. See the package
// documentation for the phases. Poll on a stopped Server does nothing.
func (s *Server) Poll() {
	if !s.Running() {
		return
	}
	s.acceptPhase()
	for _, id := range s.handshakePhase() {
		s.observer.Connected(id)
	}
	for _, message := range s.drainPhase() {
		s.observer.MessageReceived(message)
	}
	for _, id := range s.reapPhase() {
		s.observer.Disconnected(id)
	}
}

func (s *Server) acceptPhase() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accepted == nil {
		return
	}
	for range len(s.accepted) {
		conn := <-s.accepted
		s.nextID++
		candidate := &pendingPeer{
			id:         s.nextID,
			conn:       conn,
			acceptedAt: s.clock.Now(),
			result:     make(chan handshakeResult, 1),
		}
		s.pending = append(s.pending, candidate)
		go func() {
			ws, err := upgrade(s.upgrader, candidate.conn)
			candidate.result <- handshakeResult{ws: ws, err: err}
		}()
		s.logger.Debug("connection accepted", "id", uint64(candidate.id), "remote", conn.RemoteAddr().String())
	}
}

// handshakePhase promotes finished handshakes and evicts failed or
// expired ones. It returns the newly opened ids.
func (s *Server) handshakePhase() []ConnID {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	var opened []ConnID
	remaining := s.pending[:0]
	for _, candidate := range s.pending {
		select {
		case result := <-candidate.result:
			if result.err != nil {
				s.logger.Debug("handshake failed", "id", uint64(candidate.id), "error", result.err)
				candidate.conn.Close()
				continue
			}
			p := newPeer(candidate.id, result.ws, s.config)
			s.open = append(s.open, p)
			s.byID[p.id] = p
			opened = append(opened, p.id)
			s.logger.Info("connection opened", "id", uint64(p.id))
			continue
		default:
		}
		if now.Sub(candidate.acceptedAt) > s.config.HandshakeTimeout {
			s.logger.Info("handshake timed out", "id", uint64(candidate.id), "timeout", s.config.HandshakeTimeout)
			candidate.conn.Close()
			continue
		}
		remaining = append(remaining, candidate)
	}
	clear(s.pending[len(remaining):])
	s.pending = remaining
	return opened
}

// drainPhase collects the frames queued on every open peer. The read
// count per peer is bounded by what was queued at the start, plus one
// receive to notice a finished reader. A peer is only marked for
// removal once its reader has closed inbound, which happens after the
// reader's last frame is queued, so no frame is dropped at teardown.
func (s *Server) drainPhase() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var messages []Message
	for _, p := range s.open {
		budget := len(p.inbound) + 1
	drain:
		for range budget {
			select {
			case message, ok := <-p.inbound:
				if !ok {
					p.removing = true
					break drain
				}
				messages = append(messages, message)
			default:
				break drain
			}
		}
	}
	return messages
}

func (s *Server) reapPhase() []ConnID {
	s.mu.Lock()
	defer s.mu.Unlock()

	var closed []ConnID
	remaining := s.open[:0]
	for _, p := range s.open {
		if !p.removing {
			remaining = append(remaining, p)
			continue
		}
		p.stop()
		delete(s.byID, p.id)
		closed = append(closed, p.id)
		s.logger.Info("connection closed", "id", uint64(p.id))
	}
	clear(s.open[len(remaining):])
	s.open = remaining
	return closed
}

// Send queues a text frame for one connection.
func (s *Server) Send(id ConnID, text string) error {
	return s.SendFrame(id, codec.JSON, []byte(text))
}

// SendFrame queues a frame of the given format for one connection. It
// never blocks: a full send queue is reported as ErrUnavailable.
func (s *Server) SendFrame(id ConnID, format codec.Format, data []byte) error {
	s.mu.Lock()
	p, ok := s.byID[id]
	if !ok {
		isPending := false
		for _, candidate := range s.pending {
			if candidate.id == id {
				isPending = true
				break
			}
		}
		s.mu.Unlock()
		if isPending {
			return fmt.Errorf("%w: %s is %s", ErrUnavailable, id, StatePending)
		}
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.mu.Unlock()

	if state := p.State(); state != StateOpen {
		return fmt.Errorf("%w: %s is %s", ErrUnavailable, id, state)
	}
	if !p.enqueue(format, data) {
		return fmt.Errorf("%w: %s send queue full", ErrUnavailable, id)
	}
	return nil
}

// Broadcast sends text to every open connection. A failure on one
// connection does not stop the others. The returned error joins the
// individual failures. With no open connections Broadcast does nothing
// and returns nil.
func (s *Server) Broadcast(text string) error {
	s.mu.Lock()
	targets := make([]ConnID, 0, len(s.open))
	for _, p := range s.open {
		targets = append(targets, p.id)
	}
	s.mu.Unlock()

	var errs []error
	for _, id := range targets {
		if err := s.Send(id, text); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("broadcast reached %d of %d connections: %w", len(targets)-len(errs), len(targets), errors.Join(errs...))
	}
	return nil
}

func (s *Server) acceptLoop(listener net.Listener, accepted chan<- net.Conn, done <-chan struct{}) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", "error", err)
			wait := make(chan struct{})
			timer := s.clock.AfterFunc(acceptBackoff, func() { close(wait) })
			select {
			case <-wait:
				continue
			case <-done:
				timer.Stop()
				return
			}
		}
		select {
		case accepted <- conn:
		case <-done:
			conn.Close()
			return
		}
	}
}
