// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// pendingPeer is an accepted stream whose upgrade is running on its own
// goroutine. The goroutine reports exactly once on result.
type pendingPeer struct {
	id         ConnID
	conn       net.Conn
	acceptedAt time.Time
	result     chan handshakeResult
}

type handshakeResult struct {
	ws  *websocket.Conn
	err error
}

func newUpgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		// Rejections are silent: the stream is closed with no HTTP
		// response, same as a timed-out handshake.
		Error: func(http.ResponseWriter, *http.Request, int, error) {},
	}
}

// upgrade reads the HTTP upgrade request straight off an accepted
// stream and completes the WebSocket handshake on it. It blocks until
// the request arrives, the request is rejected, or conn is closed.
//
// A client may send its first frame in the same segment as the
// request. Those bytes end up in the request reader, and the upgrader
// refuses a hijacked reader that still holds data, so the WebSocket
// connection is built on a stream that replays them first.
func upgrade(upgrader *websocket.Upgrader, conn net.Conn) (*websocket.Conn, error) {
	reader := bufio.NewReader(conn)
	request, err := http.ReadRequest(reader)
	if err != nil {
		return nil, fmt.Errorf("reading upgrade request: %w", err)
	}
	stream := conn
	if reader.Buffered() > 0 {
		stream = &replayConn{Conn: conn, buffered: reader}
	}
	writer := &hijackWriter{
		conn:   stream,
		rw:     bufio.NewReadWriter(bufio.NewReader(stream), bufio.NewWriter(stream)),
		header: make(http.Header),
	}
	ws, err := upgrader.Upgrade(writer, request, nil)
	if err != nil {
		return nil, fmt.Errorf("upgrading %s: %w", conn.RemoteAddr(), err)
	}
	return ws, nil
}

// hijackWriter is the http.ResponseWriter handed to the upgrader. The
// upgrader only hijacks it, so the plain HTTP write path discards.
type hijackWriter struct {
	conn   net.Conn
	rw     *bufio.ReadWriter
	header http.Header
}

func (w *hijackWriter) Header() http.Header { return w.header }
func (w *hijackWriter) Write(data []byte) (int, error) { return len(data), nil }
func (w *hijackWriter) WriteHeader(int) {}

func (w *hijackWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.conn, w.rw, nil
}

// replayConn reads the bytes buffered past the upgrade request before
// reading from the stream again.
type replayConn struct {
	net.Conn
	buffered *bufio.Reader
}

func (c *replayConn) Read(data []byte) (int, error) {
	if c.buffered != nil {
		if c.buffered.Buffered() > 0 {
			return c.buffered.Read(data)
		}
		c.buffered = nil
	}
	return c.Conn.Read(data)
}
