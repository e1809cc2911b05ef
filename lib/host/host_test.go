// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/LeanderM99/GodotMCP/lib/client"
	"github.com/LeanderM99/GodotMCP/lib/clock"
	"github.com/LeanderM99/GodotMCP/lib/handlers/system"
	"github.com/LeanderM99/GodotMCP/lib/router"
	"github.com/LeanderM99/GodotMCP/lib/schedule"
	"github.com/LeanderM99/GodotMCP/lib/testutil"
)

const waitTimeout = 5 * time.Second

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newHost wires a Host with the system category registered.
func newHost(config Config) *Host {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	config.Logger = quietLogger()
	commands := router.New(config.Logger)
	scheduler := schedule.New(config.Clock, config.Logger)
	h := New(config, commands, scheduler)
	commands.RegisterHandler(system.Category, system.New(system.Deps{
		Scheduler:   scheduler,
		Broadcaster: h,
		Categories:  commands.Categories,
		Clock:       config.Clock,
		Logger:      config.Logger,
	}))
	return h
}

// runHost runs h until the test ends and returns its address.
func runHost(t *testing.T, h *Host) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := testutil.RequireReceive(t, done, waitTimeout, "waiting for Run to return"); err != nil {
			t.Errorf("Run: %v", err)
		}
	})
	testutil.Eventually(t, waitTimeout, func() bool { return h.Server().Addr() != nil }, "waiting for host to listen")
	return h.Server().Addr().String()
}

type frame struct {
	ID      string         `json:"id"`
	Success bool           `json:"success"`
	Data    map[string]any `json:"data"`
	Error   string         `json:"error"`
	Event   string         `json:"event"`
	Message string         `json:"message"`
}

// readFrames decodes every text frame ws receives until it closes.
func readFrames(ws *websocket.Conn) <-chan frame {
	frames := make(chan frame, 16)
	go func() {
		defer close(frames)
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			var decoded frame
			if json.Unmarshal(data, &decoded) == nil {
				frames <- decoded
			}
		}
	}()
	return frames
}

func TestHostServesClient(t *testing.T) {
	h := newHost(Config{})
	address := runHost(t, h)

	agent := client.New(client.Config{Address: address, Logger: quietLogger()})
	t.Cleanup(func() { agent.Close() })
	ctx := context.Background()

	data, err := agent.Send(ctx, "system", "ping", nil)
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	var pong struct {
		Pong bool  `json:"pong"`
		Time int64 `json:"time"`
	}
	if err := json.Unmarshal(data, &pong); err != nil || !pong.Pong || pong.Time == 0 {
		t.Fatalf("ping data = %s (%v)", data, err)
	}

	_, err = agent.Send(ctx, "scene", "get_tree", nil)
	var commandErr *client.CommandError
	if !errors.As(err, &commandErr) || commandErr.Message != "Unknown category: scene" {
		t.Fatalf("unknown category error = %v", err)
	}

	_, err = agent.Send(ctx, "system", "reboot", nil)
	if !errors.As(err, &commandErr) || commandErr.Message != "Unknown system command: reboot" {
		t.Fatalf("unknown command error = %v", err)
	}
}

func TestHostBroadcastsNotification(t *testing.T) {
	h := newHost(Config{})
	address := runHost(t, h)

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+address, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	frames := readFrames(ws)

	command := `{"id":"n1","category":"system","command":"notify","params":{"message":"build finished"}}`
	if err := ws.WriteMessage(websocket.TextMessage, []byte(command)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	response := testutil.RequireReceive(t, frames, waitTimeout, "waiting for notify response")
	if response.ID != "n1" || !response.Success || response.Data["scheduled"] != true {
		t.Fatalf("response = %+v", response)
	}
	event := testutil.RequireReceive(t, frames, waitTimeout, "waiting for notify event")
	if event.Event != "notify" || event.Message != "build finished" {
		t.Fatalf("event = %+v", event)
	}
}

func TestHostRateLimit(t *testing.T) {
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	h := newHost(Config{RateLimit: 1, RateBurst: 2, Clock: fake})
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(h.Stop)

	dialed := make(chan *websocket.Conn, 1)
	go func() {
		ws, _, err := websocket.DefaultDialer.Dial("ws://"+h.Server().Addr().String(), nil)
		if err != nil {
			close(dialed)
			return
		}
		dialed <- ws
	}()
	testutil.Eventually(t, waitTimeout, func() bool {
		h.Tick()
		return len(h.Server().Connections()) == 1
	}, "waiting for connection")
	ws := testutil.RequireReceive(t, dialed, waitTimeout, "waiting for dial")
	if ws == nil {
		t.Fatal("dial failed")
	}
	t.Cleanup(func() { ws.Close() })
	frames := readFrames(ws)

	ping := func(id string) {
		t.Helper()
		command := `{"id":"` + id + `","category":"system","command":"ping"}`
		if err := ws.WriteMessage(websocket.TextMessage, []byte(command)); err != nil {
			t.Fatalf("WriteMessage: %v", err)
		}
	}
	collect := func(n int) []frame {
		t.Helper()
		var got []frame
		testutil.Eventually(t, waitTimeout, func() bool {
			h.Tick()
		drain:
			for {
				select {
				case f := <-frames:
					got = append(got, f)
				default:
					break drain
				}
			}
			return len(got) >= n
		}, "waiting for %d responses", n)
		return got
	}

	ping("1")
	ping("2")
	ping("3")
	got := collect(3)
	for i, want := range []string{"1", "2", "3"} {
		if got[i].ID != want {
			t.Fatalf("response %d id = %q, want %q", i, got[i].ID, want)
		}
	}
	if !got[0].Success || !got[1].Success {
		t.Fatalf("burst responses failed: %+v", got[:2])
	}
	if got[2].Success || got[2].Error != RateLimitedMessage {
		t.Fatalf("over-limit response = %+v", got[2])
	}

	fake.Advance(time.Second)
	ping("4")
	if got := collect(1); got[0].ID != "4" || !got[0].Success {
		t.Fatalf("response after refill = %+v", got[0])
	}
}

func TestHostStopClosesClients(t *testing.T) {
	h := newHost(Config{})
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	address := h.Server().Addr().String()

	dialed := make(chan *websocket.Conn, 1)
	go func() {
		ws, _, err := websocket.DefaultDialer.Dial("ws://"+address, nil)
		if err != nil {
			close(dialed)
			return
		}
		dialed <- ws
	}()
	testutil.Eventually(t, waitTimeout, func() bool {
		h.Tick()
		return len(h.Server().Connections()) == 1
	}, "waiting for connection")
	ws := testutil.RequireReceive(t, dialed, waitTimeout)
	if ws == nil {
		t.Fatal("dial failed")
	}
	defer ws.Close()

	h.Stop()
	if h.Server().Running() {
		t.Fatal("server still running after Stop")
	}
	ws.SetReadDeadline(time.Now().Add(waitTimeout))
	_, _, err := ws.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("ReadMessage after Stop = %v, want going-away close", err)
	}
}
