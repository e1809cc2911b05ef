// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package system is the "system" command category: liveness, build
// identification, and delayed notifications pushed to every client.
package system

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LeanderM99/GodotMCP/lib/clock"
	"github.com/LeanderM99/GodotMCP/lib/command"
	"github.com/LeanderM99/GodotMCP/lib/schedule"
	"github.com/LeanderM99/GodotMCP/lib/version"
)

// Category is the name the handler registers under.
const Category = "system"

// Broadcaster pushes an unsolicited text frame to every open
// connection. *host.Host satisfies it.
type Broadcaster interface {
	Broadcast(text string) error
}

// Deps are the collaborators of the system commands.
type Deps struct {
	Scheduler   *schedule.Scheduler
	Broadcaster Broadcaster
	// Categories lists the router's registered categories.
	Categories func() []string
	Clock      clock.Clock
	Logger     *slog.Logger
}

// New returns the system command table.
func New(deps Deps) *command.Table {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &system{deps: deps}
	return command.NewTable(Category).
		Add("ping", command.Spec{Run: s.ping}).
		Add("version", command.Spec{Run: s.version}).
		Add("categories", command.Spec{Run: s.categories}).
		Add("notify", command.Spec{Required: []string{"message"}, Run: s.notify})
}

type system struct {
	deps Deps
}

func (s *system) ping(command.Params) (any, error) {
	return map[string]any{
		"pong": true,
		"time": s.deps.Clock.Now().UnixMilli(),
	}, nil
}

func (s *system) version(command.Params) (any, error) {
	return version.Fields(), nil
}

func (s *system) categories(command.Params) (any, error) {
	if s.deps.Categories == nil {
		return map[string]any{"categories": []string{}}, nil
	}
	return map[string]any{"categories": s.deps.Categories()}, nil
}

// notifyEvent is the frame broadcast when a notification comes due.
type notifyEvent struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

func (s *system) notify(params command.Params) (any, error) {
	if s.deps.Scheduler == nil || s.deps.Broadcaster == nil {
		return nil, errors.New("notifications are not available on this host")
	}
	message, err := params.String("message", "")
	if err != nil {
		return nil, err
	}
	delayMS, err := params.Int("delay_ms", 0)
	if err != nil {
		return nil, err
	}
	if delayMS < 0 {
		return nil, fmt.Errorf("delay_ms must not be negative, got %d", delayMS)
	}

	frame, err := json.Marshal(notifyEvent{Event: "notify", Message: message})
	if err != nil {
		return nil, err
	}
	s.deps.Scheduler.After(time.Duration(delayMS)*time.Millisecond, func() {
		if err := s.deps.Broadcaster.Broadcast(string(frame)); err != nil {
			s.deps.Logger.Warn("notify broadcast incomplete", "error", err)
		}
	})
	return map[string]any{"scheduled": true, "delay_ms": delayMS}, nil
}
