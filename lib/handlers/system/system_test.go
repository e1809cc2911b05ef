// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package system

import (
	"errors"
	"testing"
	"time"

	"github.com/LeanderM99/GodotMCP/lib/clock"
	"github.com/LeanderM99/GodotMCP/lib/schedule"
	"github.com/LeanderM99/GodotMCP/lib/version"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type recordingBroadcaster struct {
	frames []string
	err    error
}

func (b *recordingBroadcaster) Broadcast(text string) error {
	b.frames = append(b.frames, text)
	return b.err
}

func newFixture() (*clock.Fake, *schedule.Scheduler, *recordingBroadcaster, Deps) {
	fake := clock.NewFake(epoch)
	scheduler := schedule.New(fake, nil)
	broadcaster := &recordingBroadcaster{}
	deps := Deps{
		Scheduler:   scheduler,
		Broadcaster: broadcaster,
		Categories:  func() []string { return []string{"project", "system"} },
		Clock:       fake,
	}
	return fake, scheduler, broadcaster, deps
}

func TestPing(t *testing.T) {
	_, _, _, deps := newFixture()
	result := New(deps).Handle("ping", map[string]any{})
	if !result.OK() {
		t.Fatalf("ping failed: %s", result.Message())
	}
	data := result.Data().(map[string]any)
	if data["pong"] != true {
		t.Errorf("pong = %v, want true", data["pong"])
	}
	if data["time"] != epoch.UnixMilli() {
		t.Errorf("time = %v, want %d", data["time"], epoch.UnixMilli())
	}
}

func TestVersion(t *testing.T) {
	_, _, _, deps := newFixture()
	result := New(deps).Handle("version", nil)
	if !result.OK() {
		t.Fatalf("version failed: %s", result.Message())
	}
	if got := result.Data().(map[string]any)["version"]; got != version.Short() {
		t.Errorf("version = %v, want %s", got, version.Short())
	}
}

func TestCategories(t *testing.T) {
	_, _, _, deps := newFixture()
	result := New(deps).Handle("categories", nil)
	got := result.Data().(map[string]any)["categories"].([]string)
	if len(got) != 2 || got[0] != "project" || got[1] != "system" {
		t.Errorf("categories = %v", got)
	}
}

func TestNotifyBroadcastsWhenDue(t *testing.T) {
	fake, scheduler, broadcaster, deps := newFixture()
	table := New(deps)

	result := table.Handle("notify", map[string]any{"message": "scene saved", "delay_ms": float64(250)})
	if !result.OK() {
		t.Fatalf("notify failed: %s", result.Message())
	}
	data := result.Data().(map[string]any)
	if data["scheduled"] != true || data["delay_ms"] != 250 {
		t.Errorf("data = %v", data)
	}

	if ran := scheduler.RunDue(); ran != 0 {
		t.Fatalf("RunDue before delay ran %d callbacks", ran)
	}
	fake.Advance(250 * time.Millisecond)
	if ran := scheduler.RunDue(); ran != 1 {
		t.Fatalf("RunDue after delay ran %d callbacks, want 1", ran)
	}
	want := `{"event":"notify","message":"scene saved"}`
	if len(broadcaster.frames) != 1 || broadcaster.frames[0] != want {
		t.Fatalf("frames = %q, want [%q]", broadcaster.frames, want)
	}
}

func TestNotifyBroadcastErrorIsLogged(t *testing.T) {
	_, scheduler, broadcaster, deps := newFixture()
	broadcaster.err = errors.New("broadcast reached 0 of 1 connections")
	if result := New(deps).Handle("notify", map[string]any{"message": "x"}); !result.OK() {
		t.Fatalf("notify failed: %s", result.Message())
	}
	if ran := scheduler.RunDue(); ran != 1 {
		t.Fatalf("RunDue ran %d, want 1", ran)
	}
}

func TestNotifyErrors(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   string
	}{
		{"missing message", map[string]any{}, "Missing required parameter: message"},
		{"message type", map[string]any{"message": float64(3)}, "parameter message must be a string, got number"},
		{"negative delay", map[string]any{"message": "x", "delay_ms": float64(-1)}, "delay_ms must not be negative, got -1"},
		{"fractional delay", map[string]any{"message": "x", "delay_ms": 1.5}, "parameter delay_ms must be an integer, got number"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, scheduler, _, deps := newFixture()
			result := New(deps).Handle("notify", test.params)
			if result.OK() {
				t.Fatal("notify succeeded")
			}
			if result.Message() != test.want {
				t.Errorf("message = %q, want %q", result.Message(), test.want)
			}
			if scheduler.Len() != 0 {
				t.Errorf("scheduler has %d tasks after a failed notify", scheduler.Len())
			}
		})
	}
}

func TestNotifyWithoutScheduler(t *testing.T) {
	result := New(Deps{}).Handle("notify", map[string]any{"message": "x"})
	if result.OK() {
		t.Fatal("notify succeeded without a scheduler")
	}
}
