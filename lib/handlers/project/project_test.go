// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package project

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/LeanderM99/GodotMCP/lib/command"
	"github.com/LeanderM99/GodotMCP/lib/router"
)

const projectGodot = `; Engine configuration file.
config_version=5

[application]

config/name="Demo"
run/main_scene="uid://bmain"
config/features=PackedStringArray("4.3", "C#")

[display]

window/size/viewport_width=1280
window/stretch/scale=1.5

[input]

ui_jump={
"deadzone": 0.5,
"events": []
}
`

// newProject lays out a small Godot project and returns its table.
func newProject(t *testing.T) (*command.Table, string) {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"project.godot":            projectGodot,
		"icon.svg":                 "<svg/>",
		"icon.svg.import":          "[remap]\n\nimporter=\"texture\"\nuid=\"uid://bicon\"\n",
		"scenes/main.tscn":         "[gd_scene load_steps=2 format=3 uid=\"uid://bmain\"]\n\n[node name=\"Main\" type=\"Node2D\"]\n",
		"scenes/enemies/bat.tscn":  "[gd_scene format=3 uid=\"uid://bbat\"]\n",
		"scripts/player.gd":        "extends CharacterBody2D\n",
		"scripts/player.gd.uid":    "uid://bplayer\n",
		".godot/editor/cache.tscn": "[gd_scene format=3 uid=\"uid://bhidden\"]\n",
	}
	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return New(Deps{Root: dir}), dir
}

func mustSucceed(t *testing.T, result router.Result) map[string]any {
	t.Helper()
	if !result.OK() {
		t.Fatalf("command failed: %s", result.Message())
	}
	return result.Data().(map[string]any)
}

func mustFail(t *testing.T, result router.Result, want string) {
	t.Helper()
	if result.OK() {
		t.Fatalf("command succeeded with %v, want failure %q", result.Data(), want)
	}
	if !strings.HasPrefix(result.Message(), want) {
		t.Fatalf("message = %q, want prefix %q", result.Message(), want)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr string
	}{
		{"res://", ".", ""},
		{"res://scenes/main.tscn", "scenes/main.tscn", ""},
		{"scenes/./main.tscn", "scenes/main.tscn", ""},
		{"res://scenes/../icon.svg", "icon.svg", ""},
		{`res://scenes\main.tscn`, "scenes/main.tscn", ""},
		{"res://../outside", "", "Path escapes project root: res://../outside"},
		{"res://scenes/../../outside", "", "Path escapes project root"},
		{"res:///etc/passwd", "", "Path escapes project root"},
		{"/etc/passwd", "", "Path escapes project root"},
		{"user://save.dat", "", "Only res:// paths are supported: user://save.dat"},
	}
	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			got, err := resolve(test.input)
			if test.wantErr != "" {
				if err == nil || !strings.HasPrefix(err.Error(), test.wantErr) {
					t.Fatalf("resolve(%q) error = %v, want %q", test.input, err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolve(%q): %v", test.input, err)
			}
			if got != test.want {
				t.Errorf("resolve(%q) = %q, want %q", test.input, got, test.want)
			}
		})
	}
}

func TestHashContent(t *testing.T) {
	if got, want := HashContent([]byte("abc")), "6437b3ac38465133ffb63b75273a8db548c558465d79db03fd359c6cd5bd9d85"; got != want {
		t.Errorf("HashContent(abc) = %s, want %s", got, want)
	}
}

func TestGetSettings(t *testing.T) {
	table, _ := newProject(t)
	settings := mustSucceed(t, table.Handle("get_settings", nil))["settings"].(map[string]any)

	want := map[string]any{
		"config_version":                     int64(5),
		"application/config/name":            "Demo",
		"application/run/main_scene":         "uid://bmain",
		"application/config/features":        `PackedStringArray("4.3", "C#")`,
		"display/window/size/viewport_width": int64(1280),
		"display/window/stretch/scale":       1.5,
	}
	for name, value := range want {
		if settings[name] != value {
			t.Errorf("settings[%q] = %#v, want %#v", name, settings[name], value)
		}
	}
	jump, _ := settings["input/ui_jump"].(string)
	if !strings.HasPrefix(jump, "{") || !strings.Contains(jump, `"deadzone": 0.5`) || !strings.HasSuffix(jump, "}") {
		t.Errorf("multi-line value = %q", jump)
	}
	if len(settings) != 7 {
		t.Errorf("parsed %d settings, want 7: %v", len(settings), settings)
	}
}

func TestGetSettingsBySection(t *testing.T) {
	table, _ := newProject(t)
	settings := mustSucceed(t, table.Handle("get_settings", map[string]any{"section": "display"}))["settings"].(map[string]any)
	if len(settings) != 2 {
		t.Fatalf("display settings = %v, want 2 entries", settings)
	}

	value := mustSucceed(t, table.Handle("get_settings", map[string]any{"section": "application", "key": "config/name"}))["value"]
	if value != "Demo" {
		t.Errorf("value = %v, want Demo", value)
	}

	mustFail(t, table.Handle("get_settings", map[string]any{"section": "application", "key": "missing"}),
		"Setting not found: application/missing")
}

func TestGetSettingsWithoutProjectFile(t *testing.T) {
	table := New(Deps{Root: t.TempDir()})
	mustFail(t, table.Handle("get_settings", nil), "File not found: res://project.godot")
}

func TestListFiles(t *testing.T) {
	table, _ := newProject(t)
	tests := []struct {
		name   string
		params map[string]any
		want   []string
	}{
		{
			name:   "root",
			params: map[string]any{},
			want:   []string{"res://icon.svg", "res://icon.svg.import", "res://project.godot"},
		},
		{
			name:   "recursive extension",
			params: map[string]any{"recursive": true, "filter": "*.TSCN"},
			want:   []string{"res://scenes/enemies/bat.tscn", "res://scenes/main.tscn"},
		},
		{
			name:   "substring",
			params: map[string]any{"path": "res://scripts", "filter": "PLAYER"},
			want:   []string{"res://scripts/player.gd", "res://scripts/player.gd.uid"},
		},
		{
			name:   "shallow subdirectory",
			params: map[string]any{"path": "res://scenes/"},
			want:   []string{"res://scenes/main.tscn"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			files := mustSucceed(t, table.Handle("list_files", test.params))["files"].([]string)
			if !slices.Equal(files, test.want) {
				t.Errorf("files = %v, want %v", files, test.want)
			}
		})
	}
}

func TestListFilesErrors(t *testing.T) {
	table, _ := newProject(t)
	mustFail(t, table.Handle("list_files", map[string]any{"path": "res://missing"}), "Directory not found: res://missing")
	mustFail(t, table.Handle("list_files", map[string]any{"path": "res://icon.svg"}), "Directory not found")
	mustFail(t, table.Handle("list_files", map[string]any{"path": "res://.."}), "Path escapes project root")
	mustFail(t, table.Handle("list_files", map[string]any{"recursive": "yes"}), "parameter recursive must be a boolean, got string")
}

func TestReadFile(t *testing.T) {
	table, _ := newProject(t)
	data := mustSucceed(t, table.Handle("read_file", map[string]any{"path": "scripts/player.gd"}))
	if data["path"] != "res://scripts/player.gd" {
		t.Errorf("path = %v", data["path"])
	}
	if data["content"] != "extends CharacterBody2D\n" {
		t.Errorf("content = %q", data["content"])
	}
	if data["hash"] != HashContent([]byte("extends CharacterBody2D\n")) {
		t.Errorf("hash = %v", data["hash"])
	}

	mustFail(t, table.Handle("read_file", map[string]any{"path": "res://nope.gd"}), "File not found: res://nope.gd")
	mustFail(t, table.Handle("read_file", map[string]any{}), "Missing required parameter: path")
}

func TestReadFileThroughEscapingSymlink(t *testing.T) {
	table, dir := newProject(t)
	outside := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(dir, "link.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	result := table.Handle("read_file", map[string]any{"path": "res://link.txt"})
	if result.OK() {
		t.Fatalf("read through escaping symlink returned %v", result.Data())
	}
}

func TestWriteFile(t *testing.T) {
	table, dir := newProject(t)
	data := mustSucceed(t, table.Handle("write_file", map[string]any{
		"path":    "res://scripts/ai/enemy.gd",
		"content": "extends Node\n",
	}))
	if data["path"] != "res://scripts/ai/enemy.gd" || data["hash"] != HashContent([]byte("extends Node\n")) {
		t.Errorf("data = %v", data)
	}
	written, err := os.ReadFile(filepath.Join(dir, "scripts", "ai", "enemy.gd"))
	if err != nil {
		t.Fatal(err)
	}
	if string(written) != "extends Node\n" {
		t.Errorf("written = %q", written)
	}
}

func TestWriteFileExpectedHash(t *testing.T) {
	table, dir := newProject(t)
	current := HashContent([]byte("extends CharacterBody2D\n"))

	mustFail(t, table.Handle("write_file", map[string]any{
		"path":          "res://scripts/player.gd",
		"content":       "changed",
		"expected_hash": HashContent([]byte("stale")),
	}), "Conflict: res://scripts/player.gd has hash "+current)

	unchanged, _ := os.ReadFile(filepath.Join(dir, "scripts", "player.gd"))
	if string(unchanged) != "extends CharacterBody2D\n" {
		t.Fatalf("conflicting write modified the file: %q", unchanged)
	}

	mustSucceed(t, table.Handle("write_file", map[string]any{
		"path":          "res://scripts/player.gd",
		"content":       "changed",
		"expected_hash": strings.ToUpper(current),
	}))

	mustFail(t, table.Handle("write_file", map[string]any{
		"path":          "res://scripts/new.gd",
		"content":       "x",
		"expected_hash": current,
	}), "Conflict: res://scripts/new.gd does not exist")
}

func TestWriteFileErrors(t *testing.T) {
	table, _ := newProject(t)
	mustFail(t, table.Handle("write_file", map[string]any{"path": "res://x.gd"}), "Missing required parameter: content")
	mustFail(t, table.Handle("write_file", map[string]any{"path": "res://", "content": ""}), "Cannot write to: res://")
	mustFail(t, table.Handle("write_file", map[string]any{"path": "res://../x.gd", "content": ""}), "Path escapes project root")
}

func TestGetUID(t *testing.T) {
	table, _ := newProject(t)
	tests := []struct {
		path string
		uid  string
	}{
		{"res://scripts/player.gd", "uid://bplayer"},
		{"res://scenes/main.tscn", "uid://bmain"},
		{"res://icon.svg", "uid://bicon"},
	}
	for _, test := range tests {
		data := mustSucceed(t, table.Handle("get_uid", map[string]any{"path": test.path}))
		if data["uid"] != test.uid || data["path"] != test.path {
			t.Errorf("get_uid(%s) = %v, want uid %s", test.path, data, test.uid)
		}
	}
	mustFail(t, table.Handle("get_uid", map[string]any{"path": "res://project.godot"}), "No UID found for: res://project.godot")
	mustFail(t, table.Handle("get_uid", map[string]any{"path": "res://gone.tscn"}), "File not found: res://gone.tscn")
}

func TestGetPathFromUID(t *testing.T) {
	table, _ := newProject(t)
	tests := []struct {
		uid  string
		path string
	}{
		{"uid://bmain", "res://scenes/main.tscn"},
		{"uid://bbat", "res://scenes/enemies/bat.tscn"},
		{"uid://bplayer", "res://scripts/player.gd"},
		{"uid://bicon", "res://icon.svg"},
	}
	for _, test := range tests {
		data := mustSucceed(t, table.Handle("get_path_from_uid", map[string]any{"uid": test.uid}))
		if data["path"] != test.path || data["uid"] != test.uid {
			t.Errorf("get_path_from_uid(%s) = %v, want %s", test.uid, data, test.path)
		}
	}
	mustFail(t, table.Handle("get_path_from_uid", map[string]any{"uid": "uid://bhidden"}), "UID not found: uid://bhidden")
	mustFail(t, table.Handle("get_path_from_uid", map[string]any{"uid": "res://main.tscn"}), "Invalid UID: res://main.tscn")
}

func TestNoRootConfigured(t *testing.T) {
	mustFail(t, New(Deps{}).Handle("read_file", map[string]any{"path": "res://a.gd"}), "no project root configured")
}
