// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"errors"
	"testing"
)

func TestTableDispatch(t *testing.T) {
	table := NewTable("node").
		Add("rename", Spec{
			Required: []string{"node_path", "new_name"},
			Run: func(params Params) (any, error) {
				name, err := params.String("new_name", "")
				if err != nil {
					return nil, err
				}
				return map[string]any{"name": name}, nil
			},
		}).
		Add("delete", Spec{
			Required: []string{"node_path"},
			Run:      func(Params) (any, error) { return nil, errors.New("node is locked") },
		})

	tests := []struct {
		name        string
		command     string
		params      map[string]any
		wantOK      bool
		wantMessage string
	}{
		{"success", "rename", map[string]any{"node_path": "Main/Player", "new_name": "Hero"}, true, ""},
		{"missing required", "rename", map[string]any{"node_path": "Main/Player"}, false, "Missing required parameter: new_name"},
		{"null counts as missing", "rename", map[string]any{"node_path": nil, "new_name": "x"}, false, "Missing required parameter: node_path"},
		{"wrong type", "rename", map[string]any{"node_path": "a", "new_name": 3.0}, false, "parameter new_name must be a string, got number"},
		{"run error", "delete", map[string]any{"node_path": "a"}, false, "node is locked"},
		{"unknown command", "fly", map[string]any{}, false, "Unknown node command: fly"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := table.Handle(test.command, test.params)
			if result.OK() != test.wantOK {
				t.Fatalf("OK() = %v, want %v (message %q)", result.OK(), test.wantOK, result.Message())
			}
			if result.Message() != test.wantMessage {
				t.Errorf("Message() = %q, want %q", result.Message(), test.wantMessage)
			}
		})
	}
}

func TestTableDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("duplicate Add did not panic")
		}
	}()
	run := func(Params) (any, error) { return nil, nil }
	NewTable("scene").Add("open", Spec{Run: run}).Add("open", Spec{Run: run})
}

func TestTableNames(t *testing.T) {
	run := func(Params) (any, error) { return nil, nil }
	table := NewTable("scene").Add("save", Spec{Run: run}).Add("open", Spec{Run: run})
	if names := table.Names(); len(names) != 2 || names[0] != "open" || names[1] != "save" {
		t.Errorf("Names() = %v", names)
	}
}

func TestParamsNumbers(t *testing.T) {
	params := Params{
		"json":     42.0,
		"cbor":     uint64(7),
		"negative": int64(-3),
		"fraction": 1.5,
		"text":     "10",
	}

	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"json", 42, false},
		{"cbor", 7, false},
		{"negative", -3, false},
		{"fraction", 0, true},
		{"text", 0, true},
		{"absent", 99, false},
	}
	for _, test := range tests {
		got, err := params.Int(test.name, 99)
		if (err != nil) != test.wantErr {
			t.Errorf("Int(%q) error = %v, wantErr %v", test.name, err, test.wantErr)
			continue
		}
		if !test.wantErr && got != test.want {
			t.Errorf("Int(%q) = %d, want %d", test.name, got, test.want)
		}
	}

	if value, err := params.Float("fraction", 0); err != nil || value != 1.5 {
		t.Errorf("Float(fraction) = %v, %v", value, err)
	}
	if value, err := params.Float("cbor", 0); err != nil || value != 7 {
		t.Errorf("Float(cbor) = %v, %v", value, err)
	}
}

func TestParamsDefaultsAndTypes(t *testing.T) {
	params := Params{
		"recursive": true,
		"position":  map[string]any{"x": 1.0},
		"steps":     []any{"a"},
		"name":      nil,
	}
	if value, _ := params.Bool("recursive", false); !value {
		t.Error("Bool(recursive) = false")
	}
	if value, _ := params.Bool("missing", true); !value {
		t.Error("Bool default not applied")
	}
	if value, _ := params.String("name", "fallback"); value != "fallback" {
		t.Errorf("String on null = %q, want fallback", value)
	}
	if object, err := params.Map("position"); err != nil || object["x"] != 1.0 {
		t.Errorf("Map(position) = %v, %v", object, err)
	}
	if list, err := params.Slice("steps"); err != nil || len(list) != 1 {
		t.Errorf("Slice(steps) = %v, %v", list, err)
	}
	if _, err := params.Map("steps"); err == nil {
		t.Error("Map on array succeeded")
	}
	if _, err := params.Bool("position", false); err == nil {
		t.Error("Bool on object succeeded")
	}
}
