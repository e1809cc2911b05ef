// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

type envelope struct {
	ID     string         `json:"id"`
	Params map[string]any `json:"params,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func TestCBORUsesJSONTags(t *testing.T) {
	data, err := Marshal(CBOR, envelope{ID: "7"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	diagnostic, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if diagnostic != `{"id": "7"}` {
		t.Errorf("diagnostic = %s, want {\"id\": \"7\"}", diagnostic)
	}
}

func TestCBORNestedMapsDecodeAsStringKeyed(t *testing.T) {
	data, err := Marshal(CBOR, envelope{
		ID:     "1",
		Params: map[string]any{"position": map[string]any{"x": 3}},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded envelope
	if err := Unmarshal(CBOR, data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	position, ok := decoded.Params["position"].(map[string]any)
	if !ok {
		t.Fatalf("position decoded as %T, want map[string]any", decoded.Params["position"])
	}
	if position["x"] != uint64(3) {
		t.Errorf("x = %#v, want uint64(3)", position["x"])
	}
}

func TestCBORDeterministic(t *testing.T) {
	value := map[string]any{"b": 1, "a": 2, "c": []any{"x"}}
	first, err := Marshal(CBOR, value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(CBOR, value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("CBOR encoding is not deterministic")
		}
	}
}

func TestJSONOmitsEmpty(t *testing.T) {
	data, err := Marshal(JSON, envelope{ID: "1"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"id":"1"}` {
		t.Errorf("got %s", data)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := Marshal(Format(9), nil); err == nil || !strings.Contains(err.Error(), "format(9)") {
		t.Errorf("Marshal error = %v, want unsupported format(9)", err)
	}
	if err := Unmarshal(Format(9), nil, &envelope{}); err == nil {
		t.Error("Unmarshal with unknown format succeeded")
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var decoded envelope
	if err := Unmarshal(CBOR, []byte{0xff, 0x00}, &decoded); err == nil {
		t.Error("expected error for invalid CBOR")
	}
}
