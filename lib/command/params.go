// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"fmt"
	"math"
)

// Params is a typed view over an envelope's params map. Numbers arrive
// as float64 from JSON frames and as uint64 or int64 from CBOR frames.
// The numeric accessors accept all three.
type Params map[string]any

// Has reports whether name is present and not null.
func (p Params) Has(name string) bool {
	value, ok := p[name]
	return ok && value != nil
}

// String returns the named string, or fallback when absent. A present
// value of another type is an error.
func (p Params) String(name, fallback string) (string, error) {
	if !p.Has(name) {
		return fallback, nil
	}
	text, ok := p[name].(string)
	if !ok {
		return "", typeError(name, "a string", p[name])
	}
	return text, nil
}

func (p Params) Bool(name string, fallback bool) (bool, error) {
	if !p.Has(name) {
		return fallback, nil
	}
	flag, ok := p[name].(bool)
	if !ok {
		return false, typeError(name, "a boolean", p[name])
	}
	return flag, nil
}

func (p Params) Float(name string, fallback float64) (float64, error) {
	if !p.Has(name) {
		return fallback, nil
	}
	switch number := p[name].(type) {
	case float64:
		return number, nil
	case float32:
		return float64(number), nil
	case uint64:
		return float64(number), nil
	case int64:
		return float64(number), nil
	case int:
		return float64(number), nil
	}
	return 0, typeError(name, "a number", p[name])
}

// Int rejects numbers with a fractional part.
func (p Params) Int(name string, fallback int) (int, error) {
	if !p.Has(name) {
		return fallback, nil
	}
	switch number := p[name].(type) {
	case int:
		return number, nil
	case int64:
		return int(number), nil
	case uint64:
		if number > math.MaxInt {
			return 0, fmt.Errorf("parameter %s is out of range", name)
		}
		return int(number), nil
	case float64:
		if number != math.Trunc(number) || math.IsInf(number, 0) {
			return 0, typeError(name, "an integer", p[name])
		}
		return int(number), nil
	}
	return 0, typeError(name, "an integer", p[name])
}

func (p Params) Map(name string) (map[string]any, error) {
	if !p.Has(name) {
		return nil, nil
	}
	object, ok := p[name].(map[string]any)
	if !ok {
		return nil, typeError(name, "an object", p[name])
	}
	return object, nil
}

func (p Params) Slice(name string) ([]any, error) {
	if !p.Has(name) {
		return nil, nil
	}
	list, ok := p[name].([]any)
	if !ok {
		return nil, typeError(name, "an array", p[name])
	}
	return list, nil
}

func typeError(name, want string, got any) error {
	return fmt.Errorf("parameter %s must be %s, got %s", name, want, jsonType(got))
}

func jsonType(value any) string {
	switch value.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64, uint64:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", value)
	}
}
