// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
)

// prepareArguments decodes a tools/call arguments object, fills in
// schema defaults, and checks it against the tool's schema. Only the
// top level and one level of nested objects and array items are
// checked; the editor validates the rest.
func prepareArguments(schema *Schema, raw json.RawMessage) (map[string]any, error) {
	arguments := map[string]any{}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if err := json.Unmarshal(trimmed, &arguments); err != nil {
			return nil, fmt.Errorf("arguments must be an object: %w", err)
		}
		if arguments == nil {
			arguments = map[string]any{}
		}
	}
	if schema == nil {
		return arguments, nil
	}
	if err := checkObject("", schema, arguments); err != nil {
		return nil, err
	}
	return arguments, nil
}

func checkObject(prefix string, schema *Schema, object map[string]any) error {
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		property := schema.Properties[name]
		if _, present := object[name]; !present && property.Default != nil {
			object[name] = property.Default
		}
	}
	for _, name := range schema.Required {
		if value, present := object[name]; !present || value == nil {
			return fmt.Errorf("missing required argument %q", prefix+name)
		}
	}
	for _, name := range names {
		value, present := object[name]
		if !present {
			continue
		}
		if err := checkValue(prefix+name, schema.Properties[name], value); err != nil {
			return err
		}
	}
	return nil
}

func checkValue(name string, schema *Schema, value any) error {
	if value == nil {
		return nil
	}
	switch schema.Type {
	case "string":
		if _, ok := value.(string); !ok {
			return typeMismatch(name, schema.Type, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return typeMismatch(name, schema.Type, value)
		}
	case "number", "integer":
		number, ok := value.(float64)
		if !ok {
			return typeMismatch(name, schema.Type, value)
		}
		if schema.Type == "integer" && number != math.Trunc(number) {
			return typeMismatch(name, schema.Type, value)
		}
		if schema.Minimum != nil && number < *schema.Minimum {
			return fmt.Errorf("argument %q must be at least %v", name, *schema.Minimum)
		}
		if schema.Maximum != nil && number > *schema.Maximum {
			return fmt.Errorf("argument %q must be at most %v", name, *schema.Maximum)
		}
	case "object":
		object, ok := value.(map[string]any)
		if !ok {
			return typeMismatch(name, schema.Type, value)
		}
		if len(schema.Properties) > 0 || len(schema.Required) > 0 {
			if err := checkObject(name+".", schema, object); err != nil {
				return err
			}
		}
	case "array":
		items, ok := value.([]any)
		if !ok {
			return typeMismatch(name, schema.Type, value)
		}
		if schema.Items != nil {
			for i, item := range items {
				if err := checkValue(fmt.Sprintf("%s[%d]", name, i), schema.Items, item); err != nil {
					return err
				}
			}
		}
	}
	if len(schema.Enum) > 0 && !slices.Contains(schema.Enum, value) {
		return fmt.Errorf("argument %q must be one of %v", name, schema.Enum)
	}
	return nil
}

func typeMismatch(name, want string, value any) error {
	return fmt.Errorf("argument %q must be %s %s, got %s", name, article(want), want, jsonKind(value))
}

func article(kind string) string {
	if kind == "integer" || kind == "object" || kind == "array" {
		return "an"
	}
	return "a"
}

func jsonKind(value any) string {
	switch value.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	return "null"
}
