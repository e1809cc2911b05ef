// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

//go:embed tools.jsonc
var builtinTools []byte

// Tool maps an MCP tool to one editor command.
type Tool struct {
	Name        string       `json:"name"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Command     string       `json:"command"`
	Annotations *Annotations `json:"annotations,omitempty"`
	InputSchema *Schema      `json:"inputSchema,omitempty"`

	// Image marks tools whose string result is base64 PNG data.
	Image bool `json:"image,omitempty"`

	// Disabled removes a built-in tool when set in a tools file.
	Disabled bool `json:"disabled,omitempty"`
}

// Annotations are the MCP behavioral hints. Nil fields take the
// protocol defaults.
type Annotations struct {
	ReadOnlyHint    *bool `json:"readOnlyHint,omitempty"`
	DestructiveHint *bool `json:"destructiveHint,omitempty"`
	IdempotentHint  *bool `json:"idempotentHint,omitempty"`
	OpenWorldHint   *bool `json:"openWorldHint,omitempty"`
}

// Schema is the subset of JSON Schema used by tool inputs. An empty
// Type accepts any value.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []any              `json:"enum,omitempty"`
	Default     any                `json:"default,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
}

// emptyObject is advertised for tools that take no arguments.
var emptyObject = &Schema{Type: "object", Properties: map[string]*Schema{}}

type catalogFile struct {
	Tools []Tool `json:"tools"`
}

// BuiltinTools returns the catalog compiled into the binary.
func BuiltinTools() []Tool {
	tools, err := ParseTools(builtinTools)
	if err != nil {
		panic("mcp: built-in tool catalog: " + err.Error())
	}
	return tools
}

// ParseTools reads a JSONC catalog: JSON with comments and trailing
// commas.
func ParseTools(data []byte) ([]Tool, error) {
	var file catalogFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
		return nil, fmt.Errorf("parsing tool catalog: %w", err)
	}
	var problems []error
	seen := make(map[string]bool, len(file.Tools))
	for i, tool := range file.Tools {
		if tool.Name == "" {
			problems = append(problems, fmt.Errorf("tool %d: name is required", i))
			continue
		}
		if seen[tool.Name] {
			problems = append(problems, fmt.Errorf("tool %s: defined twice", tool.Name))
		}
		seen[tool.Name] = true
		if !tool.Disabled && (tool.Category == "" || tool.Command == "") {
			problems = append(problems, fmt.Errorf("tool %s: category and command are required", tool.Name))
		}
		if tool.InputSchema != nil && tool.InputSchema.Type != "object" {
			problems = append(problems, fmt.Errorf("tool %s: inputSchema must be an object schema", tool.Name))
		}
	}
	if err := errors.Join(problems...); err != nil {
		return nil, err
	}
	return file.Tools, nil
}

// LoadToolsFile reads a JSONC catalog from disk.
func LoadToolsFile(path string) ([]Tool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tools file: %w", err)
	}
	tools, err := ParseTools(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tools, nil
}

// MergeTools applies overrides to base by name. An override replaces
// the tool of the same name in place, a new name is appended, and a
// disabled override removes the tool.
func MergeTools(base, overrides []Tool) []Tool {
	index := make(map[string]int, len(base))
	merged := make([]Tool, 0, len(base)+len(overrides))
	for _, tool := range base {
		index[tool.Name] = len(merged)
		merged = append(merged, tool)
	}
	removed := make(map[string]bool)
	for _, tool := range overrides {
		if tool.Disabled {
			removed[tool.Name] = true
			continue
		}
		delete(removed, tool.Name)
		if position, ok := index[tool.Name]; ok {
			merged[position] = tool
			continue
		}
		index[tool.Name] = len(merged)
		merged = append(merged, tool)
	}
	if len(removed) == 0 {
		return merged
	}
	kept := merged[:0]
	for _, tool := range merged {
		if !removed[tool.Name] {
			kept = append(kept, tool)
		}
	}
	return kept
}
