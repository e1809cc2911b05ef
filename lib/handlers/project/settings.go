// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package project

import (
	"bufio"
	"bytes"
	"errors"
	"io/fs"
	"strconv"
	"strings"

	"github.com/LeanderM99/GodotMCP/lib/command"
)

const settingsFile = "project.godot"

func (p *project) getSettings(params command.Params) (any, error) {
	section, err := params.String("section", "")
	if err != nil {
		return nil, err
	}
	key, err := params.String("key", "")
	if err != nil {
		return nil, err
	}

	root, err := p.open()
	if err != nil {
		return nil, err
	}
	defer root.Close()
	data, err := root.ReadFile(settingsFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, command.Errorf("File not found: %s%s", resPrefix, settingsFile)
	}
	if err != nil {
		return nil, err
	}
	settings := parseSettings(data)

	if section != "" && key != "" {
		name := section + "/" + key
		value, ok := settings[name]
		if !ok {
			return nil, command.Errorf("Setting not found: %s", name)
		}
		return map[string]any{"value": value}, nil
	}
	if section != "" {
		for name := range settings {
			if !strings.HasPrefix(name, section+"/") {
				delete(settings, name)
			}
		}
	}
	return map[string]any{"settings": settings}, nil
}

// parseSettings reads a project.godot file into "section/key" names.
// Keys above the first section header keep their bare name. Values
// that span lines, such as input maps, are joined until their
// brackets balance.
func parseSettings(data []byte) map[string]any {
	settings := make(map[string]any)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	section := ""
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSpace(line[1 : len(line)-1])
			continue
		}
		key, raw, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		raw = strings.TrimSpace(raw)
		for depth(raw) > 0 && scanner.Scan() {
			raw += "\n" + scanner.Text()
		}
		name := strings.TrimSpace(key)
		if section != "" {
			name = section + "/" + name
		}
		settings[name] = parseValue(raw)
	}
	return settings
}

// depth counts unclosed brackets and braces outside string literals.
func depth(text string) int {
	level := 0
	quoted, escaped := false, false
	for _, r := range text {
		switch {
		case escaped:
			escaped = false
		case quoted && r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '{' || r == '[' || r == '(':
			level++
		case r == '}' || r == ']' || r == ')':
			level--
		}
	}
	return level
}

// parseValue converts scalar values to JSON types. Constructors such as
// PackedStringArray(...) and dictionaries stay as their source text.
func parseValue(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		if text, err := strconv.Unquote(raw); err == nil {
			return text
		}
		return strings.Trim(raw, `"`)
	}
	if integer, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return integer
	}
	if number, err := strconv.ParseFloat(raw, 64); err == nil {
		return number
	}
	return raw
}
