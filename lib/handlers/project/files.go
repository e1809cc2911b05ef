// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package project

import (
	"errors"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/LeanderM99/GodotMCP/lib/command"
)

func (p *project) listFiles(params command.Params) (any, error) {
	target, err := params.String("path", resPrefix)
	if err != nil {
		return nil, err
	}
	filter, err := params.String("filter", "")
	if err != nil {
		return nil, err
	}
	recursive, err := params.Bool("recursive", false)
	if err != nil {
		return nil, err
	}
	relative, err := resolve(target)
	if err != nil {
		return nil, err
	}

	root, err := p.open()
	if err != nil {
		return nil, err
	}
	defer root.Close()

	info, err := root.Stat(filepath.FromSlash(relative))
	if err != nil || !info.IsDir() {
		return nil, command.Errorf("Directory not found: %s", target)
	}

	files := []string{}
	err = fs.WalkDir(root.FS(), relative, func(name string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if name == relative {
				return nil
			}
			if !recursive || hidden(entry.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if hidden(entry.Name()) || !matchesFilter(entry.Name(), filter) {
			return nil
		}
		files = append(files, resourcePath(name))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"files": files}, nil
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// matchesFilter treats "*.ext" as a case-insensitive suffix and
// anything else as a case-insensitive substring.
func matchesFilter(name, filter string) bool {
	if filter == "" {
		return true
	}
	name = strings.ToLower(name)
	filter = strings.ToLower(filter)
	if suffix, ok := strings.CutPrefix(filter, "*."); ok {
		return strings.HasSuffix(name, "."+suffix)
	}
	return strings.Contains(name, filter)
}

func (p *project) readFile(params command.Params) (any, error) {
	target, err := params.String("path", "")
	if err != nil {
		return nil, err
	}
	relative, err := resolve(target)
	if err != nil {
		return nil, err
	}
	root, err := p.open()
	if err != nil {
		return nil, err
	}
	defer root.Close()

	content, err := root.ReadFile(filepath.FromSlash(relative))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, command.Errorf("File not found: %s", target)
	}
	if err != nil {
		return nil, command.Errorf("Cannot read %s: %v", target, err)
	}
	return map[string]any{
		"path":    resourcePath(relative),
		"content": string(content),
		"hash":    HashContent(content),
	}, nil
}

func (p *project) writeFile(params command.Params) (any, error) {
	target, err := params.String("path", "")
	if err != nil {
		return nil, err
	}
	content, err := params.String("content", "")
	if err != nil {
		return nil, err
	}
	expected, err := params.String("expected_hash", "")
	if err != nil {
		return nil, err
	}
	relative, err := resolve(target)
	if err != nil {
		return nil, err
	}
	if relative == "." {
		return nil, command.Errorf("Cannot write to: %s (is a directory)", target)
	}
	root, err := p.open()
	if err != nil {
		return nil, err
	}
	defer root.Close()

	name := filepath.FromSlash(relative)
	if expected != "" {
		current, err := root.ReadFile(name)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, command.Errorf("Conflict: %s does not exist, expected hash %s", target, expected)
		case err != nil:
			return nil, command.Errorf("Cannot read %s: %v", target, err)
		}
		if actual := HashContent(current); !strings.EqualFold(actual, expected) {
			return nil, command.Errorf("Conflict: %s has hash %s, expected %s", target, actual, expected)
		}
	}

	if dir := path.Dir(relative); dir != "." {
		if err := root.MkdirAll(filepath.FromSlash(dir), 0o755); err != nil {
			return nil, command.Errorf("Cannot write to: %s (%v)", target, err)
		}
	}
	data := []byte(content)
	if err := root.WriteFile(name, data, 0o644); err != nil {
		return nil, command.Errorf("Cannot write to: %s (%v)", target, err)
	}
	p.logger.Info("project file written", "path", resourcePath(relative), "bytes", len(data))
	return map[string]any{
		"path": resourcePath(relative),
		"hash": HashContent(data),
	}, nil
}
