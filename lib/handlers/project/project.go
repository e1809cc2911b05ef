// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package project is the "project" command category. It serves the
// files of one Godot project directory to agents: settings from
// project.godot, listings, reads and writes, and resource UID lookups.
//
// Paths are Godot resource paths ("res://scenes/Player.tscn") or paths
// relative to the project root. Every path is resolved lexically
// first, and a path that leaves the root is rejected. File access then
// goes through an [os.Root], so symlinks cannot leave the root either.
package project

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/LeanderM99/GodotMCP/lib/command"
)

// Category is the name the handler registers under.
const Category = "project"

const resPrefix = "res://"

// Deps configures the project commands.
type Deps struct {
	// Root is the directory containing project.godot.
	Root   string
	Logger *slog.Logger
}

// New returns the project command table.
func New(deps Deps) *command.Table {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	p := &project{root: deps.Root, logger: deps.Logger}
	return command.NewTable(Category).
		Add("get_settings", command.Spec{Run: p.getSettings}).
		Add("list_files", command.Spec{Run: p.listFiles}).
		Add("read_file", command.Spec{Required: []string{"path"}, Run: p.readFile}).
		Add("write_file", command.Spec{Required: []string{"path", "content"}, Run: p.writeFile}).
		Add("get_uid", command.Spec{Required: []string{"path"}, Run: p.getUID}).
		Add("get_path_from_uid", command.Spec{Required: []string{"uid"}, Run: p.getPathFromUID})
}

type project struct {
	root   string
	logger *slog.Logger
}

func (p *project) open() (*os.Root, error) {
	if p.root == "" {
		return nil, fmt.Errorf("no project root configured")
	}
	root, err := os.OpenRoot(p.root)
	if err != nil {
		return nil, fmt.Errorf("opening project root: %w", err)
	}
	return root, nil
}

// resolve maps a resource path to a slash-separated path relative to
// the project root. The root itself is ".".
func resolve(target string) (string, error) {
	rest, isRes := strings.CutPrefix(target, resPrefix)
	if !isRes && strings.Contains(target, "://") {
		return "", command.Errorf("Only res:// paths are supported: %s", target)
	}
	rest = strings.ReplaceAll(rest, "\\", "/")
	if path.IsAbs(rest) {
		return "", command.Errorf("Path escapes project root: %s", target)
	}
	cleaned := path.Clean(rest)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", command.Errorf("Path escapes project root: %s", target)
	}
	return cleaned, nil
}

// resourcePath is the inverse of resolve.
func resourcePath(relative string) string {
	if relative == "." {
		return resPrefix
	}
	return resPrefix + relative
}

// HashContent returns the hex BLAKE3-256 digest reported by read_file
// and checked by write_file.
func HashContent(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}
