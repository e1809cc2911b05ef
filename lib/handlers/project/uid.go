// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package project

import (
	"bufio"
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/LeanderM99/GodotMCP/lib/command"
)

const uidScheme = "uid://"

var (
	uidAttribute = regexp.MustCompile(`\buid="(uid://[^"]+)"`)
	uidText      = regexp.MustCompile(`^uid://[0-9a-z]+$`)
)

func (p *project) getUID(params command.Params) (any, error) {
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

	if _, err := root.Stat(filepath.FromSlash(relative)); err != nil {
		return nil, command.Errorf("File not found: %s", target)
	}
	uid, err := lookupUID(root, relative)
	if err != nil {
		return nil, err
	}
	if uid == "" {
		return nil, command.Errorf("No UID found for: %s", target)
	}
	return map[string]any{"uid": uid, "path": resourcePath(relative)}, nil
}

// lookupUID finds the UID Godot assigned to a resource. Scripts and
// shaders carry it in a ".uid" sidecar, imported assets in their
// ".import" file, and text scenes and resources in their header line.
// It returns "" when the resource has none.
func lookupUID(root *os.Root, relative string) (string, error) {
	name := filepath.FromSlash(relative)
	sidecar, err := root.ReadFile(name + ".uid")
	if err == nil {
		if uid := strings.TrimSpace(string(sidecar)); uidText.MatchString(uid) {
			return uid, nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	imported, err := root.ReadFile(name + ".import")
	if err == nil {
		if match := uidAttribute.FindSubmatch(imported); match != nil {
			return string(match[1]), nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	switch path.Ext(relative) {
	case ".tscn", ".tres", ".scn", ".res":
		return headerUID(root, name)
	}
	return "", nil
}

// headerUID reads the uid attribute of a text resource's first line,
// e.g. [gd_scene load_steps=2 format=3 uid="uid://cecaux1sm7mo0"].
func headerUID(root *os.Root, name string) (string, error) {
	file, err := root.Open(name)
	if err != nil {
		return "", err
	}
	defer file.Close()
	reader := bufio.NewReader(file)
	header, err := reader.ReadBytes('\n')
	if err != nil && len(header) == 0 {
		return "", nil
	}
	if !bytes.HasPrefix(header, []byte("[")) {
		return "", nil
	}
	if match := uidAttribute.FindSubmatch(header); match != nil {
		return string(match[1]), nil
	}
	return "", nil
}

func (p *project) getPathFromUID(params command.Params) (any, error) {
	uid, err := params.String("uid", "")
	if err != nil {
		return nil, err
	}
	if !uidText.MatchString(uid) {
		return nil, command.Errorf("Invalid UID: %s", uid)
	}
	root, err := p.open()
	if err != nil {
		return nil, err
	}
	defer root.Close()

	found := ""
	err = fs.WalkDir(root.FS(), ".", func(name string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if name != "." && hidden(entry.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		resource, ok := candidate(name)
		if !ok {
			return nil
		}
		owner, err := lookupUID(root, resource)
		if err != nil {
			return err
		}
		if owner == uid {
			found = resource
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == "" {
		return nil, command.Errorf("UID not found: %s", uid)
	}
	return map[string]any{"path": resourcePath(found), "uid": uid}, nil
}

// candidate maps a file seen during the scan to the resource whose UID
// it can carry.
func candidate(name string) (string, bool) {
	switch ext := path.Ext(name); ext {
	case ".uid", ".import":
		return strings.TrimSuffix(name, ext), true
	case ".tscn", ".tres", ".scn", ".res":
		return name, true
	}
	return "", false
}
