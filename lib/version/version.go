// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package version carries build identification for the GodotMCP
// binaries. Release builds set the variables with -ldflags:
//
//	go build -ldflags "-X github.com/LeanderM99/GodotMCP/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info is the --version line.
func Info() string {
	return fmt.Sprintf("%s (%s, %s)", Version, GitCommit, BuildTime)
}

// Short returns the bare version, as reported in MCP serverInfo.
func Short() string { return Version }

// Fields returns the build details as a map for JSON responses.
func Fields() map[string]any {
	return map[string]any{
		"version":    Version,
		"commit":     GitCommit,
		"build_time": BuildTime,
		"go":         runtime.Version(),
		"platform":   runtime.GOOS + "/" + runtime.GOARCH,
	}
}
