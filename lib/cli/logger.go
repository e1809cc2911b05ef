// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// Log formats accepted by NewLogger.
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// NewLogger returns the logger for a binary. It writes to stderr, since
// stdout carries the MCP stream. The "auto" format picks text when
// stderr is a terminal and JSON when it is piped, as it is when an MCP
// client launches the bridge.
func NewLogger(level slog.Level, format string) *slog.Logger {
	return newLogger(os.Stderr, IsTerminal(os.Stderr), level, format)
}

func newLogger(w io.Writer, terminal bool, level slog.Level, format string) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	if format == FormatText || (format != FormatJSON && terminal) {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}

// IsTerminal reports whether file is attached to a terminal.
func IsTerminal(file *os.File) bool {
	return term.IsTerminal(int(file.Fd()))
}
