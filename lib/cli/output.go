// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	targetStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

// Printer writes the outcome of one-shot calls. On a terminal the
// outcome gets a styled header line; otherwise only the data is
// written, so it can be piped into other tools.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	styled bool
}

// NewPrinter returns a Printer for stdout and stderr, styled when
// stdout is a terminal.
func NewPrinter() *Printer {
	return &Printer{out: os.Stdout, errOut: os.Stderr, styled: IsTerminal(os.Stdout)}
}

// Result writes a successful response's data as indented JSON.
func (p *Printer) Result(category, command string, data json.RawMessage) error {
	var indented bytes.Buffer
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Indent(&indented, data, "", "  "); err != nil {
		return fmt.Errorf("formatting response: %w", err)
	}
	if p.styled {
		fmt.Fprintf(p.out, "%s %s\n", okStyle.Render("ok"), target(category, command))
	}
	_, err := fmt.Fprintln(p.out, indented.String())
	return err
}

// Failure writes a failed call to the error stream.
func (p *Printer) Failure(category, command string, err error) {
	if p.styled {
		fmt.Fprintf(p.errOut, "%s %s\n  %s\n", failStyle.Render("failed"), target(category, command), err)
		return
	}
	fmt.Fprintf(p.errOut, "%s.%s: %v\n", category, command, err)
}

// Table writes rows as aligned name and description columns.
func (p *Printer) Table(rows [][2]string) {
	width := 0
	for _, row := range rows {
		width = max(width, len(row[0]))
	}
	for _, row := range rows {
		name := fmt.Sprintf("%-*s", width, row[0])
		if p.styled {
			fmt.Fprintf(p.out, "%s  %s\n", targetStyle.Render(name), faintStyle.Render(row[1]))
			continue
		}
		fmt.Fprintf(p.out, "%s  %s\n", name, row[1])
	}
}

func target(category, command string) string {
	return targetStyle.Render(category + "." + command)
}
