// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/LeanderM99/GodotMCP/lib/cli"
	"github.com/LeanderM99/GodotMCP/lib/mcp"
)

func toolsCommand(opts *options) *cli.Command {
	return &cli.Command{
		Name:    "tools",
		Summary: "List the MCP tools and the commands they send",
		Usage:   "godot-mcp tools [category] [flags]",
		Flags:   opts.flags("tools"),
		Run: func(args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("usage: godot-mcp tools [category]")
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			tools, err := catalog(cfg)
			if err != nil {
				return err
			}
			category := ""
			if len(args) == 1 {
				category = args[0]
			}
			rows := toolRows(tools, category)
			if len(rows) == 0 {
				return fmt.Errorf("no tools in category %q", category)
			}
			cli.NewPrinter().Table(rows)
			return nil
		},
	}
}

func toolRows(tools []mcp.Tool, category string) [][2]string {
	var rows [][2]string
	for _, tool := range tools {
		if category != "" && tool.Category != category {
			continue
		}
		rows = append(rows, [2]string{tool.Name, tool.Category + "." + tool.Command + "  " + tool.Title})
	}
	return rows
}
