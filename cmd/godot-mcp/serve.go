// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/LeanderM99/GodotMCP/lib/cli"
	"github.com/LeanderM99/GodotMCP/lib/client"
	"github.com/LeanderM99/GodotMCP/lib/mcp"
	"github.com/LeanderM99/GodotMCP/lib/version"
)

func serveCommand(opts *options) *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Summary: "Serve MCP over stdin and stdout",
		Description: "Serve MCP over stdin and stdout.\n\n" +
			"The editor connection is opened on the first tool call and\n" +
			"redialed after it drops, so the editor may start later.",
		Flags: opts.flags("serve"),
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q (see godot-mcp --help)", args[0])
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			tools, err := catalog(cfg)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			editor := client.New(client.Config{
				Address:        address(cfg),
				RequestTimeout: cfg.Client.RequestTimeout,
				DialTimeout:    cfg.Client.DialTimeout,
				Logger:         logger,
			})
			defer editor.Close()

			logger.Info("godot mcp server starting",
				"editor", address(cfg),
				"tools", len(tools),
				"version", version.Info(),
			)
			return mcp.NewServer(editor, tools, logger).Run(ctx, os.Stdin, os.Stdout)
		},
	}
}
