// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/LeanderM99/GodotMCP/lib/cli"
	"github.com/LeanderM99/GodotMCP/lib/client"
	"github.com/LeanderM99/GodotMCP/lib/process"
)

func callCommand(opts *options) *cli.Command {
	return &cli.Command{
		Name:    "call",
		Summary: "Send one command to the editor",
		Description: "Send one command to the editor and print its data.\n\n" +
			"Params are a JSON object. Pass - to read them from stdin.",
		Usage: "godot-mcp call <category> <command> [json-params] [flags]",
		Flags: opts.flags("call"),
		Run: func(args []string) error {
			if len(args) < 2 || len(args) > 3 {
				return fmt.Errorf("usage: godot-mcp call <category> <command> [json-params]")
			}
			category, command := args[0], args[1]
			raw := ""
			if len(args) == 3 {
				raw = args[2]
			}
			params, err := parseParams(raw, os.Stdin)
			if err != nil {
				return err
			}

			cfg, err := opts.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			editor := client.New(client.Config{
				Address:        address(cfg),
				RequestTimeout: cfg.Client.RequestTimeout,
				DialTimeout:    cfg.Client.DialTimeout,
				Logger:         newLogger(cfg),
			})
			defer editor.Close()

			printer := cli.NewPrinter()
			data, err := editor.Send(ctx, category, command, params)
			if err != nil {
				printer.Failure(category, command, err)
				return &process.ExitError{Code: 1}
			}
			return printer.Result(category, command, data)
		},
	}
}

// parseParams decodes the params argument. Empty means no params and
// "-" reads the object from stdin.
func parseParams(raw string, stdin io.Reader) (map[string]any, error) {
	if raw == "-" {
		content, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading params from stdin: %w", err)
		}
		raw = string(content)
	}
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, fmt.Errorf("params must be a JSON object: %w", err)
	}
	if params == nil {
		return map[string]any{}, nil
	}
	return params, nil
}
