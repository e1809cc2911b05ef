// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

// Godot-mcp connects MCP clients to a running Godot editor. With no
// subcommand it serves MCP on stdin and stdout; MCP client
// configurations launch it that way. The call subcommand sends one
// command from a shell, and tools prints the tool catalog.
package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/LeanderM99/GodotMCP/lib/cli"
	"github.com/LeanderM99/GodotMCP/lib/config"
	"github.com/LeanderM99/GodotMCP/lib/mcp"
	"github.com/LeanderM99/GodotMCP/lib/process"
	"github.com/LeanderM99/GodotMCP/lib/version"
)

func main() {
	if err := rootCommand().Execute(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

// options are the flags shared by every subcommand. Flags override
// the loaded configuration.
type options struct {
	configPath string
	envFile    string
	host       string
	port       int
	timeout    time.Duration
	toolsFile  string
	logLevel   string

	flagSet *pflag.FlagSet
}

func (o *options) flags(name string) func() *pflag.FlagSet {
	return func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
		flagSet.StringVar(&o.configPath, "config", "", "YAML config file (default $"+config.EnvConfigFile+")")
		flagSet.StringVar(&o.envFile, "env-file", ".env", "dotenv file read before the environment")
		flagSet.StringVar(&o.host, "host", "", "editor host (default from config)")
		flagSet.IntVar(&o.port, "port", 0, "editor port (default from config)")
		flagSet.DurationVar(&o.timeout, "timeout", 0, "per-command timeout (default from config)")
		flagSet.StringVar(&o.toolsFile, "tools-file", "", "JSONC file adding or overriding tools")
		flagSet.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")
		o.flagSet = flagSet
		return flagSet
	}
}

// load reads the configuration and applies the flags that were set.
func (o *options) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath, o.envFile)
	if err != nil {
		return nil, err
	}
	changed := func(name string) bool { return o.flagSet != nil && o.flagSet.Changed(name) }
	if changed("host") {
		cfg.Client.Host = o.host
	}
	if changed("port") {
		cfg.Client.Port = o.port
	}
	if changed("timeout") {
		cfg.Client.RequestTimeout = o.timeout
	}
	if changed("tools-file") {
		cfg.MCP.ToolsFile = o.toolsFile
	}
	if changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func address(cfg *config.Config) string {
	return net.JoinHostPort(cfg.Client.Host, strconv.Itoa(cfg.Client.Port))
}

// catalog returns the built-in tools merged with the configured tools
// file.
func catalog(cfg *config.Config) ([]mcp.Tool, error) {
	tools := mcp.BuiltinTools()
	if cfg.MCP.ToolsFile == "" {
		return tools, nil
	}
	overrides, err := mcp.LoadToolsFile(cfg.MCP.ToolsFile)
	if err != nil {
		return nil, err
	}
	return mcp.MergeTools(tools, overrides), nil
}

func rootCommand() *cli.Command {
	opts := &options{}
	serve := serveCommand(opts)
	return &cli.Command{
		Name:        "godot-mcp",
		Summary:     "Bridge MCP clients to the Godot editor",
		Description: "Bridge MCP clients to the Godot editor.\n\nWith no command, serves MCP over stdio.",
		Flags:       serve.Flags,
		Run:         serve.Run,
		Subcommands: []*cli.Command{
			serve,
			callCommand(opts),
			toolsCommand(opts),
			{
				Name:    "version",
				Summary: "Print the version",
				Run: func([]string) error {
					fmt.Printf("godot-mcp %s\n", version.Info())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{Description: "Serve MCP to a client", Command: "godot-mcp"},
			{Description: "Ping the editor", Command: "godot-mcp call system ping"},
			{Description: "Read a file", Command: `godot-mcp call project read_file '{"path":"res://main.tscn"}'`},
		},
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := cfg.Log.SlogLevel()
	return cli.NewLogger(level, cfg.Log.Format)
}
