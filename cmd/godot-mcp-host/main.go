// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

// Godot-mcp-host serves the editor side of the bridge without an
// editor: the system and project command categories over the loopback
// WebSocket transport. Agents and the MCP bridge connect to it exactly
// as they would to the editor plugin, which makes it useful for
// headless projects and for exercising clients.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/LeanderM99/GodotMCP/lib/cli"
	"github.com/LeanderM99/GodotMCP/lib/clock"
	"github.com/LeanderM99/GodotMCP/lib/config"
	"github.com/LeanderM99/GodotMCP/lib/handlers/project"
	"github.com/LeanderM99/GodotMCP/lib/handlers/system"
	"github.com/LeanderM99/GodotMCP/lib/host"
	"github.com/LeanderM99/GodotMCP/lib/process"
	"github.com/LeanderM99/GodotMCP/lib/router"
	"github.com/LeanderM99/GodotMCP/lib/schedule"
	"github.com/LeanderM99/GodotMCP/lib/version"
	"github.com/LeanderM99/GodotMCP/transport"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		envFile     string
		projectRoot string
		logLevel    string
		port        int
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("godot-mcp-host", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "YAML config file (default $"+config.EnvConfigFile+")")
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file read before the environment")
	flagSet.StringVar(&projectRoot, "project", "", "Godot project directory served by the project commands")
	flagSet.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flagSet.IntVar(&port, "port", 0, "port to listen on, 0 for any free port (default from config)")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Printf("godot-mcp-host %s\n", version.Info())
		return nil
	}

	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return err
	}
	if flagSet.Changed("port") {
		cfg.Server.Port = port
	}
	if flagSet.Changed("project") {
		cfg.Project.Root = projectRoot
	}
	if flagSet.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := cfg.Log.SlogLevel()
	logger := cli.NewLogger(level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	realClock := clock.Real()
	commands := router.New(logger)
	scheduler := schedule.New(realClock, logger)
	editor := host.New(host.Config{
		Port:         cfg.Server.Port,
		TickInterval: cfg.Server.TickInterval,
		RateLimit:    cfg.Server.RateLimit,
		RateBurst:    cfg.Server.RateBurst,
		Transport: transport.Config{
			HandshakeTimeout: cfg.Server.HandshakeTimeout,
			MaxMessageSize:   cfg.Server.MaxMessageSize,
			SendQueueSize:    cfg.Server.SendQueueSize,
		},
		Clock:  realClock,
		Logger: logger,
	}, commands, scheduler)

	commands.RegisterHandler(system.Category, system.New(system.Deps{
		Scheduler:   scheduler,
		Broadcaster: editor,
		Categories:  commands.Categories,
		Clock:       realClock,
		Logger:      logger,
	}))
	if cfg.Project.Root != "" {
		commands.RegisterHandler(project.Category, project.New(project.Deps{
			Root:   cfg.Project.Root,
			Logger: logger.With("category", project.Category),
		}))
	} else {
		logger.Warn("no project root configured, project commands disabled")
	}

	if err := editor.Start(); err != nil {
		return err
	}
	logger.Info("godot mcp host running",
		"address", editor.Server().Addr().String(),
		"categories", commands.Categories(),
		"version", version.Info(),
	)
	err = editor.Serve(ctx)
	logger.Info("godot mcp host stopped")
	return err
}
