// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads settings shared by the host and the MCP bridge.
//
// Values are layered, each layer overriding the one before it:
//
//  1. [Default]
//  2. an optional YAML file (GODOT_MCP_CONFIG or --config)
//  3. variables from a .env file, which never replace variables
//     already set in the process environment
//  4. GODOT_MCP_* environment variables
//
// Command-line flags are applied by the commands on top of the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvConfigFile       = "GODOT_MCP_CONFIG"
	EnvPort             = "GODOT_MCP_PORT"
	EnvHost             = "GODOT_MCP_HOST"
	EnvHandshakeTimeout = "GODOT_MCP_HANDSHAKE_TIMEOUT"
	EnvRequestTimeout   = "GODOT_MCP_REQUEST_TIMEOUT"
	EnvProjectRoot      = "GODOT_MCP_PROJECT_ROOT"
	EnvLogLevel         = "GODOT_MCP_LOG_LEVEL"
	EnvLogFormat        = "GODOT_MCP_LOG_FORMAT"
	EnvToolsFile        = "GODOT_MCP_TOOLS_FILE"
)

// Config is the full configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Client  ClientConfig  `yaml:"client"`
	Project ProjectConfig `yaml:"project"`
	MCP     MCPConfig     `yaml:"mcp"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig configures the host-side transport.
type ServerConfig struct {
	Port             int           `yaml:"port"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	TickInterval     time.Duration `yaml:"tick_interval"`
	MaxMessageSize   int64         `yaml:"max_message_size"`
	SendQueueSize    int           `yaml:"send_queue_size"`

	// RateLimit is the sustained number of commands per second
	// accepted from one connection. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// ClientConfig configures the agent-side correlation client.
type ClientConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
}

type ProjectConfig struct {
	// Root is the directory containing project.godot, served as
	// res:// by the project handler. Empty disables the handler.
	Root string `yaml:"root"`
}

type MCPConfig struct {
	// ToolsFile is an optional JSONC file adding or overriding tools.
	ToolsFile string `yaml:"tools_file"`
}

type LogConfig struct {
	Level string `yaml:"level"`

	// Format is "auto", "text", or "json". Auto picks text when
	// stderr is a terminal.
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             6550,
			HandshakeTimeout: 3 * time.Second,
			TickInterval:     16 * time.Millisecond,
			MaxMessageSize:   16 << 20,
			SendQueueSize:    64,
			RateLimit:        50,
			RateBurst:        100,
		},
		Client: ClientConfig{
			Host:           "127.0.0.1",
			Port:           6550,
			RequestTimeout: 60 * time.Second,
			DialTimeout:    5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load builds a Config from the layers described in the package
// documentation. An empty path falls back to GODOT_MCP_CONFIG, and if
// that is unset no file is read. A missing envFile is not an error.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnvironment(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a YAML file over the defaults without consulting the
// environment.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvironment(lookup func(string) (string, bool)) error {
	var errs []error

	if value, ok := lookup(EnvPort); ok && value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvPort, err))
		} else {
			c.Server.Port = port
			c.Client.Port = port
		}
	}
	if value, ok := lookup(EnvHost); ok && value != "" {
		c.Client.Host = value
	}
	durations := []struct {
		name   string
		target *time.Duration
	}{
		{EnvHandshakeTimeout, &c.Server.HandshakeTimeout},
		{EnvRequestTimeout, &c.Client.RequestTimeout},
	}
	for _, duration := range durations {
		value, ok := lookup(duration.name)
		if !ok || value == "" {
			continue
		}
		parsed, err := parseDuration(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", duration.name, err))
			continue
		}
		*duration.target = parsed
	}
	texts := []struct {
		name   string
		target *string
	}{
		{EnvProjectRoot, &c.Project.Root},
		{EnvLogLevel, &c.Log.Level},
		{EnvLogFormat, &c.Log.Format},
		{EnvToolsFile, &c.MCP.ToolsFile},
	}
	for _, setting := range texts {
		if value, ok := lookup(setting.name); ok && value != "" {
			*setting.target = value
		}
	}
	return errors.Join(errs...)
}

// parseDuration accepts Go duration syntax or a bare number of
// milliseconds.
func parseDuration(value string) (time.Duration, error) {
	if milliseconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(milliseconds) * time.Millisecond, nil
	}
	return time.ParseDuration(value)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Client.Port <= 0 || c.Client.Port > 65535 {
		errs = append(errs, fmt.Errorf("client.port %d out of range", c.Client.Port))
	}
	if c.Server.HandshakeTimeout <= 0 {
		errs = append(errs, errors.New("server.handshake_timeout must be positive"))
	}
	if c.Server.TickInterval <= 0 {
		errs = append(errs, errors.New("server.tick_interval must be positive"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit must not be negative"))
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		errs = append(errs, errors.New("server.rate_burst must be at least 1 when rate_limit is set"))
	}
	if c.Client.Host == "" {
		errs = append(errs, errors.New("client.host is required"))
	}
	if c.Client.RequestTimeout <= 0 {
		errs = append(errs, errors.New("client.request_timeout must be positive"))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be one of auto, text, json; got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// SlogLevel parses Level ("debug", "info", "warn", "error").
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
