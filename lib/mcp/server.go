// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcp serves the editor's commands to MCP clients. It speaks
// JSON-RPC 2.0 over newline-delimited stdio and turns every tools/call
// into one command sent to the editor through a [Caller].
//
// Requests are handled one at a time in arrival order. A tool call
// blocks the stream until the editor answers or the request times out.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/LeanderM99/GodotMCP/lib/version"
)

// Caller sends one command to the editor. *client.Client satisfies it.
type Caller interface {
	Send(ctx context.Context, category, command string, params map[string]any) (json.RawMessage, error)
}

// Server exposes a tool catalog over MCP.
type Server struct {
	caller      Caller
	tools       []Tool
	toolsByName map[string]*Tool
	logger      *slog.Logger
	initialized bool
}

// NewServer returns a Server offering tools. Disabled tools are
// dropped. A nil logger uses slog.Default().
func NewServer(caller Caller, tools []Tool, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{caller: caller, logger: logger}
	for _, tool := range tools {
		if !tool.Disabled {
			s.tools = append(s.tools, tool)
		}
	}
	s.toolsByName = make(map[string]*Tool, len(s.tools))
	for i := range s.tools {
		s.toolsByName[s.tools[i].Name] = &s.tools[i]
	}
	return s
}

// Tools returns the catalog being served.
func (s *Server) Tools() []Tool { return s.tools }

// Run answers requests read from input until input ends or ctx is
// done. Each message occupies one line.
func (s *Server) Run(ctx context.Context, input io.Reader, output io.Writer) error {
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	encoder := json.NewEncoder(output)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			if err := writeError(encoder, json.RawMessage("null"), codeParseError, "parse error: "+err.Error()); err != nil {
				return fmt.Errorf("writing parse error response: %w", err)
			}
			continue
		}
		if req.JSONRPC != "2.0" {
			if !req.isNotification() {
				if err := writeError(encoder, req.ID, codeInvalidRequest, "unsupported JSON-RPC version"); err != nil {
					return fmt.Errorf("writing version error response: %w", err)
				}
			}
			continue
		}
		if req.isNotification() {
			s.logger.Debug("mcp notification", "method", req.Method)
			continue
		}
		if err := s.dispatch(ctx, encoder, &req); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, encoder *json.Encoder, req *request) error {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(encoder, req)
	case "ping":
		return writeResult(encoder, req.ID, map[string]any{})
	case "tools/list":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsList(encoder, req)
	case "tools/call":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsCall(ctx, encoder, req)
	default:
		return writeError(encoder, req.ID, codeMethodNotFound, "unknown method: "+req.Method)
	}
}

func (s *Server) handleInitialize(encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for initialize")
	}
	var params initializeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid initialize params: "+err.Error())
	}
	s.initialized = true
	s.logger.Info("mcp client initialized",
		"client", params.ClientInfo.Name,
		"client_version", params.ClientInfo.Version,
		"protocol", params.ProtocolVersion,
	)
	return writeResult(encoder, req.ID, initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities:    serverCapabilities{Tools: &toolCapability{}},
		ServerInfo:      serverInfo{Name: ServerName, Version: version.Short()},
		Instructions:    "Tools act on the Godot editor the MCP plugin is running in. Resource paths use the res:// scheme.",
	})
}

func (s *Server) handleToolsList(encoder *json.Encoder, req *request) error {
	descriptions := make([]toolDescription, 0, len(s.tools))
	for _, tool := range s.tools {
		schema := tool.InputSchema
		if schema == nil {
			schema = emptyObject
		}
		descriptions = append(descriptions, toolDescription{
			Name:        tool.Name,
			Title:       tool.Title,
			Description: tool.Description,
			InputSchema: schema,
			Annotations: tool.Annotations,
		})
	}
	return writeResult(encoder, req.ID, toolsListResult{Tools: descriptions})
}

func (s *Server) handleToolsCall(ctx context.Context, encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for tools/call")
	}
	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid tools/call params: "+err.Error())
	}
	tool, ok := s.toolsByName[params.Name]
	if !ok {
		return writeError(encoder, req.ID, codeInvalidParams, "unknown tool: "+params.Name)
	}
	arguments, err := prepareArguments(tool.InputSchema, params.Arguments)
	if err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, fmt.Sprintf("invalid arguments for %s: %v", tool.Name, err))
	}

	logger := s.logger.With("tool", tool.Name, "category", tool.Category, "command", tool.Command)
	data, err := s.caller.Send(ctx, tool.Category, tool.Command, arguments)
	if err != nil {
		logger.Warn("tool call failed", "error", err)
		return writeResult(encoder, req.ID, errorResult(err))
	}
	logger.Debug("tool call succeeded", "bytes", len(data))
	result, err := dataResult(tool, data)
	if err != nil {
		logger.Error("formatting tool result", "error", err)
		return writeError(encoder, req.ID, codeInternalError, "formatting result of "+tool.Name+": "+err.Error())
	}
	return writeResult(encoder, req.ID, result)
}

func errorResult(err error) toolsCallResult {
	return toolsCallResult{
		IsError: true,
		Content: []contentBlock{{Type: "text", Text: "Error: " + err.Error()}},
	}
}

// dataResult renders a successful response. A string is returned as
// is, or as a PNG image block for image tools. An object carrying a
// string "image" field becomes an image block followed by the
// remaining fields. Anything else is indented JSON.
func dataResult(tool *Tool, data json.RawMessage) (toolsCallResult, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		trimmed = []byte("{}")
	}

	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return toolsCallResult{}, err
		}
		if tool.Image {
			return imageResult(text, "", nil), nil
		}
		return textResult(text), nil
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return toolsCallResult{}, err
		}
		var image string
		if raw, ok := fields["image"]; ok && json.Unmarshal(raw, &image) == nil && image != "" {
			var mimeType string
			if raw, ok := fields["mime_type"]; ok {
				_ = json.Unmarshal(raw, &mimeType)
				delete(fields, "mime_type")
			}
			delete(fields, "image")
			return imageResult(image, mimeType, fields), nil
		}
	}

	var indented bytes.Buffer
	if err := json.Indent(&indented, trimmed, "", "  "); err != nil {
		return toolsCallResult{}, err
	}
	return textResult(indented.String()), nil
}

func textResult(text string) toolsCallResult {
	return toolsCallResult{Content: []contentBlock{{Type: "text", Text: text}}}
}

func imageResult(data, mimeType string, rest map[string]json.RawMessage) toolsCallResult {
	if mimeType == "" {
		mimeType = "image/png"
	}
	data = strings.TrimPrefix(data, "data:"+mimeType+";base64,")
	result := toolsCallResult{Content: []contentBlock{{Type: "image", Data: data, MIMEType: mimeType}}}
	if len(rest) > 0 {
		if text, err := json.MarshalIndent(rest, "", "  "); err == nil {
			result.Content = append(result.Content, contentBlock{Type: "text", Text: string(text)})
		}
	}
	return result
}

func writeResult(encoder *json.Encoder, id json.RawMessage, result any) error {
	return encoder.Encode(response{JSONRPC: "2.0", ID: id, Result: result})
}

func writeError(encoder *json.Encoder, id json.RawMessage, code int, message string) error {
	return encoder.Encode(response{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}})
}
