// Copyright 2026 The GodotMCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package command turns a category's set of commands into a
// router.Handler. Each command declares the parameters it requires, and
// those are checked before the command body runs. Command bodies
// read optional parameters through typed [Params] accessors instead of
// asserting on the raw map.
package command

import (
	"fmt"
	"slices"

	"github.com/LeanderM99/GodotMCP/lib/router"
)

// Func is a command body. A returned error becomes a failure result
// carrying the error text.
type Func func(params Params) (any, error)

// Spec describes one command.
type Spec struct {
	// Required lists parameters that must be present and non-null.
	Required []string
	Run      Func
}

// Table dispatches the commands of one category.
type Table struct {
	category string
	commands map[string]Spec
}

// NewTable returns an empty Table for the named category. The category
// only appears in error messages.
func NewTable(category string) *Table {
	return &Table{category: category, commands: make(map[string]Spec)}
}

// Add registers a command. Registering the same name twice panics,
// since it is a wiring mistake.
func (t *Table) Add(name string, spec Spec) *Table {
	if _, exists := t.commands[name]; exists {
		panic(fmt.Sprintf("command: duplicate %s command %q", t.category, name))
	}
	if spec.Run == nil {
		panic(fmt.Sprintf("command: %s command %q has no Run function", t.category, name))
	}
	t.commands[name] = spec
	return t
}

// Names returns the registered command names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.commands))
	for name := range t.commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Handle implements router.Handler.
func (t *Table) Handle(name string, raw map[string]any) router.Result {
	spec, ok := t.commands[name]
	if !ok {
		return router.Failuref("Unknown %s command: %s", t.category, name)
	}
	params := Params(raw)
	for _, required := range spec.Required {
		if !params.Has(required) {
			return router.Failuref("Missing required parameter: %s", required)
		}
	}
	data, err := spec.Run(params)
	if err != nil {
		return router.Failure(err.Error())
	}
	return router.Success(data)
}

// Errorf returns an error whose text is sent to the client verbatim.
// Wire messages are sentences, so they keep their capitals.
func Errorf(format string, args ...any) error {
	return &failure{message: fmt.Sprintf(format, args...)}
}

type failure struct {
	message string
}

func (f *failure) Error() string { return f.message }
