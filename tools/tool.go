// Package tools provides the tool system consumed by the control loop.
//
// A tool is a named external capability invoked with JSON arguments.
// Execution results pass through unchanged: strings feed straight into
// trajectory observations, other values are rendered with a bounded
// inspection by the caller.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Parameter defines a parameter schema for a tool.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"param_type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Metadata describes what a tool does and how to use it.
type Metadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
}

// String returns a string representation of the tool metadata.
func (m Metadata) String() string {
	return fmt.Sprintf("%s: %s", m.Name, m.Description)
}

// Tool is the interface that all tools must implement.
type Tool interface {
	// Metadata returns tool metadata (name, description, parameters).
	Metadata() Metadata

	// Execute runs the tool with the given JSON arguments. The returned
	// value and error pass through to the caller unchanged.
	Execute(ctx context.Context, args json.RawMessage) (any, error)
}

// Func is a tool backed by a plain function.
type Func struct {
	meta Metadata
	fn   func(ctx context.Context, args json.RawMessage) (any, error)
}

// NewFunc creates a tool from a function.
func NewFunc(name, description string, fn func(ctx context.Context, args json.RawMessage) (any, error)) *Func {
	return &Func{
		meta: Metadata{Name: name, Description: description},
		fn:   fn,
	}
}

// WithParameters attaches parameter descriptors to the tool's metadata.
func (t *Func) WithParameters(params ...Parameter) *Func {
	t.meta.Parameters = params
	return t
}

// Metadata returns the tool metadata.
func (t *Func) Metadata() Metadata {
	return t.meta
}

// Execute invokes the wrapped function.
func (t *Func) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	return t.fn(ctx, args)
}

var _ Tool = (*Func)(nil)
