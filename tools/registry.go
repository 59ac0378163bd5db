// Tool registry: the name-to-capability dispatch table.
//
// The registry is built once and immutable afterwards, so lookups need
// no locking. Duplicate and empty names are construction errors, not
// silent shadowing.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Registry is an immutable name-to-tool dispatch table.
type Registry struct {
	names []string // registration order
	tools map[string]Tool
}

// NewRegistry builds a registry from the given tools. It fails if any
// tool has an empty name or a name that is already registered.
func NewRegistry(list ...Tool) (*Registry, error) {
	r := &Registry{
		names: make([]string, 0, len(list)),
		tools: make(map[string]Tool, len(list)),
	}
	for _, tool := range list {
		name := tool.Metadata().Name
		if name == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if _, exists := r.tools[name]; exists {
			return nil, fmt.Errorf("tool %q already registered", name)
		}
		r.names = append(r.names, name)
		r.tools[name] = tool
	}
	return r, nil
}

// Execute dispatches to the named tool, passing its result or error
// through unchanged. An unknown name is an error.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (any, error) {
	tool, exists := r.tools[name]
	if !exists {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	return tool.Execute(ctx, args)
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, exists := r.tools[name]
	return tool, exists
}

// Has checks if a tool exists in the registry.
func (r *Registry) Has(name string) bool {
	_, exists := r.tools[name]
	return exists
}

// Names returns all registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string{}, r.names...)
}

// List returns metadata for all registered tools in registration order.
func (r *Registry) List() []Metadata {
	metadata := make([]Metadata, 0, len(r.names))
	for _, name := range r.names {
		metadata = append(metadata, r.tools[name].Metadata())
	}
	return metadata
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.names)
}
