// MCP Tool Wrapper - exposes MCP server tools as registry entries.
//
// Information Hiding:
// - MCP client lifecycle hidden
// - Schema parsing hidden
// - Tool execution coordination hidden

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/loomworks/loom/tools"
)

// ToolManager manages a set of MCP tools sharing a single client.
// The caller must call Close() when done to release resources.
type ToolManager struct {
	client *Client
	tools  []tools.Tool
}

// Tools returns the discovered tools.
func (m *ToolManager) Tools() []tools.Tool {
	return m.tools
}

// Close closes the MCP client and releases resources.
func (m *ToolManager) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// Discover connects to a server, lists its tools, and returns a
// ToolManager sharing one client across all of them. The caller MUST
// call ToolManager.Close() when done to release resources.
//
// Example:
//
//	manager, err := mcp.Discover(ctx, mcp.Server{
//	    Command: "npx",
//	    Args:    []string{"-y", "@modelcontextprotocol/server-brave-search"},
//	})
//	if err != nil {
//	    return err
//	}
//	defer manager.Close()
//
//	registry, err := tools.NewRegistry(manager.Tools()...)
func Discover(ctx context.Context, server Server) (*ToolManager, error) {
	client, err := Connect(ctx, server)
	if err != nil {
		return nil, err
	}

	toolInfos, err := client.ListTools(ctx)
	if err != nil {
		client.Close()
		return nil, err
	}

	result := make([]tools.Tool, len(toolInfos))
	for i, info := range toolInfos {
		result[i] = &toolWrapper{
			client:      client,
			toolName:    info.Name,
			description: info.Description,
			inputSchema: info.InputSchema,
		}
	}

	return &ToolManager{
		client: client,
		tools:  result,
	}, nil
}

// DiscoverTools is Discover for a bare command line.
func DiscoverTools(ctx context.Context, serverCommand string, serverArgs ...string) (*ToolManager, error) {
	return Discover(ctx, Server{Command: serverCommand, Args: serverArgs})
}

// toolWrapper wraps one MCP tool over the manager's shared client.
type toolWrapper struct {
	client      *Client
	toolName    string
	description string
	inputSchema json.RawMessage
}

// Metadata returns the tool metadata extracted from the MCP schema.
func (w *toolWrapper) Metadata() tools.Metadata {
	return tools.Metadata{
		Name:        w.toolName,
		Description: w.description,
		Parameters:  parseParameters(w.inputSchema),
	}
}

// Execute calls the MCP tool using the shared client.
// Note: Schema validation is performed by the MCP server.
func (w *toolWrapper) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	result, err := w.client.CallTool(ctx, w.toolName, args)
	if err != nil {
		return nil, fmt.Errorf("tool call failed: %w", err)
	}
	return formatResult(result), nil
}

// parseParameters extracts tool parameters from the JSON schema.
// Returns parameters in sorted order for deterministic output.
func parseParameters(inputSchema json.RawMessage) []tools.Parameter {
	var schema struct {
		Properties map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
		Required []string `json:"required"`
	}

	if err := json.Unmarshal(inputSchema, &schema); err != nil {
		return nil
	}

	requiredSet := make(map[string]bool)
	for _, r := range schema.Required {
		requiredSet[r] = true
	}

	// Extract and sort parameter names for deterministic output
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]tools.Parameter, 0, len(names))
	for _, name := range names {
		prop := schema.Properties[name]
		paramType := prop.Type
		if paramType == "" {
			paramType = "string"
		}

		params = append(params, tools.Parameter{
			Name:        name,
			Description: prop.Description,
			Type:        paramType,
			Required:    requiredSet[name],
		})
	}

	return params
}

// formatResult formats the result as pretty JSON if possible.
func formatResult(result json.RawMessage) string {
	var v interface{}
	if err := json.Unmarshal(result, &v); err != nil {
		// Not valid JSON, return as-is
		return string(result)
	}

	// If unmarshal succeeded, marshal should never fail
	pretty, _ := json.MarshalIndent(v, "", "  ")
	return string(pretty)
}

var _ tools.Tool = (*toolWrapper)(nil)
