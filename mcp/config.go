// MCP server configuration files, in the common mcpServers layout:
//
//	{
//	  "mcpServers": {
//	    "search": {
//	      "command": "npx",
//	      "args": ["-y", "@modelcontextprotocol/server-brave-search"],
//	      "env": {"BRAVE_API_KEY": "..."}
//	    }
//	  }
//	}
package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Config holds the configured MCP servers, keyed by name.
type Config struct {
	Servers map[string]Server `json:"mcpServers"`
}

// Server describes how to launch one MCP server process.
type Server struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
}

// LoadConfig reads and validates a configuration file. Every server
// entry must name a command.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mcp: read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("mcp: parse config %s: %w", path, err)
	}

	for name, server := range cfg.Servers {
		if strings.TrimSpace(server.Command) == "" {
			return nil, fmt.Errorf("mcp: server %q: command is required", name)
		}
	}
	return &cfg, nil
}

// Names returns the configured server names in sorted order, so
// startup and tool registration stay deterministic.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Servers))
	for name := range c.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
