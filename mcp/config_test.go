package mcp

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mcp.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `{
		"mcpServers": {
			"search": {
				"command": "npx",
				"args": ["-y", "@modelcontextprotocol/server-brave-search"],
				"env": {"BRAVE_API_KEY": "secret"}
			},
			"files": {
				"command": "mcp-fs",
				"args": ["/tmp"]
			}
		}
	}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	search := cfg.Servers["search"]
	if search.Command != "npx" || len(search.Args) != 2 {
		t.Errorf("search server = %+v", search)
	}
	if search.Env["BRAVE_API_KEY"] != "secret" {
		t.Errorf("env not loaded: %+v", search.Env)
	}

	names := cfg.Names()
	if len(names) != 2 || names[0] != "files" || names[1] != "search" {
		t.Errorf("Names() = %v, want sorted [files search]", names)
	}
}

func TestLoadConfigRejectsMissingCommand(t *testing.T) {
	path := writeConfig(t, `{"mcpServers": {"broken": {"args": ["x"]}}}`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for server without a command")
	}
}

func TestLoadConfigRejectsBadJSON(t *testing.T) {
	path := writeConfig(t, `{"mcpServers": `)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
