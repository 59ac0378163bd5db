package mcp

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseParametersSortedWithRequired(t *testing.T) {
	schema := json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "what to search for"},
			"count": {"type": "integer"}
		},
		"required": ["query"]
	}`)

	params := parseParameters(schema)
	if len(params) != 2 {
		t.Fatalf("got %d parameters, want 2", len(params))
	}
	if params[0].Name != "count" || params[1].Name != "query" {
		t.Errorf("parameters not sorted: %q, %q", params[0].Name, params[1].Name)
	}
	if !params[1].Required || params[0].Required {
		t.Error("required flags wrong")
	}
	if params[0].Type != "integer" {
		t.Errorf("count type = %q", params[0].Type)
	}
}

func TestParseParametersDefaultsTypeToString(t *testing.T) {
	schema := json.RawMessage(`{"properties": {"q": {"description": "untyped"}}}`)
	params := parseParameters(schema)
	if len(params) != 1 || params[0].Type != "string" {
		t.Errorf("params = %+v, want one string parameter", params)
	}
}

func TestFormatResultPrettyPrintsJSON(t *testing.T) {
	got := formatResult(json.RawMessage(`{"content":[{"text":"hi"}]}`))
	if !strings.Contains(got, "\n") || !strings.Contains(got, `"hi"`) {
		t.Errorf("got %q, want indented JSON", got)
	}
}

func TestFormatResultPassesThroughNonJSON(t *testing.T) {
	if got := formatResult(json.RawMessage("plain text")); got != "plain text" {
		t.Errorf("got %q", got)
	}
}
