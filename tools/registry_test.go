package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func echoTool(name string) Tool {
	return NewFunc(name, "echoes its arguments", func(ctx context.Context, args json.RawMessage) (any, error) {
		return string(args), nil
	})
}

func TestRegistryDispatch(t *testing.T) {
	reg, err := NewRegistry(echoTool("alpha"), echoTool("beta"))
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	got, err := reg.Execute(context.Background(), "alpha", json.RawMessage(`{"x":1}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got != `{"x":1}` {
		t.Errorf("got %v, want raw args back", got)
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	reg, err := NewRegistry(echoTool("alpha"))
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	_, err = reg.Execute(context.Background(), "missing", nil)
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}
	if err.Error() != "unknown tool: missing" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	_, err := NewRegistry(echoTool("alpha"), echoTool("alpha"))
	if err == nil {
		t.Fatal("expected duplicate name to be rejected")
	}
	if !strings.Contains(err.Error(), "already registered") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRegistryRejectsEmptyName(t *testing.T) {
	_, err := NewRegistry(echoTool(""))
	if err == nil {
		t.Fatal("expected empty name to be rejected")
	}
}

func TestRegistryNamesOrder(t *testing.T) {
	reg, err := NewRegistry(echoTool("c"), echoTool("a"), echoTool("b"))
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	names := reg.Names()
	want := []string{"c", "a", "b"}
	if len(names) != len(want) {
		t.Fatalf("got %d names, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	flaky := NewFunc("flaky", "fails twice then succeeds", func(ctx context.Context, args json.RawMessage) (any, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("temporary failure")
		}
		return "ok", nil
	})

	wrapped := WithRetry(flaky, RetryConfig{MaxAttempts: 3})
	got, err := wrapped.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got != "ok" {
		t.Errorf("got %v, want ok", got)
	}
	if calls != 3 {
		t.Errorf("got %d calls, want 3", calls)
	}
}

func TestRetrySkipsNonRetryableErrors(t *testing.T) {
	calls := 0
	bad := NewFunc("bad", "always fails validation", func(ctx context.Context, args json.RawMessage) (any, error) {
		calls++
		return nil, fmt.Errorf("validation failed: missing field")
	})

	wrapped := WithRetry(bad, RetryConfig{MaxAttempts: 5})
	_, err := wrapped.Execute(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("got %d calls, want 1 (no retries on validation errors)", calls)
	}
}

func TestHTTPToolDomainAllowlist(t *testing.T) {
	tool := NewHTTPTool(5).WithAllowedDomains([]string{"example.com"})

	cases := []struct {
		url     string
		allowed bool
	}{
		{"https://example.com/page", true},
		{"https://api.example.com/v1", true},
		{"https://evil.com/example.com", false},
		{"https://notexample.com", false},
	}

	for _, tc := range cases {
		if got := tool.isDomainAllowed(tc.url); got != tc.allowed {
			t.Errorf("isDomainAllowed(%q) = %v, want %v", tc.url, got, tc.allowed)
		}
	}
}

func TestHTTPToolRejectsEmptyURL(t *testing.T) {
	tool := NewHTTPTool(5)
	_, err := tool.Execute(context.Background(), json.RawMessage(`{"url":""}`))
	if err == nil {
		t.Fatal("expected error for empty URL")
	}
}
