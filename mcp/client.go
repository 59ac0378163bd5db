// Package mcp connects tool registries to Model Context Protocol servers.
//
// A server is a child process speaking line-delimited JSON-RPC over its
// stdin/stdout. The client performs the initialize handshake, lists the
// server's tools, and invokes them on behalf of the reasoning loop.

package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

const (
	protocolVersion = "2024-11-05"
	clientName      = "loom"
	clientVersion   = "0.1.0"
)

// Client speaks JSON-RPC with one MCP server, one request at a time.
type Client struct {
	mu     sync.Mutex
	in     io.WriteCloser
	out    *bufio.Reader
	nextID uint64
	cmd    *exec.Cmd // nil when the client does not own the process
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// response covers both replies and server-initiated notifications; a
// notification has no ID.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id"`
	Method  string          `json:"method,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("mcp server error %d: %s", e.Code, e.Message)
}

// ToolInfo describes one tool advertised by the server.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Connect starts the server process, wires its pipes, and performs the
// initialize handshake. Env entries are appended to the inherited
// process environment.
func Connect(ctx context.Context, server Server) (*Client, error) {
	cmd := exec.CommandContext(ctx, server.Command, server.Args...)
	if len(server.Env) > 0 {
		cmd.Env = os.Environ()
		for key, value := range server.Env {
			cmd.Env = append(cmd.Env, key+"="+value)
		}
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("mcp: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("mcp: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("mcp: start server %s: %w", server.Command, err)
	}

	client := pipeClient(stdin, stdout)
	client.cmd = cmd
	if err := client.handshake(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// NewClient is Connect for a bare command line with no extra environment.
func NewClient(ctx context.Context, command string, args ...string) (*Client, error) {
	return Connect(ctx, Server{Command: command, Args: args})
}

// pipeClient builds a client over raw pipes with no owned process.
func pipeClient(in io.WriteCloser, out io.Reader) *Client {
	return &Client{in: in, out: bufio.NewReader(out)}
}

func (c *Client) handshake(ctx context.Context) error {
	_, err := c.call(ctx, "initialize", map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    clientName,
			"version": clientVersion,
		},
	})
	if err != nil {
		return fmt.Errorf("mcp: handshake: %w", err)
	}
	return nil
}

// ListTools asks the server which tools it advertises.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	result, err := c.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}

	var listed struct {
		Tools []ToolInfo `json:"tools"`
	}
	if err := json.Unmarshal(result, &listed); err != nil {
		return nil, fmt.Errorf("mcp: parse tool list: %w", err)
	}
	return listed.Tools, nil
}

// CallTool invokes one tool by name with JSON-encoded arguments.
func (c *Client) CallTool(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	return c.call(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": args,
	})
}

// call sends one request and reads lines until its reply arrives.
// Servers may interleave notifications and replies to other requests;
// lines whose ID does not match are skipped.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.nextID++
	id := c.nextID
	payload, err := json.Marshal(request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal %s request: %w", method, err)
	}
	if _, err := c.in.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("mcp: write %s request: %w", method, err)
	}

	for {
		line, err := c.out.ReadBytes('\n')
		if err != nil {
			return nil, fmt.Errorf("mcp: read %s response: %w", method, err)
		}

		var resp response
		if err := json.Unmarshal(line, &resp); err != nil {
			return nil, fmt.Errorf("mcp: parse %s response: %w", method, err)
		}
		if resp.ID == nil || *resp.ID != id {
			continue
		}
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	}
}

// Close shuts down the transport and, when the client owns the server
// process, reaps it.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.in != nil {
		c.in.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
		_ = c.cmd.Wait()
	}
	return nil
}
