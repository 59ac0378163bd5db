package llm

import (
	"context"
	"errors"
	"testing"
)

// stubProvider returns canned content, chunks, and usage.
type stubProvider struct {
	content string
	chunks  []string
	usage   *TokenUsage
	err     error
}

func (p *stubProvider) Name() string  { return "stub" }
func (p *stubProvider) Model() string { return "stub-1" }

func (p *stubProvider) Chat(ctx context.Context, messages []ChatMessage) (LLMResponse, error) {
	if p.err != nil {
		return LLMResponse{}, p.err
	}
	return LLMResponse{Content: p.content, Usage: p.usage}, nil
}

func (p *stubProvider) ChatWithFormat(ctx context.Context, messages []ChatMessage, format *ResponseFormat) (LLMResponse, error) {
	return p.Chat(ctx, messages)
}

func (p *stubProvider) StreamChat(ctx context.Context, messages []ChatMessage, chunks chan<- string) (*TokenUsage, error) {
	if p.err != nil {
		return nil, p.err
	}
	for _, chunk := range p.chunks {
		chunks <- chunk
	}
	return p.usage, nil
}

func TestClientChatWithUsage(t *testing.T) {
	client := NewClient(&stubProvider{
		content: "hello",
		usage:   &TokenUsage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
	})

	content, usage, err := client.ChatWithUsage(context.Background(), []ChatMessage{UserMessage("hi")})
	if err != nil {
		t.Fatalf("ChatWithUsage failed: %v", err)
	}
	if content != "hello" {
		t.Errorf("content = %q", content)
	}
	if usage == nil || usage.TotalTokens != 5 {
		t.Errorf("usage = %+v, want 5 total tokens", usage)
	}
}

func TestClientStreamChatForwardsChunks(t *testing.T) {
	client := NewClient(&stubProvider{
		chunks: []string{"hel", "lo"},
		usage:  &TokenUsage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3},
	})

	chunks := make(chan string, 4)
	usage, err := client.StreamChat(context.Background(), []ChatMessage{UserMessage("hi")}, chunks)
	if err != nil {
		t.Fatalf("StreamChat failed: %v", err)
	}
	close(chunks)

	var got string
	for chunk := range chunks {
		got += chunk
	}
	if got != "hello" {
		t.Errorf("streamed %q, want hello", got)
	}
	if usage == nil || usage.CompletionTokens != 2 {
		t.Errorf("usage = %+v, want 2 completion tokens", usage)
	}
}

func TestClientStreamChatPropagatesErrors(t *testing.T) {
	boom := errors.New("stream down")
	client := NewClient(&stubProvider{err: boom})

	chunks := make(chan string, 1)
	if _, err := client.StreamChat(context.Background(), nil, chunks); !errors.Is(err, boom) {
		t.Fatalf("got %v, want provider error", err)
	}
}
