// Chat runner: the default adapter pipeline over an llm.Client.
//
// The exchange protocol is JSON: the system prompt describes the
// signature's fields and demands a single JSON object holding exactly
// the output fields. Malformed responses are re-asked with a correction
// message, within the parse retry budget.

package adapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/loomworks/loom/llm"
	"github.com/loomworks/loom/signature"
)

const (
	defaultMaxAttempts   = 3
	defaultParseAttempts = 2
)

// Chat implements Runner over an LLM client.
type Chat struct {
	client        *llm.Client
	callbacks     Callbacks
	maxAttempts   int // request-level budget, transport failures
	parseAttempts int // output-validation budget, malformed responses
}

// ChatOption configures a Chat runner.
type ChatOption func(*Chat)

// WithCallbacks sets the lifecycle hooks.
func WithCallbacks(cb Callbacks) ChatOption {
	return func(c *Chat) { c.callbacks = cb }
}

// WithMaxAttempts sets the request-level retry budget (total attempts
// per completion call).
func WithMaxAttempts(n int) ChatOption {
	return func(c *Chat) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithParseAttempts sets the output-validation retry budget (total
// parse attempts per Run).
func WithParseAttempts(n int) ChatOption {
	return func(c *Chat) {
		if n > 0 {
			c.parseAttempts = n
		}
	}
}

// NewChat creates the default chat runner over the given client.
func NewChat(client *llm.Client, opts ...ChatOption) *Chat {
	c := &Chat{
		client:        client,
		maxAttempts:   defaultMaxAttempts,
		parseAttempts: defaultParseAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run formats the request, sends it, and parses the response into the
// signature's output fields. Both retry budgets live here.
func (c *Chat) Run(ctx context.Context, sig signature.Signature, inputs signature.Values, examples []signature.Example) (signature.Values, error) {
	if c.client == nil {
		return nil, fmt.Errorf("adapter: no LLM client configured")
	}

	messages, err := FormatMessages(sig, inputs, examples)
	if err != nil {
		return nil, err
	}

	var lastParseErr error
	for attempt := 0; attempt < c.parseAttempts; attempt++ {
		content, err := c.complete(ctx, sig, messages)
		if err != nil {
			return nil, err
		}

		values, parseErr := ParseCompletion(sig, content)
		if parseErr == nil {
			return values, nil
		}
		lastParseErr = parseErr

		// Feed the failure back so the model can correct itself.
		messages = append(messages,
			llm.AssistantMessage(content),
			llm.UserMessage(fmt.Sprintf(
				"Your previous response could not be parsed: %v\nRespond again with a single JSON object containing exactly the required output fields.",
				parseErr,
			)),
		)
	}

	return nil, fmt.Errorf("output parsing failed after %d attempts: %w", c.parseAttempts, lastParseErr)
}

// complete sends one completion request within the request retry budget.
func (c *Chat) complete(ctx context.Context, sig signature.Signature, messages []llm.ChatMessage) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff(attempt)):
			}
		}

		if c.callbacks.OnRequest != nil {
			c.callbacks.OnRequest(sig, messages[len(messages)-1].Content)
		}

		content, err := c.client.ChatWithFormat(ctx, messages, llm.NewJSONObjectFormat())

		if c.callbacks.OnResponse != nil {
			c.callbacks.OnResponse(sig, content, err)
		}

		if err == nil {
			return content, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("completion failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func backoff(attempt int) time.Duration {
	const (
		baseDelay = 100 * time.Millisecond
		maxDelay  = 5 * time.Second
	)

	delay := baseDelay * time.Duration(1<<attempt)
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// FormatMessages renders a signature, its examples, and the call inputs
// into chat messages.
func FormatMessages(sig signature.Signature, inputs signature.Values, examples []signature.Example) ([]llm.ChatMessage, error) {
	messages := []llm.ChatMessage{llm.SystemMessage(systemPrompt(sig))}

	for _, ex := range examples {
		messages = append(messages, llm.UserMessage(renderInputs(sig, ex.Inputs)))
		rendered, err := renderOutputs(sig, ex.Outputs)
		if err != nil {
			return nil, fmt.Errorf("invalid example: %w", err)
		}
		messages = append(messages, llm.AssistantMessage(rendered))
	}

	messages = append(messages, llm.UserMessage(renderInputs(sig, inputs)))
	return messages, nil
}

func systemPrompt(sig signature.Signature) string {
	var b strings.Builder

	if sig.Instructions != "" {
		b.WriteString(sig.Instructions)
		b.WriteString("\n\n")
	}

	b.WriteString("Input fields:\n")
	writeFieldList(&b, sig.Inputs)
	b.WriteString("\nOutput fields:\n")
	writeFieldList(&b, sig.Outputs)

	b.WriteString("\nRespond with a single JSON object containing exactly the output fields")
	b.WriteString(" and no other keys. Do not wrap the object in markdown or prose.\n")

	for _, f := range sig.Outputs {
		if len(f.Allowed) > 0 {
			fmt.Fprintf(&b, "The value of %q must be one of: %s.\n", f.Name, strings.Join(f.Allowed, ", "))
		}
	}

	return b.String()
}

func writeFieldList(b *strings.Builder, fields []signature.Field) {
	for i, f := range fields {
		desc := f.Description
		if desc == "" {
			desc = f.Name
		}
		required := ""
		if !f.Required {
			required = ", optional"
		}
		fmt.Fprintf(b, "%d. %s (%s%s): %s\n", i+1, f.Name, f.Type, required, desc)
	}
}

func renderInputs(sig signature.Signature, inputs signature.Values) string {
	var b strings.Builder
	for _, f := range sig.Inputs {
		val, ok := inputs[f.Name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", f.Name, renderValue(val))
	}
	return b.String()
}
