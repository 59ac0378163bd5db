// Retry decorator for flaky tools.
//
// The control loop itself never retries; robustness against transient
// tool failures is the tool's own business, opted into by wrapping it.

package tools

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// RetryConfig holds retry behavior for a wrapped tool.
// The zero value gives 3 attempts with exponential backoff.
type RetryConfig struct {
	MaxAttempts uint32
}

// Attempts returns the configured attempt count, defaulting to 3.
func (c RetryConfig) Attempts() uint32 {
	if c.MaxAttempts == 0 {
		return 3
	}
	return c.MaxAttempts
}

// WithRetry wraps a tool so transient failures are retried with
// exponential backoff before being reported.
func WithRetry(tool Tool, config RetryConfig) Tool {
	return &retryTool{inner: tool, config: config}
}

type retryTool struct {
	inner  Tool
	config RetryConfig
}

func (t *retryTool) Metadata() Metadata {
	return t.inner.Metadata()
}

func (t *retryTool) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	var lastErr error
	attempts := t.config.Attempts()

	for attempt := uint32(0); attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBackoff(attempt)):
			}
		}

		value, err := t.inner.Execute(ctx, args)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if !retryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

func retryBackoff(attempt uint32) time.Duration {
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

// retryable classifies an error: validation and permission failures
// will not improve on retry, timeouts and network errors might.
func retryable(err error) bool {
	msg := strings.ToLower(err.Error())

	nonRetryable := []string{"validation", "not allowed", "permission", "invalid"}
	for _, s := range nonRetryable {
		if strings.Contains(msg, s) {
			return false
		}
	}

	return true
}
