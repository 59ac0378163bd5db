// Package adapter renders a signature plus examples into a provider
// request and parses the model's response back into typed field values.
//
// Reasoning modules consume the pipeline through the one-method Runner
// interface; the Chat implementation carries the retry budgets and
// lifecycle callbacks so that modules above it never retry anything
// themselves.
package adapter

import (
	"context"

	"github.com/loomworks/loom/signature"
)

// Runner is the adapter pipeline contract consumed by reasoning modules:
// one call that formats, sends, parses, and retries within its budgets.
type Runner interface {
	Run(ctx context.Context, sig signature.Signature, inputs signature.Values, examples []signature.Example) (signature.Values, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, sig signature.Signature, inputs signature.Values, examples []signature.Example) (signature.Values, error)

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, sig signature.Signature, inputs signature.Values, examples []signature.Example) (signature.Values, error) {
	return f(ctx, sig, inputs, examples)
}

// Callbacks are lifecycle hooks invoked around each provider request.
// Either hook may be nil.
type Callbacks struct {
	// OnRequest fires before a completion request is sent.
	OnRequest func(sig signature.Signature, prompt string)
	// OnResponse fires after a completion returns, with the raw content
	// or the transport error.
	OnResponse func(sig signature.Signature, content string, err error)
}
