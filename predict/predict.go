// Package predict provides the basic reasoning modules: Predict, which
// runs one signature through the adapter pipeline, and ChainOfThought,
// which wraps Predict with a reflective "show your reasoning" output.
package predict

import (
	"context"
	"errors"

	"github.com/loomworks/loom/adapter"
	"github.com/loomworks/loom/module"
	"github.com/loomworks/loom/signature"
)

// Predict is the direct reasoning module: validate inputs, delegate to
// the adapter pipeline, wrap the parsed fields as a Prediction.
type Predict struct {
	sig      signature.Signature
	runner   adapter.Runner
	examples []signature.Example
}

// Option configures a Predict module.
type Option func(*Predict)

// WithExamples sets the few-shot examples sent with every call.
func WithExamples(examples []signature.Example) Option {
	return func(p *Predict) {
		p.examples = append([]signature.Example{}, examples...)
	}
}

// New creates a Predict module over the given signature and runner.
func New(sig signature.Signature, runner adapter.Runner, opts ...Option) (*Predict, error) {
	if runner == nil {
		return nil, errors.New("predict: runner is required")
	}
	p := &Predict{sig: sig, runner: runner}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Signature returns the module's signature.
func (p *Predict) Signature() signature.Signature {
	return p.sig
}

// Examples returns the module's few-shot examples.
func (p *Predict) Examples() []signature.Example {
	return append([]signature.Example{}, p.examples...)
}

// Forward validates the inputs and runs them through the adapter pipeline.
func (p *Predict) Forward(ctx context.Context, inputs signature.Values) (module.Prediction, error) {
	if err := signature.ValidateInputs(p.sig, inputs); err != nil {
		return module.Prediction{}, err
	}

	values, err := p.runner.Run(ctx, p.sig, signature.ApplyDefaults(p.sig, inputs), p.examples)
	if err != nil {
		return module.Prediction{}, err
	}

	return module.NewPrediction(values), nil
}

// Parameters exposes the tunable parts of the module: its instructions
// and its examples.
func (p *Predict) Parameters() []module.Parameter {
	return []module.Parameter{
		{Name: "instructions", Kind: module.KindInstructions, Value: p.sig.Instructions},
		{Name: "examples", Kind: module.KindExamples, Value: p.Examples()},
	}
}

// WithParameters returns a copy of the module with matching parameters
// applied. Unknown parameter names are ignored.
func (p *Predict) WithParameters(params []module.Parameter) module.Module {
	out := &Predict{
		sig:      p.sig,
		runner:   p.runner,
		examples: p.Examples(),
	}
	for _, param := range params {
		switch param.Name {
		case "instructions":
			if s, ok := param.Value.(string); ok {
				out.sig = out.sig.WithInstructions(s)
			}
		case "examples":
			if ex, ok := param.Value.([]signature.Example); ok {
				out.examples = append([]signature.Example{}, ex...)
			}
		}
	}
	return out
}

var _ module.Parameterized = (*Predict)(nil)
