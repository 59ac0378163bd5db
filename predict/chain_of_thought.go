// ChainOfThought: reflective augmentation over Predict.
//
// The augmentation happens once at construction: the signature gains a
// required leading "reasoning" output field, and a fixed step-by-step
// directive is appended to the instructions. Forward behavior is
// otherwise identical to Predict over the augmented signature.

package predict

import (
	"context"
	"strings"

	"github.com/loomworks/loom/adapter"
	"github.com/loomworks/loom/module"
	"github.com/loomworks/loom/signature"
)

// ReasoningField is the name of the output field injected by
// ChainOfThought.
const ReasoningField = "reasoning"

const reasoningDirective = "Think step by step. Write out your reasoning before committing to the final outputs."

// ChainOfThought wraps Predict with a reflective reasoning output.
type ChainOfThought struct {
	base    signature.Signature
	predict *Predict
}

// NewChainOfThought creates a ChainOfThought module over the base
// signature and runner.
func NewChainOfThought(base signature.Signature, runner adapter.Runner, opts ...Option) (*ChainOfThought, error) {
	p, err := New(AugmentSignature(base, ReasoningField), runner, opts...)
	if err != nil {
		return nil, err
	}
	return &ChainOfThought{base: base, predict: p}, nil
}

// AugmentSignature returns a copy of base whose outputs gain one
// required leading string field with the given name, and whose
// instructions carry the step-by-step directive. The operation is
// idempotent: a signature that already carries the field is only
// re-instructed.
func AugmentSignature(base signature.Signature, field string) signature.Signature {
	out := base.WithInstructions(joinSections(base.Instructions, reasoningDirective))
	if out.HasOutput(field) {
		return out
	}
	augmented, err := out.PrependOutput(signature.Field{
		Name:        field,
		Type:        signature.TypeString,
		Description: "think step by step",
		Required:    true,
	})
	if err != nil {
		// Only reachable if the field name collides with an input,
		// in which case the signature is left un-augmented.
		return out
	}
	return augmented
}

// joinSections joins non-empty text segments with a blank line.
func joinSections(sections ...string) string {
	var parts []string
	for _, s := range sections {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Signature returns the augmented signature.
func (c *ChainOfThought) Signature() signature.Signature {
	return c.predict.Signature()
}

// Forward validates against the augmented signature and delegates to
// the underlying Predict.
func (c *ChainOfThought) Forward(ctx context.Context, inputs signature.Values) (module.Prediction, error) {
	return c.predict.Forward(ctx, inputs)
}

// Parameters delegates to the underlying Predict.
func (c *ChainOfThought) Parameters() []module.Parameter {
	return c.predict.Parameters()
}

// WithParameters returns a copy with the parameters applied to the
// underlying Predict.
func (c *ChainOfThought) WithParameters(params []module.Parameter) module.Module {
	inner := c.predict.WithParameters(params).(*Predict)
	return &ChainOfThought{base: c.base, predict: inner}
}

var _ module.Parameterized = (*ChainOfThought)(nil)
