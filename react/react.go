// Package react implements the bounded think-act-observe control loop.
//
// A React module wraps a base signature with two delegates: a step
// predictor that decides the next tool call from the trajectory so far,
// and an extractor that produces the base outputs once the loop ends.
// Tool failures are observations, not loop failures; running out of
// steps is a soft terminal state, not an error.
package react

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/loomworks/loom/adapter"
	"github.com/loomworks/loom/internal/inspect"
	"github.com/loomworks/loom/module"
	"github.com/loomworks/loom/predict"
	"github.com/loomworks/loom/signature"
	"github.com/loomworks/loom/tools"
)

// FinishTool is the reserved control signal the step predictor emits to
// end the loop. It is never a registry entry.
const FinishTool = "finish"

// Decision field names of the step signature.
const (
	FieldTrajectory = "trajectory"
	FieldThought    = "next_thought"
	FieldToolName   = "next_tool_name"
	FieldToolArgs   = "next_tool_args"
)

const defaultMaxSteps = 10

// ErrInvalidStepOutputs reports a step predictor result missing one of
// the three decision fields. It is a protocol violation, distinct from
// delegate errors, and is never retried.
var ErrInvalidStepOutputs = errors.New("invalid step outputs")

// React runs a bounded tool-use loop over a base signature.
type React struct {
	base      signature.Signature
	registry  *tools.Registry
	predictor *predict.Predict
	extractor *predict.ChainOfThought
	maxSteps  int
}

// Option configures a React module.
type Option func(*options)

type options struct {
	runner   adapter.Runner
	maxSteps int
	examples []signature.Example
}

// WithRunner sets the adapter runner shared by the step predictor and
// the extractor. A runner is required.
func WithRunner(runner adapter.Runner) Option {
	return func(o *options) { o.runner = runner }
}

// WithMaxSteps sets the step budget. Default 10.
func WithMaxSteps(n int) Option {
	return func(o *options) { o.maxSteps = n }
}

// WithExamples sets few-shot examples for the step predictor.
func WithExamples(examples []signature.Example) Option {
	return func(o *options) { o.examples = examples }
}

// New creates a React module over the base signature and tool list.
func New(base signature.Signature, toolList []tools.Tool, opts ...Option) (*React, error) {
	o := options{maxSteps: defaultMaxSteps}
	for _, opt := range opts {
		opt(&o)
	}
	if o.runner == nil {
		return nil, errors.New("react: runner is required")
	}
	if o.maxSteps < 1 {
		return nil, fmt.Errorf("react: max steps must be positive, got %d", o.maxSteps)
	}

	for _, tool := range toolList {
		if tool.Metadata().Name == FinishTool {
			return nil, fmt.Errorf("react: tool name %q is reserved", FinishTool)
		}
	}
	registry, err := tools.NewRegistry(toolList...)
	if err != nil {
		return nil, fmt.Errorf("react: %w", err)
	}

	stepSig, err := stepSignature(base, registry)
	if err != nil {
		return nil, fmt.Errorf("react: %w", err)
	}
	extractSig, err := extractSignature(base)
	if err != nil {
		return nil, fmt.Errorf("react: %w", err)
	}

	predictor, err := predict.New(stepSig, o.runner, predict.WithExamples(o.examples))
	if err != nil {
		return nil, fmt.Errorf("react: %w", err)
	}
	extractor, err := predict.NewChainOfThought(extractSig, o.runner)
	if err != nil {
		return nil, fmt.Errorf("react: %w", err)
	}

	return &React{
		base:      base,
		registry:  registry,
		predictor: predictor,
		extractor: extractor,
		maxSteps:  o.maxSteps,
	}, nil
}

// NewFromString is New over a shorthand signature such as
// "question -> answer".
func NewFromString(shorthand string, toolList []tools.Tool, opts ...Option) (*React, error) {
	base, err := signature.Parse(shorthand)
	if err != nil {
		return nil, fmt.Errorf("react: %w", err)
	}
	return New(base, toolList, opts...)
}

// stepSignature derives the decision signature: the base inputs plus
// the trajectory so far, producing the fixed thought/tool/args triple.
func stepSignature(base signature.Signature, registry *tools.Registry) (signature.Signature, error) {
	allowed := append(registry.Names(), FinishTool)

	inputs := append(cloneFields(base.Inputs), trajectoryField())
	outputs := []signature.Field{
		{
			Name:        FieldThought,
			Type:        signature.TypeString,
			Description: "reasoning about what to do next",
			Required:    true,
		},
		{
			Name:        FieldToolName,
			Type:        signature.TypeString,
			Description: "name of the tool to call next",
			Required:    true,
			Allowed:     allowed,
		},
		{
			Name:        FieldToolArgs,
			Type:        signature.TypeJSON,
			Description: "arguments for the tool, as a JSON object",
			Default:     map[string]any{},
		},
	}

	sig, err := signature.New(base.Name+"_step", inputs, outputs)
	if err != nil {
		return signature.Signature{}, err
	}
	return sig.WithInstructions(stepInstructions(base, registry, allowed)), nil
}

// extractSignature derives the extraction signature: the base inputs
// plus the final trajectory, producing the base outputs unchanged.
func extractSignature(base signature.Signature) (signature.Signature, error) {
	inputs := append(cloneFields(base.Inputs), trajectoryField())
	sig, err := signature.New(base.Name+"_extract", inputs, base.Outputs)
	if err != nil {
		return signature.Signature{}, err
	}
	return sig.WithInstructions(base.Instructions), nil
}

func trajectoryField() signature.Field {
	return signature.Field{
		Name:        FieldTrajectory,
		Type:        signature.TypeString,
		Description: "steps taken so far",
		Default:     "",
	}
}

func stepInstructions(base signature.Signature, registry *tools.Registry, allowed []string) string {
	var b strings.Builder
	if strings.TrimSpace(base.Instructions) != "" {
		b.WriteString(base.Instructions)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "You are working towards producing: %s.\n", strings.Join(base.OutputNames(), ", "))
	b.WriteString("You proceed in steps of thought, tool call, and observation. ")
	b.WriteString("Given the inputs and the trajectory of steps so far, decide the next step: ")
	fmt.Fprintf(&b, "state your reasoning in %s, pick %s, and give its arguments as a JSON object in %s.\n\n", FieldThought, FieldToolName, FieldToolArgs)

	b.WriteString("Available tools:\n")
	for _, meta := range registry.List() {
		fmt.Fprintf(&b, "- %s: %s\n", meta.Name, meta.Description)
		for _, p := range meta.Parameters {
			required := "optional"
			if p.Required {
				required = "required"
			}
			fmt.Fprintf(&b, "    %s (%s, %s): %s\n", p.Name, p.Type, required, p.Description)
		}
	}
	fmt.Fprintf(&b, "- %s: signal that enough information has been gathered to produce the outputs\n\n", FinishTool)

	fmt.Fprintf(&b, "%s must be exactly one of: %s.", FieldToolName, strings.Join(allowed, ", "))
	return b.String()
}

func cloneFields(fields []signature.Field) []signature.Field {
	out := make([]signature.Field, len(fields))
	copy(out, fields)
	return out
}

// Signature returns the base signature the loop was built over.
func (r *React) Signature() signature.Signature {
	return r.base
}

// MaxSteps returns the step budget.
func (r *React) MaxSteps() int {
	return r.maxSteps
}

// Forward runs the loop: validate inputs once, iterate up to the step
// budget, then extract the base outputs from the final trajectory. The
// returned prediction carries every extractor output plus a trajectory
// field holding the rendered step history.
func (r *React) Forward(ctx context.Context, inputs signature.Values) (module.Prediction, error) {
	pred, _, err := r.run(ctx, inputs)
	return pred, err
}

// run is Forward with the trajectory records exposed.
func (r *React) run(ctx context.Context, inputs signature.Values) (module.Prediction, Trajectory, error) {
	if err := signature.ValidateInputs(r.base, inputs); err != nil {
		return module.Prediction{}, nil, err
	}

	var trajectory Trajectory
	finished := false

	for step := 0; step < r.maxSteps; step++ {
		stepInputs := inputs.Clone()
		stepInputs[FieldTrajectory] = trajectory.Render()

		decision, err := r.predictor.Forward(ctx, stepInputs)
		if err != nil {
			return module.Prediction{}, trajectory, err
		}

		thought, toolName, args, err := decodeDecision(decision)
		if err != nil {
			return module.Prediction{}, trajectory, err
		}

		if toolName == FinishTool {
			finished = true
			break
		}

		record := StepRecord{Thought: thought, Tool: toolName, Args: args}
		result, err := r.registry.Execute(ctx, toolName, args)
		if err != nil {
			record.Observation = err.Error()
			record.IsError = true
		} else {
			record.Observation = inspect.Render(result)
		}
		trajectory = append(trajectory, record)
	}

	if !finished {
		trajectory = append(trajectory, StepRecord{
			Observation: "max steps reached",
			IsError:     true,
		})
	}

	rendered := trajectory.Render()
	extractInputs := inputs.Clone()
	extractInputs[FieldTrajectory] = rendered

	extracted, err := r.extractor.Forward(ctx, extractInputs)
	if err != nil {
		return module.Prediction{}, trajectory, err
	}

	return extracted.With(FieldTrajectory, rendered), trajectory, nil
}

// decodeDecision pulls the three decision fields out of a step
// prediction. All three must be present and the thought and tool name
// must be strings; anything else is a protocol violation, not a
// retriable delegate error.
func decodeDecision(decision module.Prediction) (thought, toolName string, args json.RawMessage, err error) {
	thoughtVal, ok := decision.Get(FieldThought)
	if !ok {
		return "", "", nil, fmt.Errorf("%w: missing %s", ErrInvalidStepOutputs, FieldThought)
	}
	toolVal, ok := decision.Get(FieldToolName)
	if !ok {
		return "", "", nil, fmt.Errorf("%w: missing %s", ErrInvalidStepOutputs, FieldToolName)
	}
	argsVal, ok := decision.Get(FieldToolArgs)
	if !ok {
		return "", "", nil, fmt.Errorf("%w: missing %s", ErrInvalidStepOutputs, FieldToolArgs)
	}

	thought, ok = thoughtVal.(string)
	if !ok {
		return "", "", nil, fmt.Errorf("%w: %s is not a string", ErrInvalidStepOutputs, FieldThought)
	}
	toolName, ok = toolVal.(string)
	if !ok || toolName == "" {
		return "", "", nil, fmt.Errorf("%w: %s is not a string", ErrInvalidStepOutputs, FieldToolName)
	}

	args, err = encodeArgs(argsVal)
	if err != nil {
		return "", "", nil, fmt.Errorf("%w: %s: %v", ErrInvalidStepOutputs, FieldToolArgs, err)
	}
	return thought, toolName, args, nil
}

func encodeArgs(v any) (json.RawMessage, error) {
	switch args := v.(type) {
	case nil:
		return json.RawMessage("{}"), nil
	case json.RawMessage:
		return args, nil
	default:
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}
		return raw, nil
	}
}

// Parameters exposes the delegates' parameters, namespaced by role.
func (r *React) Parameters() []module.Parameter {
	var params []module.Parameter
	for _, p := range r.predictor.Parameters() {
		p.Name = "predict." + p.Name
		params = append(params, p)
	}
	for _, p := range r.extractor.Parameters() {
		p.Name = "extract." + p.Name
		params = append(params, p)
	}
	return params
}

// WithParameters returns a copy with the namespaced parameters routed
// to the matching delegate. Unknown names are ignored.
func (r *React) WithParameters(params []module.Parameter) module.Module {
	var forPredict, forExtract []module.Parameter
	for _, p := range params {
		switch {
		case strings.HasPrefix(p.Name, "predict."):
			p.Name = strings.TrimPrefix(p.Name, "predict.")
			forPredict = append(forPredict, p)
		case strings.HasPrefix(p.Name, "extract."):
			p.Name = strings.TrimPrefix(p.Name, "extract.")
			forExtract = append(forExtract, p)
		}
	}

	out := &React{
		base:      r.base,
		registry:  r.registry,
		predictor: r.predictor,
		extractor: r.extractor,
		maxSteps:  r.maxSteps,
	}
	if len(forPredict) > 0 {
		out.predictor = r.predictor.WithParameters(forPredict).(*predict.Predict)
	}
	if len(forExtract) > 0 {
		out.extractor = r.extractor.WithParameters(forExtract).(*predict.ChainOfThought)
	}
	return out
}

var _ module.Parameterized = (*React)(nil)
