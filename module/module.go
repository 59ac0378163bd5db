// Package module defines the uniform contract every reasoning module
// satisfies, plus the combinators used to build pipelines from them.
//
// A module turns named input values into a Prediction. Modules that can
// be tuned additionally expose their parameters through the
// Parameterized interface; modules lacking it are treated as having an
// empty parameter set, never as an error.
package module

import (
	"context"
	"errors"
	"sort"

	"github.com/loomworks/loom/signature"
)

// Module is the contract shared by all reasoning modules.
type Module interface {
	// Forward runs the module on the given inputs.
	Forward(ctx context.Context, inputs signature.Values) (Prediction, error)
}

// Prediction is the immutable named-field result of one module call.
type Prediction struct {
	fields signature.Values
}

// NewPrediction creates a prediction from the given fields.
// The fields are copied; later mutation of the argument has no effect.
func NewPrediction(fields signature.Values) Prediction {
	return Prediction{fields: fields.Clone()}
}

// Get returns the value of a field.
func (p Prediction) Get(name string) (any, bool) {
	v, ok := p.fields[name]
	return v, ok
}

// GetString returns a field's value as a string, or "" if absent
// or not a string.
func (p Prediction) GetString(name string) string {
	s, _ := p.fields[name].(string)
	return s
}

// Values returns a copy of all fields.
func (p Prediction) Values() signature.Values {
	return p.fields.Clone()
}

// Keys returns the field names in sorted order.
func (p Prediction) Keys() []string {
	keys := make([]string, 0, len(p.fields))
	for k := range p.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// With returns a copy of the prediction with one field added or replaced.
func (p Prediction) With(name string, value any) Prediction {
	fields := p.fields.Clone()
	fields[name] = value
	return Prediction{fields: fields}
}

// Parameter is the unit of module introspection and mutation used by
// optimization and persistence workflows.
type Parameter struct {
	Name  string
	Kind  string
	Value any
}

// Parameter kinds used by the built-in modules.
const (
	KindInstructions = "instructions"
	KindExamples     = "examples"
)

// Parameterized is the optional capability of modules that expose
// tunable parameters. WithParameters must not mutate the receiver;
// it returns a new module with the parameters applied.
type Parameterized interface {
	Module
	Parameters() []Parameter
	WithParameters(params []Parameter) Module
}

// ErrParametersUnsupported is returned by ExportParameters and
// ApplyParameters for modules that do not implement Parameterized,
// for callers that must tell "no parameters" apart from "does not
// support parameters".
var ErrParametersUnsupported = errors.New("module does not support parameters")

// ParametersOf returns a module's parameters, or an empty list for
// modules that do not implement Parameterized.
func ParametersOf(m Module) []Parameter {
	if p, ok := m.(Parameterized); ok {
		return p.Parameters()
	}
	return nil
}

// UpdateParameters applies parameters to a module, returning the module
// unchanged if it does not implement Parameterized.
func UpdateParameters(m Module, params []Parameter) Module {
	if p, ok := m.(Parameterized); ok {
		return p.WithParameters(params)
	}
	return m
}

// ExportParameters returns a module's parameters, or
// ErrParametersUnsupported if the module does not implement Parameterized.
func ExportParameters(m Module) ([]Parameter, error) {
	p, ok := m.(Parameterized)
	if !ok {
		return nil, ErrParametersUnsupported
	}
	return p.Parameters(), nil
}

// ApplyParameters applies parameters to a module, or returns
// ErrParametersUnsupported if the module does not implement Parameterized.
func ApplyParameters(m Module, params []Parameter) (Module, error) {
	p, ok := m.(Parameterized)
	if !ok {
		return nil, ErrParametersUnsupported
	}
	return p.WithParameters(params), nil
}
