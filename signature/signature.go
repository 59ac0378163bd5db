// Package signature defines typed input/output contracts for reasoning modules.
//
// A Signature describes what a module consumes and what it must produce:
// an ordered list of typed input fields and an ordered list of typed
// output fields, plus optional task instructions. Signatures are value
// types; every "mutation" returns a new Signature.
package signature

import (
	"fmt"
	"strings"
)

// FieldType is the type tag of a signature field.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
	TypeBool   FieldType = "bool"
	// TypeJSON marks a field carrying an arbitrary JSON value
	// (object, array, or scalar).
	TypeJSON FieldType = "json"
)

// Field describes one named, typed field of a signature.
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Required    bool
	// Default is used when the field is absent from the input values.
	// Only meaningful for optional fields.
	Default any
	// Allowed restricts a string field to a closed value set.
	// Empty means any value is accepted.
	Allowed []string
}

// Signature is the immutable contract of one reasoning task.
type Signature struct {
	Name         string
	Instructions string
	Inputs       []Field
	Outputs      []Field
}

// New creates a signature, verifying that field names are non-empty and
// unique across inputs and outputs.
func New(name string, inputs, outputs []Field) (Signature, error) {
	seen := make(map[string]bool, len(inputs)+len(outputs))
	for _, f := range append(append([]Field{}, inputs...), outputs...) {
		if f.Name == "" {
			return Signature{}, fmt.Errorf("signature %q: field with empty name", name)
		}
		if seen[f.Name] {
			return Signature{}, fmt.Errorf("signature %q: duplicate field %q", name, f.Name)
		}
		seen[f.Name] = true
	}
	return Signature{
		Name:    name,
		Inputs:  cloneFields(inputs),
		Outputs: cloneFields(outputs),
	}, nil
}

// MustNew is like New but panics on invalid field lists.
// Use only for signatures known at compile time.
func MustNew(name string, inputs, outputs []Field) Signature {
	sig, err := New(name, inputs, outputs)
	if err != nil {
		panic(err)
	}
	return sig
}

// Parse builds a signature from the shorthand "a, b -> c, d" form.
// All fields are required strings; use the builder methods to refine them.
func Parse(shorthand string) (Signature, error) {
	parts := strings.Split(shorthand, "->")
	if len(parts) != 2 {
		return Signature{}, fmt.Errorf("invalid signature %q: expected exactly one \"->\"", shorthand)
	}

	inputs, err := parseFieldNames(parts[0])
	if err != nil {
		return Signature{}, fmt.Errorf("invalid signature %q: %w", shorthand, err)
	}
	outputs, err := parseFieldNames(parts[1])
	if err != nil {
		return Signature{}, fmt.Errorf("invalid signature %q: %w", shorthand, err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return Signature{}, fmt.Errorf("invalid signature %q: inputs and outputs must be non-empty", shorthand)
	}

	name := strings.Join(fieldNames(inputs), "_") + "_to_" + strings.Join(fieldNames(outputs), "_")
	return New(name, inputs, outputs)
}

// MustParse is like Parse but panics on malformed shorthand.
func MustParse(shorthand string) Signature {
	sig, err := Parse(shorthand)
	if err != nil {
		panic(err)
	}
	return sig
}

func parseFieldNames(s string) ([]Field, error) {
	var fields []Field
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if strings.ContainsAny(name, " \t") {
			return nil, fmt.Errorf("field name %q contains whitespace", name)
		}
		fields = append(fields, Field{Name: name, Type: TypeString, Required: true})
	}
	return fields, nil
}

func fieldNames(fields []Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// WithInstructions returns a copy with the given instructions.
func (s Signature) WithInstructions(text string) Signature {
	out := s.clone()
	out.Instructions = text
	return out
}

// WithName returns a copy with the given name.
func (s Signature) WithName(name string) Signature {
	out := s.clone()
	out.Name = name
	return out
}

// AppendInput returns a copy with the field appended to the inputs.
// Returns an error if the name collides with an existing field.
func (s Signature) AppendInput(f Field) (Signature, error) {
	if s.hasField(f.Name) {
		return Signature{}, fmt.Errorf("signature %q: duplicate field %q", s.Name, f.Name)
	}
	out := s.clone()
	out.Inputs = append(out.Inputs, f)
	return out, nil
}

// PrependOutput returns a copy with the field inserted before all outputs.
// Returns an error if the name collides with an existing field.
func (s Signature) PrependOutput(f Field) (Signature, error) {
	if s.hasField(f.Name) {
		return Signature{}, fmt.Errorf("signature %q: duplicate field %q", s.Name, f.Name)
	}
	out := s.clone()
	out.Outputs = append([]Field{f}, out.Outputs...)
	return out, nil
}

// WithOutputs returns a copy whose outputs are replaced wholesale.
func (s Signature) WithOutputs(outputs []Field) (Signature, error) {
	return New(s.Name, s.Inputs, outputs)
}

// Input returns the input field with the given name.
func (s Signature) Input(name string) (Field, bool) {
	return findField(s.Inputs, name)
}

// Output returns the output field with the given name.
func (s Signature) Output(name string) (Field, bool) {
	return findField(s.Outputs, name)
}

// HasOutput reports whether an output field with the given name exists.
func (s Signature) HasOutput(name string) bool {
	_, ok := findField(s.Outputs, name)
	return ok
}

// InputNames returns the input field names in declaration order.
func (s Signature) InputNames() []string {
	return fieldNames(s.Inputs)
}

// OutputNames returns the output field names in declaration order.
func (s Signature) OutputNames() []string {
	return fieldNames(s.Outputs)
}

func (s Signature) hasField(name string) bool {
	if _, ok := findField(s.Inputs, name); ok {
		return true
	}
	_, ok := findField(s.Outputs, name)
	return ok
}

func (s Signature) clone() Signature {
	return Signature{
		Name:         s.Name,
		Instructions: s.Instructions,
		Inputs:       cloneFields(s.Inputs),
		Outputs:      cloneFields(s.Outputs),
	}
}

func findField(fields []Field, name string) (Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func cloneFields(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}
