package signature

import (
	"fmt"
	"strings"
)

// Values is a named-field value container, validated against a
// signature's field descriptors.
type Values map[string]any

// Clone returns a shallow copy.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Example is one input/output pair used for few-shot conditioning.
type Example struct {
	Inputs  Values
	Outputs Values
}

// ValidateInputs checks values against the signature's input descriptors:
// required fields must be present and non-nil, unknown fields are
// rejected, and fields with a closed value set must hold an allowed value.
func ValidateInputs(sig Signature, values Values) error {
	for name := range values {
		if _, ok := sig.Input(name); !ok {
			return fmt.Errorf("signature %q: unknown input field %q", sig.Name, name)
		}
	}

	for _, f := range sig.Inputs {
		val, present := values[f.Name]
		if !present || val == nil {
			if f.Required {
				return fmt.Errorf("signature %q: missing required input field %q", sig.Name, f.Name)
			}
			continue
		}
		if err := f.CheckValue(val); err != nil {
			return fmt.Errorf("signature %q: %w", sig.Name, err)
		}
	}
	return nil
}

// ApplyDefaults returns a copy of values with each absent optional
// field that carries a default filled in.
func ApplyDefaults(sig Signature, values Values) Values {
	out := values.Clone()
	for _, f := range sig.Inputs {
		if _, present := out[f.Name]; !present && f.Default != nil {
			out[f.Name] = f.Default
		}
	}
	return out
}

// CheckValue verifies a value against the field's allowed-value set.
func (f Field) CheckValue(val any) error {
	if len(f.Allowed) == 0 {
		return nil
	}
	s, ok := val.(string)
	if !ok {
		return fmt.Errorf("field %q: expected one of [%s], got %T", f.Name, strings.Join(f.Allowed, ", "), val)
	}
	for _, allowed := range f.Allowed {
		if s == allowed {
			return nil
		}
	}
	return fmt.Errorf("field %q: value %q not in allowed set [%s]", f.Name, s, strings.Join(f.Allowed, ", "))
}
