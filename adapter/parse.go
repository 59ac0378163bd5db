// Response parsing: model text to typed output values.

package adapter

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/loomworks/loom/internal/jsonutil"
	"github.com/loomworks/loom/signature"
)

// ParseCompletion extracts the JSON object from a model response and
// coerces it into the signature's output fields. Required output fields
// that are absent make the whole parse fail.
func ParseCompletion(sig signature.Signature, content string) (signature.Values, error) {
	obj, err := jsonutil.ExtractObject(content)
	if err != nil {
		return nil, err
	}

	values := make(signature.Values, len(sig.Outputs))
	for _, f := range sig.Outputs {
		raw, present := obj[f.Name]
		if !present || raw == nil {
			if f.Required {
				return nil, fmt.Errorf("response missing required output field %q", f.Name)
			}
			if f.Default != nil {
				values[f.Name] = f.Default
			}
			continue
		}

		coerced, err := coerceValue(f, raw)
		if err != nil {
			return nil, err
		}
		if err := f.CheckValue(coerced); err != nil {
			return nil, err
		}
		values[f.Name] = coerced
	}

	return values, nil
}

// coerceValue converts a decoded JSON value into the field's Go
// representation. Models frequently return numbers for string fields
// and strings for numeric ones, so conversion is lenient.
func coerceValue(f signature.Field, raw any) (any, error) {
	switch f.Type {
	case signature.TypeString:
		if s, ok := raw.(string); ok {
			return s, nil
		}
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: cannot render %T as string", f.Name, raw)
		}
		return string(data), nil

	case signature.TypeInt:
		switch v := raw.(type) {
		case float64:
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("field %q: %v is not an integer", f.Name, v)
			}
			return int(v), nil
		case string:
			i, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("field %q: %q is not an integer", f.Name, v)
			}
			return i, nil
		default:
			return nil, fmt.Errorf("field %q: expected integer, got %T", f.Name, raw)
		}

	case signature.TypeFloat:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case string:
			fv, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("field %q: %q is not a number", f.Name, v)
			}
			return fv, nil
		default:
			return nil, fmt.Errorf("field %q: expected number, got %T", f.Name, raw)
		}

	case signature.TypeBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			bv, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("field %q: %q is not a boolean", f.Name, v)
			}
			return bv, nil
		default:
			return nil, fmt.Errorf("field %q: expected boolean, got %T", f.Name, raw)
		}

	case signature.TypeJSON:
		// Some models double-encode JSON arguments as a string.
		if s, ok := raw.(string); ok {
			if decoded, err := jsonutil.DecodeValue(s); err == nil {
				return decoded, nil
			}
			return s, nil
		}
		return raw, nil

	default:
		return raw, nil
	}
}

// renderValue turns an input value into prompt text. Strings pass
// through; everything else is JSON.
func renderValue(val any) string {
	if s, ok := val.(string); ok {
		return s
	}
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Sprintf("%v", val)
	}
	return string(data)
}

// renderOutputs serializes example outputs as the JSON object the model
// is asked to produce.
func renderOutputs(sig signature.Signature, outputs signature.Values) (string, error) {
	obj := make(map[string]any, len(sig.Outputs))
	for _, f := range sig.Outputs {
		if val, ok := outputs[f.Name]; ok {
			obj[f.Name] = val
		}
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
