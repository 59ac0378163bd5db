// Package inspect renders arbitrary values as bounded-size text.
//
// Tool results feed back into prompts, so a runaway tool returning a
// huge slice or map must not cause unbounded trajectory growth.
// Render caps collections at a fixed element count and the final text
// at a fixed byte count.
package inspect

import (
	"encoding/json"
	"fmt"
	"reflect"
)

const (
	// maxElements bounds slices and maps per nesting level.
	maxElements = 100
	// maxBytes bounds the rendered text.
	maxBytes = 8192
	// maxDepth bounds recursion into nested collections.
	maxDepth = 8
)

// Render converts a value into text suitable for a trajectory
// observation. Strings pass through unchanged (subject to the byte
// cap); other values are bounded and rendered as JSON.
func Render(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return truncate(x)
	case []byte:
		return truncate(string(x))
	case error:
		return truncate(x.Error())
	case fmt.Stringer:
		return truncate(x.String())
	}

	bounded := bound(reflect.ValueOf(v), maxDepth)
	data, err := json.Marshal(bounded)
	if err != nil {
		return truncate(fmt.Sprintf("%v", v))
	}
	return truncate(string(data))
}

// bound returns a copy of v with slices, arrays, and maps capped at
// maxElements per level. Values beyond maxDepth are flattened to their
// fmt representation.
func bound(v reflect.Value, depth int) any {
	if !v.IsValid() {
		return nil
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if depth <= 0 {
		return fmt.Sprintf("%v", v.Interface())
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		n := v.Len()
		capped := n
		if capped > maxElements {
			capped = maxElements
		}
		out := make([]any, 0, capped)
		for i := 0; i < capped; i++ {
			out = append(out, bound(v.Index(i), depth-1))
		}
		if n > capped {
			out = append(out, fmt.Sprintf("... (%d more elements)", n-capped))
		}
		return out
	case reflect.Map:
		out := make(map[string]any, v.Len())
		count := 0
		iter := v.MapRange()
		for iter.Next() {
			if count >= maxElements {
				out["..."] = fmt.Sprintf("(%d more entries)", v.Len()-count)
				break
			}
			out[fmt.Sprintf("%v", iter.Key().Interface())] = bound(iter.Value(), depth-1)
			count++
		}
		return out
	default:
		return v.Interface()
	}
}

func truncate(s string) string {
	if len(s) <= maxBytes {
		return s
	}
	return s[:maxBytes] + "... (truncated)"
}
