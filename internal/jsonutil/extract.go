// Package jsonutil extracts JSON objects from LLM responses.
//
// Models often wrap JSON in prose or markdown fences, or emit JSON
// with minor syntax damage (trailing commas, single quotes). This
// package strips the wrapping, and falls back to jsonrepair before
// giving up on damaged payloads.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ExtractObject finds and decodes the JSON object in a response string.
func ExtractObject(response string) (map[string]any, error) {
	raw, err := Extract(response)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON object: %w", err)
	}
	return obj, nil
}

// Extract returns the raw JSON portion of a response string. It handles:
//  1. pure JSON responses
//  2. JSON wrapped in markdown code blocks (```json ... ```)
//  3. a JSON object embedded in text (first '{' to last '}')
//  4. lightly damaged JSON, via jsonrepair
func Extract(response string) (json.RawMessage, error) {
	candidate := stripMarkdownCodeBlocks(response)

	if raw, ok := tryDecode(candidate); ok {
		return raw, nil
	}

	// Brace slice: first '{' to last '}'.
	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start != -1 && end > start {
		sliced := candidate[start : end+1]
		if raw, ok := tryDecode(sliced); ok {
			return raw, nil
		}
		// Last resort: repair the sliced region.
		if repaired, err := jsonrepair.JSONRepair(sliced); err == nil {
			if raw, ok := tryDecode(repaired); ok {
				return raw, nil
			}
		}
	}

	if repaired, err := jsonrepair.JSONRepair(candidate); err == nil {
		if raw, ok := tryDecode(repaired); ok {
			return raw, nil
		}
	}

	preview := response
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return nil, fmt.Errorf("failed to extract valid JSON from response: %q", preview)
}

// DecodeValue decodes an arbitrary JSON value, repairing it if needed.
// Unlike Extract it accepts arrays and scalars, not just objects.
func DecodeValue(text string) (any, error) {
	trimmed := strings.TrimSpace(stripMarkdownCodeBlocks(text))
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
		return v, nil
	}
	repaired, err := jsonrepair.JSONRepair(trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode JSON value: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &v); err != nil {
		return nil, fmt.Errorf("failed to decode repaired JSON value: %w", err)
	}
	return v, nil
}

func tryDecode(s string) (json.RawMessage, bool) {
	var test map[string]any
	if err := json.Unmarshal([]byte(s), &test); err != nil {
		return nil, false
	}
	return json.RawMessage(s), true
}

// stripMarkdownCodeBlocks removes code fence markers from a response.
// Handles ```json\n...\n``` and plain ```\n...\n``` patterns.
func stripMarkdownCodeBlocks(response string) string {
	trimmed := strings.TrimSpace(response)

	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```json"))
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	}

	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))
	}

	return trimmed
}
