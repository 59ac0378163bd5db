package jsonutil

import "testing"

func TestExtractObjectPureJSON(t *testing.T) {
	obj, err := ExtractObject(`{"a": 1, "b": "two"}`)
	if err != nil {
		t.Fatalf("ExtractObject failed: %v", err)
	}
	if obj["b"] != "two" {
		t.Errorf("b = %v", obj["b"])
	}
}

func TestExtractObjectMarkdownFence(t *testing.T) {
	cases := []string{
		"```json\n{\"a\": 1}\n```",
		"```\n{\"a\": 1}\n```",
		"  ```json\n{\"a\": 1}\n```  ",
	}
	for _, content := range cases {
		obj, err := ExtractObject(content)
		if err != nil {
			t.Errorf("ExtractObject(%q) failed: %v", content, err)
			continue
		}
		if obj["a"] != float64(1) {
			t.Errorf("ExtractObject(%q): a = %v", content, obj["a"])
		}
	}
}

func TestExtractObjectEmbeddedInProse(t *testing.T) {
	obj, err := ExtractObject(`The decision is {"tool": "search"} based on the question.`)
	if err != nil {
		t.Fatalf("ExtractObject failed: %v", err)
	}
	if obj["tool"] != "search" {
		t.Errorf("tool = %v", obj["tool"])
	}
}

func TestExtractObjectRepairsDamage(t *testing.T) {
	// Trailing comma and single quotes both need repair.
	cases := []string{
		`{"a": 1,}`,
		`{'a': 1}`,
	}
	for _, content := range cases {
		obj, err := ExtractObject(content)
		if err != nil {
			t.Errorf("ExtractObject(%q) failed: %v", content, err)
			continue
		}
		if obj["a"] != float64(1) {
			t.Errorf("ExtractObject(%q): a = %v", content, obj["a"])
		}
	}
}

func TestExtractObjectNoJSON(t *testing.T) {
	_, err := ExtractObject("there is no object here at all")
	if err == nil {
		t.Fatal("expected error when no JSON is present")
	}
}

func TestExtractErrorPreviewBounded(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	_, err := Extract(string(long))
	if err == nil {
		t.Fatal("expected error")
	}
	if len(err.Error()) > 200 {
		t.Errorf("error preview not bounded: %d bytes", len(err.Error()))
	}
}

func TestDecodeValueAcceptsNonObjects(t *testing.T) {
	v, err := DecodeValue(`[1, 2, 3]`)
	if err != nil {
		t.Fatalf("DecodeValue failed: %v", err)
	}
	arr, ok := v.([]any)
	if !ok || len(arr) != 3 {
		t.Errorf("got %v (%T)", v, v)
	}

	v, err = DecodeValue(`"scalar"`)
	if err != nil {
		t.Fatalf("DecodeValue failed: %v", err)
	}
	if v != "scalar" {
		t.Errorf("got %v", v)
	}
}
