package adapter

import (
	"strings"
	"testing"

	"github.com/loomworks/loom/signature"
)

func TestParseCompletionPlainObject(t *testing.T) {
	values, err := ParseCompletion(qaSig(), `{"answer": "42"}`)
	if err != nil {
		t.Fatalf("ParseCompletion failed: %v", err)
	}
	if values["answer"] != "42" {
		t.Errorf("answer = %v", values["answer"])
	}
}

func TestParseCompletionFencedObject(t *testing.T) {
	content := "Here you go:\n```json\n{\"answer\": \"fenced\"}\n```"
	values, err := ParseCompletion(qaSig(), content)
	if err != nil {
		t.Fatalf("ParseCompletion failed: %v", err)
	}
	if values["answer"] != "fenced" {
		t.Errorf("answer = %v", values["answer"])
	}
}

func TestParseCompletionSurroundingProse(t *testing.T) {
	content := `Sure! The result is {"answer": "buried"} as requested.`
	values, err := ParseCompletion(qaSig(), content)
	if err != nil {
		t.Fatalf("ParseCompletion failed: %v", err)
	}
	if values["answer"] != "buried" {
		t.Errorf("answer = %v", values["answer"])
	}
}

func TestParseCompletionMissingRequiredField(t *testing.T) {
	_, err := ParseCompletion(qaSig(), `{"something_else": "x"}`)
	if err == nil {
		t.Fatal("expected error for missing required field")
	}
	if !strings.Contains(err.Error(), "answer") {
		t.Errorf("error should name the missing field: %v", err)
	}
}

func TestParseCompletionAppliesDefaults(t *testing.T) {
	sig := signature.MustNew("step",
		[]signature.Field{{Name: "question", Type: signature.TypeString, Required: true}},
		[]signature.Field{
			{Name: "answer", Type: signature.TypeString, Required: true},
			{Name: "args", Type: signature.TypeJSON, Default: map[string]any{}},
		})

	values, err := ParseCompletion(sig, `{"answer": "a"}`)
	if err != nil {
		t.Fatalf("ParseCompletion failed: %v", err)
	}
	if _, ok := values["args"].(map[string]any); !ok {
		t.Errorf("default not applied: %T", values["args"])
	}
}

func TestParseCompletionCoercion(t *testing.T) {
	sig := signature.MustNew("mixed",
		[]signature.Field{{Name: "in", Type: signature.TypeString, Required: true}},
		[]signature.Field{
			{Name: "text", Type: signature.TypeString, Required: true},
			{Name: "count", Type: signature.TypeInt, Required: true},
			{Name: "score", Type: signature.TypeFloat, Required: true},
			{Name: "done", Type: signature.TypeBool, Required: true},
		})

	values, err := ParseCompletion(sig, `{
		"text": 7,
		"count": "12",
		"score": "0.5",
		"done": "true"
	}`)
	if err != nil {
		t.Fatalf("ParseCompletion failed: %v", err)
	}
	if values["text"] != "7" {
		t.Errorf("text = %v (%T)", values["text"], values["text"])
	}
	if values["count"] != 12 {
		t.Errorf("count = %v (%T)", values["count"], values["count"])
	}
	if values["score"] != 0.5 {
		t.Errorf("score = %v (%T)", values["score"], values["score"])
	}
	if values["done"] != true {
		t.Errorf("done = %v (%T)", values["done"], values["done"])
	}
}

func TestParseCompletionRejectsFractionalInt(t *testing.T) {
	sig := signature.MustNew("fractional",
		[]signature.Field{{Name: "in", Type: signature.TypeString, Required: true}},
		[]signature.Field{{Name: "count", Type: signature.TypeInt, Required: true}})

	if _, err := ParseCompletion(sig, `{"count": 1.5}`); err == nil {
		t.Fatal("expected error for non-integer value")
	}
}

func TestParseCompletionDoubleEncodedJSON(t *testing.T) {
	sig := signature.MustNew("args",
		[]signature.Field{{Name: "in", Type: signature.TypeString, Required: true}},
		[]signature.Field{{Name: "payload", Type: signature.TypeJSON, Required: true}})

	values, err := ParseCompletion(sig, `{"payload": "{\"query\": \"go\"}"}`)
	if err != nil {
		t.Fatalf("ParseCompletion failed: %v", err)
	}
	payload, ok := values["payload"].(map[string]any)
	if !ok {
		t.Fatalf("payload = %T, want decoded object", values["payload"])
	}
	if payload["query"] != "go" {
		t.Errorf("payload = %v", payload)
	}
}

func TestParseCompletionEnforcesAllowedSet(t *testing.T) {
	sig := signature.MustNew("pick",
		[]signature.Field{{Name: "in", Type: signature.TypeString, Required: true}},
		[]signature.Field{{
			Name:     "choice",
			Type:     signature.TypeString,
			Required: true,
			Allowed:  []string{"yes", "no"},
		}})

	if _, err := ParseCompletion(sig, `{"choice": "maybe"}`); err == nil {
		t.Fatal("expected error for disallowed value")
	}
	values, err := ParseCompletion(sig, `{"choice": "yes"}`)
	if err != nil {
		t.Fatalf("ParseCompletion failed: %v", err)
	}
	if values["choice"] != "yes" {
		t.Errorf("choice = %v", values["choice"])
	}
}
