package predict

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/loomworks/loom/module"
	"github.com/loomworks/loom/signature"
)

// recordingRunner captures the signature and inputs of each call and
// plays back a fixed result.
type recordingRunner struct {
	calls    int
	lastSig  signature.Signature
	lastIn   signature.Values
	lastEx   []signature.Example
	result   signature.Values
	err      error
}

func (r *recordingRunner) Run(ctx context.Context, sig signature.Signature, inputs signature.Values, examples []signature.Example) (signature.Values, error) {
	r.calls++
	r.lastSig = sig
	r.lastIn = inputs
	r.lastEx = examples
	return r.result, r.err
}

func TestPredictForward(t *testing.T) {
	runner := &recordingRunner{result: signature.Values{"answer": "42"}}
	p, err := New(signature.MustParse("question -> answer"), runner)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	pred, err := p.Forward(context.Background(), signature.Values{"question": "what?"})
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if pred.GetString("answer") != "42" {
		t.Errorf("answer = %q", pred.GetString("answer"))
	}
	if runner.lastIn["question"] != "what?" {
		t.Errorf("runner saw inputs %v", runner.lastIn)
	}
}

func TestPredictValidatesBeforeCalling(t *testing.T) {
	runner := &recordingRunner{result: signature.Values{"answer": "never"}}
	p, err := New(signature.MustParse("question -> answer"), runner)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = p.Forward(context.Background(), signature.Values{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if runner.calls != 0 {
		t.Errorf("runner called %d times before validation failure", runner.calls)
	}
}

func TestPredictPropagatesRunnerError(t *testing.T) {
	boom := errors.New("transport down")
	runner := &recordingRunner{err: boom}
	p, _ := New(signature.MustParse("question -> answer"), runner)

	_, err := p.Forward(context.Background(), signature.Values{"question": "q"})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want the runner error unchanged", err)
	}
}

func TestPredictRequiresRunner(t *testing.T) {
	if _, err := New(signature.MustParse("a -> b"), nil); err == nil {
		t.Fatal("expected nil runner to be rejected")
	}
}

func TestPredictExamplesReachRunner(t *testing.T) {
	examples := []signature.Example{{
		Inputs:  signature.Values{"question": "2+2?"},
		Outputs: signature.Values{"answer": "4"},
	}}
	runner := &recordingRunner{result: signature.Values{"answer": "a"}}
	p, _ := New(signature.MustParse("question -> answer"), runner, WithExamples(examples))

	if _, err := p.Forward(context.Background(), signature.Values{"question": "q"}); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if len(runner.lastEx) != 1 || runner.lastEx[0].Outputs["answer"] != "4" {
		t.Errorf("examples did not reach the runner: %v", runner.lastEx)
	}
}

func TestPredictParametersRoundTrip(t *testing.T) {
	runner := &recordingRunner{result: signature.Values{"answer": "a"}}
	p, _ := New(signature.MustParse("question -> answer").WithInstructions("be brief"), runner)

	params := p.Parameters()
	if len(params) != 2 {
		t.Fatalf("got %d parameters, want 2", len(params))
	}
	if params[0].Value != "be brief" {
		t.Errorf("instructions parameter = %v", params[0].Value)
	}

	updated := p.WithParameters([]module.Parameter{
		{Name: "instructions", Kind: module.KindInstructions, Value: "be thorough"},
	}).(*Predict)
	if updated.Signature().Instructions != "be thorough" {
		t.Errorf("instructions not applied: %q", updated.Signature().Instructions)
	}
	if p.Signature().Instructions != "be brief" {
		t.Error("WithParameters mutated the receiver")
	}
}

func TestChainOfThoughtAugmentation(t *testing.T) {
	base := signature.MustParse("question -> answer").WithInstructions("answer plainly")
	augmented := AugmentSignature(base, ReasoningField)

	if len(augmented.Outputs) != 2 {
		t.Fatalf("got %d outputs, want 2", len(augmented.Outputs))
	}
	if augmented.Outputs[0].Name != ReasoningField {
		t.Errorf("first output = %q, want leading reasoning field", augmented.Outputs[0].Name)
	}
	if !augmented.Outputs[0].Required || augmented.Outputs[0].Type != signature.TypeString {
		t.Errorf("reasoning field should be a required string: %+v", augmented.Outputs[0])
	}
	if !strings.HasPrefix(augmented.Instructions, "answer plainly\n\n") {
		t.Errorf("instructions not blank-line joined: %q", augmented.Instructions)
	}
	if len(base.Outputs) != 1 {
		t.Error("augmentation mutated the base signature")
	}
}

func TestChainOfThoughtAugmentationIdempotent(t *testing.T) {
	base := signature.MustParse("question -> answer")
	once := AugmentSignature(base, ReasoningField)
	twice := AugmentSignature(once, ReasoningField)

	onceNames := once.OutputNames()
	twiceNames := twice.OutputNames()
	if len(onceNames) != len(twiceNames) {
		t.Fatalf("field sets differ: %v vs %v", onceNames, twiceNames)
	}
	for i := range onceNames {
		if onceNames[i] != twiceNames[i] {
			t.Errorf("output %d: %q vs %q", i, onceNames[i], twiceNames[i])
		}
	}
}

func TestChainOfThoughtEmptyInstructions(t *testing.T) {
	base := signature.MustParse("question -> answer")
	augmented := AugmentSignature(base, ReasoningField)

	if strings.HasPrefix(augmented.Instructions, "\n") {
		t.Errorf("empty base instructions should be omitted from the join: %q", augmented.Instructions)
	}
	if augmented.Instructions == "" {
		t.Error("directive missing from instructions")
	}
}

func TestChainOfThoughtForwardDelegates(t *testing.T) {
	runner := &recordingRunner{result: signature.Values{
		ReasoningField: "thought it through",
		"answer":       "42",
	}}
	cot, err := NewChainOfThought(signature.MustParse("question -> answer"), runner)
	if err != nil {
		t.Fatalf("NewChainOfThought failed: %v", err)
	}

	pred, err := cot.Forward(context.Background(), signature.Values{"question": "q"})
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if pred.GetString(ReasoningField) != "thought it through" {
		t.Errorf("reasoning = %q", pred.GetString(ReasoningField))
	}
	if !runner.lastSig.HasOutput(ReasoningField) {
		t.Error("runner did not see the augmented signature")
	}
}
