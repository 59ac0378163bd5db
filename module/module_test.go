package module

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/loomworks/loom/signature"
)

// fn is a test module backed by a plain function.
type fn func(ctx context.Context, inputs signature.Values) (Prediction, error)

func (f fn) Forward(ctx context.Context, inputs signature.Values) (Prediction, error) {
	return f(ctx, inputs)
}

func constant(fields signature.Values) fn {
	return func(ctx context.Context, inputs signature.Values) (Prediction, error) {
		return NewPrediction(fields), nil
	}
}

func failing(err error) fn {
	return func(ctx context.Context, inputs signature.Values) (Prediction, error) {
		return Prediction{}, err
	}
}

func TestPredictionImmutable(t *testing.T) {
	fields := signature.Values{"answer": "42"}
	pred := NewPrediction(fields)
	fields["answer"] = "mutated"

	if pred.GetString("answer") != "42" {
		t.Error("prediction observed mutation of the source map")
	}

	out := pred.Values()
	out["answer"] = "mutated again"
	if pred.GetString("answer") != "42" {
		t.Error("prediction observed mutation of a Values copy")
	}
}

func TestPredictionWith(t *testing.T) {
	pred := NewPrediction(signature.Values{"a": 1})
	extended := pred.With("b", 2)

	if _, ok := pred.Get("b"); ok {
		t.Error("With mutated the receiver")
	}
	if v, _ := extended.Get("b"); v != 2 {
		t.Errorf("With did not add the field: %v", v)
	}
}

func TestComposeChainsValues(t *testing.T) {
	first := fn(func(ctx context.Context, inputs signature.Values) (Prediction, error) {
		return NewPrediction(signature.Values{"summary": inputs["document"].(string) + "!"}), nil
	})
	second := fn(func(ctx context.Context, inputs signature.Values) (Prediction, error) {
		return NewPrediction(signature.Values{"translation": "de:" + inputs["summary"].(string)}), nil
	})

	pred, err := Compose(first, second).Forward(context.Background(), signature.Values{"document": "doc"})
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if pred.GetString("translation") != "de:doc!" {
		t.Errorf("translation = %q", pred.GetString("translation"))
	}
}

func TestComposeShortCircuits(t *testing.T) {
	boom := errors.New("stage two broke")
	calls := 0
	third := fn(func(ctx context.Context, inputs signature.Values) (Prediction, error) {
		calls++
		return NewPrediction(nil), nil
	})

	_, err := Compose(constant(signature.Values{"x": 1}), failing(boom), third).
		Forward(context.Background(), signature.Values{})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want the failing stage's error unchanged", err)
	}
	if calls != 0 {
		t.Error("stage after the failure was still invoked")
	}
}

func TestComposeEmpty(t *testing.T) {
	_, err := Compose().Forward(context.Background(), signature.Values{})
	if err == nil {
		t.Fatal("expected error for empty composition")
	}
}

func TestParallelMergesLaterIndexWins(t *testing.T) {
	pred, err := Parallel(
		constant(signature.Values{"a": 1, "shared": "first"}),
		constant(signature.Values{"b": 2, "shared": "second"}),
	).Forward(context.Background(), signature.Values{})
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if v, _ := pred.Get("a"); v != 1 {
		t.Errorf("a = %v", v)
	}
	if v, _ := pred.Get("b"); v != 2 {
		t.Errorf("b = %v", v)
	}
	if pred.GetString("shared") != "second" {
		t.Errorf("shared = %q, want the later branch to win", pred.GetString("shared"))
	}
}

func TestParallelLowestIndexFailureWins(t *testing.T) {
	slow := errors.New("slow branch failed")
	fast := errors.New("fast branch failed")

	slowBranch := fn(func(ctx context.Context, inputs signature.Values) (Prediction, error) {
		time.Sleep(20 * time.Millisecond)
		return Prediction{}, slow
	})

	_, err := Parallel(slowBranch, failing(fast)).
		Forward(context.Background(), signature.Values{})
	if !errors.Is(err, slow) {
		t.Fatalf("got %v, want the lowest-index failure regardless of completion order", err)
	}
}

func TestParallelBranchesGetOwnInputs(t *testing.T) {
	mutator := fn(func(ctx context.Context, inputs signature.Values) (Prediction, error) {
		inputs["x"] = "mutated"
		return NewPrediction(nil), nil
	})
	observer := fn(func(ctx context.Context, inputs signature.Values) (Prediction, error) {
		time.Sleep(10 * time.Millisecond)
		return NewPrediction(signature.Values{"seen": inputs["x"]}), nil
	})

	pred, err := Parallel(mutator, observer).Forward(context.Background(), signature.Values{"x": "original"})
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if pred.GetString("seen") != "original" {
		t.Error("one branch observed another branch's mutation")
	}
}

func TestParametersOfLenient(t *testing.T) {
	plain := constant(nil)
	if got := ParametersOf(plain); got != nil {
		t.Errorf("ParametersOf on a plain module = %v, want nil", got)
	}
	if got := UpdateParameters(plain, []Parameter{{Name: "x"}}); got == nil {
		t.Error("UpdateParameters should return the module unchanged")
	}
}

func TestExportParametersStrict(t *testing.T) {
	_, err := ExportParameters(constant(nil))
	if !errors.Is(err, ErrParametersUnsupported) {
		t.Fatalf("got %v, want ErrParametersUnsupported", err)
	}
	_, err = ApplyParameters(constant(nil), nil)
	if !errors.Is(err, ErrParametersUnsupported) {
		t.Fatalf("got %v, want ErrParametersUnsupported", err)
	}
}
