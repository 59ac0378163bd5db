// Module combinators: sequential composition and concurrent fan-out.

package module

import (
	"context"
	"errors"
	"sync"

	"github.com/loomworks/loom/signature"
)

// Compose builds a sequential pipeline. The output fields of stage i
// become the input of stage i+1; the first failing stage short-circuits
// and its error is returned unchanged.
func Compose(stages ...Module) Module {
	return composed{stages: stages}
}

type composed struct {
	stages []Module
}

func (c composed) Forward(ctx context.Context, inputs signature.Values) (Prediction, error) {
	if len(c.stages) == 0 {
		return Prediction{}, errors.New("compose: no modules")
	}

	values := inputs
	var pred Prediction
	for _, stage := range c.stages {
		var err error
		pred, err = stage.Forward(ctx, values)
		if err != nil {
			return Prediction{}, err
		}
		values = pred.Values()
	}
	return pred, nil
}

// Parallel runs all modules concurrently on identical input and joins
// every branch before returning. If any branch fails, the failure of
// the lowest module index is returned; completion order never matters.
// Otherwise the predictions are merged field-wise, a later module index
// overwriting an earlier one on key collision.
func Parallel(branches ...Module) Module {
	return parallel{branches: branches}
}

type parallel struct {
	branches []Module
}

func (p parallel) Forward(ctx context.Context, inputs signature.Values) (Prediction, error) {
	if len(p.branches) == 0 {
		return Prediction{}, errors.New("parallel: no modules")
	}

	preds := make([]Prediction, len(p.branches))
	errs := make([]error, len(p.branches))

	var wg sync.WaitGroup
	for i, branch := range p.branches {
		wg.Add(1)
		go func(i int, m Module) {
			defer wg.Done()
			// Each branch gets its own copy so no branch can observe
			// another's mutations.
			preds[i], errs[i] = m.Forward(ctx, inputs.Clone())
		}(i, branch)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return Prediction{}, err
		}
	}

	merged := make(signature.Values)
	for _, pred := range preds {
		for k, v := range pred.Values() {
			merged[k] = v
		}
	}
	return NewPrediction(merged), nil
}
