package main

import (
	"context"
	"math/rand/v2"

	"github.com/thalesfsp/banditpool"
)

// syntheticArm is a candidate whose trials are drawn around mean.
type syntheticArm struct {
	mean float64
}

// syntheticEvaluator draws Gaussian trials in [0, 1]. When minimizing, the
// arm with the lowest mean is the best one.
type syntheticEvaluator struct {
	noise       float64
	exhaustProb float64
	optimizeMax bool
}

func (e syntheticEvaluator) ObjectiveRange() (worst, best float64) {
	if e.optimizeMax {
		return 0, 1
	}

	return 1, 0
}

func (e syntheticEvaluator) Evaluate(ctx context.Context, a syntheticArm, _ int) (banditpool.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return banditpool.Outcome{}, err
	}

	if e.exhaustProb > 0 && rand.Float64() < e.exhaustProb {
		return banditpool.Exhausted(), nil
	}

	v := a.mean + rand.NormFloat64()*e.noise

	return banditpool.Observed(min(max(v, 0), 1)), nil
}
