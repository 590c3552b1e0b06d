package banditpool

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

//////
// Helper functions.
//////

// clamp bounds v to [lo, hi].
func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

// objectiveRange is the evaluator's declared range, resolved once at pool
// construction.
type objectiveRange struct {
	worst, best float64
	lo, hi      float64
}

// newObjectiveRange validates worst/best against the optimization direction.
func newObjectiveRange(worst, best float64, optimizeMax bool) (objectiveRange, error) {
	if math.IsNaN(worst) || math.IsNaN(best) || math.IsInf(worst, 0) || math.IsInf(best, 0) {
		return objectiveRange{}, fmt.Errorf("%w: bounds must be finite, got worst=%v best=%v", ErrInvalidRange, worst, best)
	}

	if worst == best {
		return objectiveRange{}, fmt.Errorf("%w: worst and best are both %v", ErrInvalidRange, worst)
	}

	if optimizeMax != (best > worst) {
		return objectiveRange{}, fmt.Errorf(
			"%w: worst=%v best=%v does not match optimizeMax=%v", ErrInvalidRange, worst, best, optimizeMax,
		)
	}

	return objectiveRange{
		worst: worst,
		best:  best,
		lo:    math.Min(worst, best),
		hi:    math.Max(worst, best),
	}, nil
}

// bound clamps v into the range. clamped reports whether v was outside.
func (r objectiveRange) bound(v float64) (bounded float64, clamped bool) {
	bounded = clamp(v, r.lo, r.hi)

	return bounded, bounded != v
}

// reward normalizes v to [0, 1], 1 being the best reachable value.
func (r objectiveRange) reward(v float64) float64 {
	return (v - r.worst) / (r.best - r.worst)
}
