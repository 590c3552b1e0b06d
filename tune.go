package banditpool

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/constraints"
)

//////
// Exported functionalities.
//////

// GridValues lays out precision+1 evenly spaced values over r, Min and Max
// included. Integer grids are rounded and deduplicated.
//
// Example:
//
//	GridValues(ParameterRange[float64]{Min: 0, Max: 1}, 4) // 0, 0.25, 0.5, 0.75, 1
//	GridValues(ParameterRange[int]{Min: 1, Max: 3}, 10)    // 1, 2, 3
func GridValues[T constraints.Integer | constraints.Float](r ParameterRange[T], precision int) []T {
	if precision < 1 || r.Min == r.Max {
		return []T{r.Min}
	}

	lo, hi := float64(r.Min), float64(r.Max)

	half := 0.5
	isFloat := T(half) != 0

	values := make([]T, 0, precision+1)
	for i := 0; i <= precision; i++ {
		f := lo + (hi-lo)*float64(i)/float64(precision)
		if !isFloat {
			f = math.Round(f)
		}

		v := T(f)
		if len(values) > 0 && values[len(values)-1] == v {
			continue
		}

		values = append(values, v)
	}

	return values
}

// TuneParameter picks the best value of a single parameter: one arm per grid
// point of r, budget trials spent by the pool, the winner chosen by mean
// reward.
//
// Type Parameter:
//   - T: The numeric type of the parameter
//
// Parameters:
//   - ctx: Passed to every evaluation
//   - config: Pool configuration
//   - evaluator: Scores one parameter value per call
//   - r: The search range
//   - precision: Number of grid intervals (precision+1 arms at most)
//   - budget: Number of trials
//
// Returns:
//   - T: The winning value
//   - error: Pool construction or play errors
//
// Usage example:
//
//	best, err := TuneParameter(ctx, DefaultConfig(), evaluator,
//	    ParameterRange[float64]{Min: 0, Max: 5}, 10, 200)
func TuneParameter[T constraints.Integer | constraints.Float](
	ctx context.Context,
	config Config,
	evaluator Evaluator[T],
	r ParameterRange[T],
	precision int,
	budget int,
) (T, error) {
	var zero T

	if r.Min > r.Max {
		return zero, fmt.Errorf("%w: range min %v above max %v", ErrInvalidConfig, r.Min, r.Max)
	}

	pool, err := NewPool(config, evaluator)
	if err != nil {
		return zero, err
	}

	values := GridValues(r, precision)

	pool.ReserveArms(len(values))
	for _, v := range values {
		pool.CreateArm(v)
	}

	if err := pool.Play(ctx, budget); err != nil {
		return zero, fmt.Errorf("tune parameter: %w", err)
	}

	best, err := pool.SampleArmWithHighestReward()
	if err != nil {
		return zero, err
	}

	return pool.ArmObject(best)
}

// BenchmarkFunc is a workload whose wall-clock time is minimized. Returning an
// error marks the trial as failed.
type BenchmarkFunc[T constraints.Integer | constraints.Float] func(params ...T) error

// BenchmarkEvaluator scores an arm's parameters by the execution time of Func,
// in nanoseconds. Lower is better, so pools using it must minimize.
//
// Failed runs are penalized with the worst value (Timeout), which keeps
// failing configurations from winning without retiring them.
type BenchmarkEvaluator[T constraints.Integer | constraints.Float] struct {
	// Func is the workload to time.
	Func BenchmarkFunc[T]

	// Timeout is the worst expected duration. Slower runs are clamped to it.
	Timeout time.Duration
}

// ObjectiveRange implements Evaluator.
func (b BenchmarkEvaluator[T]) ObjectiveRange() (worst, best float64) {
	return float64(b.Timeout.Nanoseconds()), 0
}

// Evaluate implements Evaluator.
func (b BenchmarkEvaluator[T]) Evaluate(ctx context.Context, params []T, _ int) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	start := time.Now()
	err := b.Func(params...)
	elapsed := time.Since(start)

	if err != nil {
		return Observed(float64(b.Timeout.Nanoseconds())), nil
	}

	return Observed(float64(elapsed.Nanoseconds())), nil
}
