package banditpool

import (
	"context"

	"golang.org/x/exp/constraints"
)

// Outcome is the result of one evaluation: either an observed objective value
// or a request to retire the arm for good.
//
// Usage:
//
//	return banditpool.Observed(0.42), nil // normal trial
//	return banditpool.Exhausted(), nil    // never play this arm again
type Outcome struct {
	// Value is the raw objective value. Ignored when Exhausted is true.
	Value float64

	// Exhausted asks the pool to destroy the arm. The trial is not counted.
	Exhausted bool
}

// Observed returns an Outcome carrying objective value v.
func Observed(v float64) Outcome { return Outcome{Value: v} }

// Exhausted returns the Outcome that destroys the evaluated arm.
func Exhausted() Outcome { return Outcome{Exhausted: true} }

// Evaluator is the stochastic objective every arm is played against.
//
// Type Parameter:
//   - P: The payload type carried by the arms (optimizer, worker config, ...)
//
// Contract:
//   - ObjectiveRange returns the worst and best reachable values. When the
//     pool maximizes, best must be greater than worst, and the other way
//     around when it minimizes.
//   - Evaluate may be called concurrently for different arms, never
//     concurrently for the same arm.
//   - Evaluate must report failures through its error return. The arm is then
//     put back in the candidate queue with unchanged statistics.
//
// Usage example:
//
//	type coin struct{}
//
//	func (coin) ObjectiveRange() (float64, float64) { return 0, 1 }
//
//	func (coin) Evaluate(ctx context.Context, p float64, _ int) (banditpool.Outcome, error) {
//	    if rand.Float64() < p {
//	        return banditpool.Observed(1), nil
//	    }
//	    return banditpool.Observed(0), nil
//	}
type Evaluator[P any] interface {
	ObjectiveRange() (worst, best float64)
	Evaluate(ctx context.Context, payload P, instance int) (Outcome, error)
}

// InstanceCounter is optionally implemented by an Evaluator that averages
// over a fixed set of problem instances. The instance index handed to
// Evaluate then cycles through [0, NumInstances()).
type InstanceCounter interface {
	NumInstances() int
}

// EvaluatorFunc adapts a plain function to the Evaluator interface.
type EvaluatorFunc[P any] struct {
	Worst, Best float64
	Func        func(ctx context.Context, payload P, instance int) (Outcome, error)
}

// ObjectiveRange implements Evaluator.
func (e EvaluatorFunc[P]) ObjectiveRange() (float64, float64) { return e.Worst, e.Best }

// Evaluate implements Evaluator.
func (e EvaluatorFunc[P]) Evaluate(ctx context.Context, payload P, instance int) (Outcome, error) {
	return e.Func(ctx, payload, instance)
}

// Ticket identifies one dispatched evaluation. Completions carrying a ticket
// whose generation no longer matches the arm are rejected as stale.
type Ticket struct {
	Arm        int
	Generation uint64
}

// ArmStats is a snapshot of an arm's running statistics.
type ArmStats struct {
	// Index is the stable arm handle.
	Index int

	// PlayedCount is the number of observed (non-exhausted) trials.
	PlayedCount int

	// ObjectiveValueSum is the sum of the clamped raw objective values.
	ObjectiveValueSum float64

	// ObjectiveValueBest is the best raw value seen, per the pool's
	// direction. Meaningless while PlayedCount is zero.
	ObjectiveValueBest float64

	// RewardSum and RewardSquaredSum accumulate normalized rewards in [0, 1].
	RewardSum        float64
	RewardSquaredSum float64

	// RewardMin and RewardMax bound the normalized rewards seen so far.
	RewardMin float64
	RewardMax float64

	// InFlight reports whether an evaluation is currently dispatched.
	InFlight bool
}

// MeanObjective returns the mean raw objective value, 0 when never played.
func (s ArmStats) MeanObjective() float64 {
	if s.PlayedCount == 0 {
		return 0
	}

	return s.ObjectiveValueSum / float64(s.PlayedCount)
}

// MeanReward returns the mean normalized reward, 0 when never played.
func (s ArmStats) MeanReward() float64 {
	if s.PlayedCount == 0 {
		return 0
	}

	return s.RewardSum / float64(s.PlayedCount)
}

// RewardVariance returns the (biased) variance of the normalized rewards.
func (s ArmStats) RewardVariance() float64 {
	if s.PlayedCount == 0 {
		return 0
	}

	mean := s.MeanReward()
	v := s.RewardSquaredSum/float64(s.PlayedCount) - mean*mean

	if v < 0 {
		return 0
	}

	return v
}

// ArmRank is one entry of ArmsOrder.
type ArmRank struct {
	Index         int
	MeanObjective float64
	PlayedCount   int
}

// ProgressUpdate is sent on Config.ProgressChan after every observation.
type ProgressUpdate struct {
	// PoolID identifies the pool that emitted the update.
	PoolID string

	// Arm is the arm that has just been observed or destroyed.
	Arm int

	// Destroyed is true when the observation retired the arm.
	Destroyed bool

	// Value is the (clamped) objective value observed.
	Value float64

	// TotalPlays is the pool-wide number of counted trials.
	TotalPlays int

	// LiveArms is the number of arms not yet destroyed.
	LiveArms int

	// BestArm is the arm with the highest mean reward, -1 if none.
	BestArm int

	// BestMeanReward is BestArm's mean reward.
	BestMeanReward float64
}

// ParameterRange defines the inclusive range of a tunable parameter, used to
// lay out one arm per grid point (see TuneParameter).
//
// Type Parameter:
//   - T: The numeric type of the parameter
//
// Usage:
//
//	// Exploration constants from 0 to 5.
//	r := ParameterRange[float64]{Min: 0, Max: 5}
//
//	// Worker counts from 1 to 32.
//	w := ParameterRange[int]{Min: 1, Max: 32}
type ParameterRange[T constraints.Integer | constraints.Float] struct {
	// Min is the smallest value (inclusive).
	Min T

	// Max is the largest value (inclusive).
	Max T
}

// ScoreParams holds the pool-level knobs a ScoreFunc may use.
type ScoreParams struct {
	// ExplorationCoefficient weights the confidence bonus. Zero means
	// pure exploitation.
	ExplorationCoefficient float64

	// OptimizeMax tells whether higher raw objective values are better.
	OptimizeMax bool
}

// ScoreFunc maps an arm's statistics and the pool-wide play count to a
// priority. Higher is selected first.
//
// The pool never calls a ScoreFunc for an arm with PlayedCount == 0: such arms
// always score +Inf so each one is tried once before any is revisited.
//
// Built-in score functions:
//   - UCB1: mean objective plus confidence bonus (default)
//   - UCBTuned: variance-weighted bonus on normalized rewards
//   - Greedy: mean objective only
//
// Implementations must be pure and safe for concurrent use.
type ScoreFunc func(stats ArmStats, totalPlays int, params ScoreParams) float64
