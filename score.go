package banditpool

import (
	"fmt"
	"math"
	"strings"
)

//////
// Available score functions.
// Each balances exploitation (the arm's mean) against exploration (a bonus
// for arms that have been tried less often than the rest).
//////

// Names accepted by ScoreFuncByName.
const (
	ScoreUCB1     = "ucb1"
	ScoreUCBTuned = "ucb-tuned"
	ScoreGreedy   = "greedy"
)

// UCB1 implements the upper confidence bound score.
//
// How it works:
//   - m is the mean raw objective, negated when minimizing
//   - b = ExplorationCoefficient * sqrt(ln(max(totalPlays, 1)) / playedCount)
//   - returns m + b
//
// Example:
//
//	s := UCB1(stats, 30, ScoreParams{ExplorationCoefficient: 1, OptimizeMax: true})
func UCB1(stats ArmStats, totalPlays int, params ScoreParams) float64 {
	if stats.PlayedCount == 0 {
		return math.Inf(1)
	}

	return exploitation(stats, params) + params.ExplorationCoefficient*confidence(stats, totalPlays)
}

// UCBTuned weights the confidence bonus by the arm's reward variance.
//
// How it works:
//   - works on normalized rewards, which already encode the direction
//   - V = variance + sqrt(2 ln N / n)
//   - returns meanReward + c * sqrt(ln N / n * min(1/4, V))
//
// When to use:
//   - when arms differ a lot in how noisy they are
func UCBTuned(stats ArmStats, totalPlays int, params ScoreParams) float64 {
	if stats.PlayedCount == 0 {
		return math.Inf(1)
	}

	n := float64(stats.PlayedCount)
	logN := math.Log(float64(max(totalPlays, 1)))

	v := stats.RewardVariance() + math.Sqrt(2*logN/n)

	return stats.MeanReward() + params.ExplorationCoefficient*math.Sqrt(logN/n*math.Min(0.25, v))
}

// Greedy scores an arm by its mean objective only.
func Greedy(stats ArmStats, _ int, params ScoreParams) float64 {
	if stats.PlayedCount == 0 {
		return math.Inf(1)
	}

	return exploitation(stats, params)
}

// ScoreFuncByName resolves a score function from its configuration name.
// An empty name selects UCB1.
func ScoreFuncByName(name string) (ScoreFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ScoreUCB1, "ucb":
		return UCB1, nil
	case ScoreUCBTuned, "ucbtuned", "tuned":
		return UCBTuned, nil
	case ScoreGreedy:
		return Greedy, nil
	default:
		return nil, fmt.Errorf("%w: unknown score function %q", ErrInvalidConfig, name)
	}
}

func exploitation(stats ArmStats, params ScoreParams) float64 {
	if params.OptimizeMax {
		return stats.MeanObjective()
	}

	return -stats.MeanObjective()
}

// confidence is sqrt(ln(max(totalPlays,1)) / playedCount).
func confidence(stats ArmStats, totalPlays int) float64 {
	return math.Sqrt(math.Log(float64(max(totalPlays, 1))) / float64(stats.PlayedCount))
}
