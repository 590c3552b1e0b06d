package banditpool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridValues(t *testing.T) {
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, GridValues(ParameterRange[float64]{Min: 0, Max: 1}, 4))
	assert.Equal(t, []int{1, 2, 3}, GridValues(ParameterRange[int]{Min: 1, Max: 3}, 10))
	assert.Equal(t, []int{0, 5, 10}, GridValues(ParameterRange[int]{Min: 0, Max: 10}, 2))
	assert.Equal(t, []float32{7}, GridValues(ParameterRange[float32]{Min: 7, Max: 7}, 5))
	assert.Equal(t, []int{2}, GridValues(ParameterRange[int]{Min: 2, Max: 9}, 0))
}

func TestTuneParameterFindsPeak(t *testing.T) {
	evaluator := EvaluatorFunc[float64]{
		Worst: 0,
		Best:  1,
		Func: func(_ context.Context, x float64, _ int) (Outcome, error) {
			return Observed(1 - (x-0.6)*(x-0.6)), nil
		},
	}

	best, err := TuneParameter[float64](context.Background(), quietConfig(), evaluator,
		ParameterRange[float64]{Min: 0, Max: 1}, 5, 60)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, best, 1e-9)
}

func TestTuneParameterAsync(t *testing.T) {
	evaluator := EvaluatorFunc[int]{
		Worst: 100,
		Best:  0,
		Func: func(_ context.Context, workers int, _ int) (Outcome, error) {
			return Observed(float64((workers - 8) * (workers - 8))), nil
		},
	}

	config := asyncConfig(4)
	config.OptimizeMax = false

	best, err := TuneParameter[int](context.Background(), config, evaluator, ParameterRange[int]{Min: 0, Max: 16}, 8, 80)
	require.NoError(t, err)
	assert.Equal(t, 8, best)
}

func TestTuneParameterRejectsInvertedRange(t *testing.T) {
	_, err := TuneParameter[int](context.Background(), quietConfig(), valueOf(0, 1, nil), ParameterRange[int]{Min: 5, Max: 1}, 4, 10)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBenchmarkEvaluatorPrefersFasterParameters(t *testing.T) {
	evaluator := BenchmarkEvaluator[int]{
		Func: func(params ...int) error {
			if params[0] < 0 {
				return errors.New("invalid buffer size")
			}

			time.Sleep(time.Duration(params[0]) * time.Millisecond)

			return nil
		},
		Timeout: time.Second,
	}

	config := quietConfig()
	config.OptimizeMax = false
	config.ExplorationCoefficient = 0.1

	pool, err := NewPool[[]int](config, evaluator)
	require.NoError(t, err)

	slow := pool.CreateArm([]int{30})
	fast := pool.CreateArm([]int{1})
	broken := pool.CreateArm([]int{-1})

	require.NoError(t, pool.Play(context.Background(), 6))

	winner, err := pool.SampleArmWithHighestReward()
	require.NoError(t, err)
	assert.Equal(t, fast, winner)

	mean, err := pool.ArmMeanObjective(broken)
	require.NoError(t, err)
	assert.Equal(t, float64(time.Second.Nanoseconds()), mean, "failures are penalized with the worst value")

	slowMean, err := pool.ArmMeanObjective(slow)
	require.NoError(t, err)
	assert.Greater(t, slowMean, float64((30 * time.Millisecond).Nanoseconds())-1)
}
