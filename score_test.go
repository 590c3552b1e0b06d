package banditpool

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statsOf(values ...float64) ArmStats {
	s := ArmStats{RewardMin: math.Inf(1), RewardMax: math.Inf(-1)}
	for _, v := range values {
		s.PlayedCount++
		s.ObjectiveValueSum += v
		s.RewardSum += v
		s.RewardSquaredSum += v * v
	}

	return s
}

func TestUCB1(t *testing.T) {
	params := ScoreParams{ExplorationCoefficient: 2, OptimizeMax: true}

	assert.True(t, math.IsInf(UCB1(ArmStats{}, 10, params), 1), "unplayed arms score +Inf")

	s := statsOf(0.4, 0.6)
	want := 0.5 + 2*math.Sqrt(math.Log(10)/2)
	assert.InDelta(t, want, UCB1(s, 10, params), 1e-12)

	params.OptimizeMax = false
	want = -0.5 + 2*math.Sqrt(math.Log(10)/2)
	assert.InDelta(t, want, UCB1(s, 10, params), 1e-12)
}

func TestUCB1ClampsTotalPlays(t *testing.T) {
	params := ScoreParams{ExplorationCoefficient: 1, OptimizeMax: true}
	s := statsOf(0.3)

	assert.InDelta(t, 0.3, UCB1(s, 0, params), 1e-12)
	assert.InDelta(t, 0.3, UCB1(s, 1, params), 1e-12)
	assert.False(t, math.IsNaN(UCB1(s, -5, params)))
}

func TestUCB1FavorsLessPlayedArms(t *testing.T) {
	params := ScoreParams{ExplorationCoefficient: 1, OptimizeMax: true}

	rare := statsOf(0.5)
	common := statsOf(0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5)

	assert.Greater(t, UCB1(rare, 20, params), UCB1(common, 20, params))
}

func TestUCBTuned(t *testing.T) {
	params := ScoreParams{ExplorationCoefficient: 1, OptimizeMax: true}

	assert.True(t, math.IsInf(UCBTuned(ArmStats{}, 10, params), 1))

	var calm, wild []float64
	for i := 0; i < 400; i++ {
		calm = append(calm, 0.5)
		wild = append(wild, float64(i%2))
	}

	steady := statsOf(calm...)
	jumpy := statsOf(wild...)

	assert.InDelta(t, 0.0, steady.RewardVariance(), 1e-12)
	assert.InDelta(t, 0.25, jumpy.RewardVariance(), 1e-12)
	assert.Greater(t, UCBTuned(jumpy, 1000, params), UCBTuned(steady, 1000, params))
	assert.Greater(t, UCBTuned(steady, 1000, params), steady.MeanReward())
}

func TestGreedy(t *testing.T) {
	s := statsOf(0.2, 0.4)

	assert.InDelta(t, 0.3, Greedy(s, 1000, ScoreParams{ExplorationCoefficient: 10, OptimizeMax: true}), 1e-12)
	assert.InDelta(t, -0.3, Greedy(s, 1000, ScoreParams{OptimizeMax: false}), 1e-12)
}

func TestScoreFuncByName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{name: ""},
		{name: "ucb1"},
		{name: "UCB1"},
		{name: "ucb-tuned"},
		{name: "greedy"},
		{name: "thompson", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ScoreFuncByName(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)

				return
			}

			require.NoError(t, err)
			assert.NotNil(t, f)
		})
	}
}
