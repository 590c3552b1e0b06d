package banditpool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	config := DefaultConfig()

	require.NoError(t, config.Validate())
	assert.Equal(t, 1.0, config.ExplorationCoefficient)
	assert.True(t, config.OptimizeMax)
	assert.False(t, config.UseMultiThreading)
	assert.Equal(t, ScoreUCB1, config.ScoreName)
	assert.Nil(t, config.Score, "the score is resolved from ScoreName by NewPool")
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
exploration_coefficient: 2.5
optimize_max: false
use_multi_threading: true
parallelism: 3
max_evaluations_per_second: 50
score: greedy
`), 0o600))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 2.5, config.ExplorationCoefficient)
	assert.False(t, config.OptimizeMax)
	assert.True(t, config.UseMultiThreading)
	assert.Equal(t, 3, config.Parallelism)
	assert.Equal(t, 50.0, config.MaxEvaluationsPerSecond)
	assert.Equal(t, ScoreGreedy, config.ScoreName)
	assert.Nil(t, config.Score)
}

func TestLoadConfigFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pool.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"exploration_coefficient": 0.5, "parallelism": 2}`), 0o600))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 0.5, config.ExplorationCoefficient)
	assert.Equal(t, 2, config.Parallelism)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("BANDITPOOL_EXPLORATION_COEFFICIENT", "4")
	t.Setenv("BANDITPOOL_OPTIMIZE_MAX", "false")
	t.Setenv("BANDITPOOL_PARALLELISM", "6")
	t.Setenv("BANDITPOOL_SCORE", "ucb-tuned")
	t.Setenv("BANDITPOOL_TRACING_ENABLED", "true")

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 4.0, config.ExplorationCoefficient)
	assert.False(t, config.OptimizeMax)
	assert.Equal(t, 6, config.Parallelism)
	assert.Equal(t, ScoreUCBTuned, config.ScoreName)
	assert.True(t, config.TracingEnabled)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "negative exploration", body: "exploration_coefficient: -1\n"},
		{name: "zero parallelism", body: "parallelism: 0\n"},
		{name: "unknown score", body: "score: thompson\n"},
		{name: "negative rate", body: "max_evaluations_per_second: -3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pool.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))

			_, err := LoadConfig(path)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
