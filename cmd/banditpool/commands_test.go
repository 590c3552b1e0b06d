package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalesfsp/banditpool"
)

func TestSyntheticEvaluator(t *testing.T) {
	e := syntheticEvaluator{optimizeMax: true}

	worst, best := e.ObjectiveRange()
	assert.Equal(t, 0.0, worst)
	assert.Equal(t, 1.0, best)

	out, err := e.Evaluate(context.Background(), syntheticArm{mean: 0.3}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.3, out.Value)

	e.exhaustProb = 1
	out, err = e.Evaluate(context.Background(), syntheticArm{mean: 0.3}, 0)
	require.NoError(t, err)
	assert.True(t, out.Exhausted)

	worst, best = syntheticEvaluator{}.ObjectiveRange()
	assert.Equal(t, 1.0, worst)
	assert.Equal(t, 0.0, best)
}

func TestRunCommand(t *testing.T) {
	var buf bytes.Buffer

	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"run", "--arms", "4", "--budget", "40", "--noise", "0"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, buf.String(), "40 trials")
	assert.Contains(t, buf.String(), "winner: arm 3")
}

func TestSettleWaitsForInFlightEvaluations(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	release := make(chan struct{})

	config := banditpool.DefaultConfig()
	config.Logger = logger
	config.UseMultiThreading = true
	config.Parallelism = 2
	config.ProgressChan = make(chan banditpool.ProgressUpdate, 16)

	pool, err := banditpool.NewPool[int](config, banditpool.EvaluatorFunc[int]{
		Worst: 0,
		Best:  1,
		Func: func(context.Context, int, int) (banditpool.Outcome, error) {
			<-release

			return banditpool.Observed(1), nil
		},
	})
	require.NoError(t, err)

	pool.CreateArm(0)
	pool.CreateArm(1)

	for i := 0; i < 2; i++ {
		_, err := pool.DispatchArm(context.Background())
		require.NoError(t, err)
	}

	assert.False(t, settle(pool, 10*time.Millisecond, logger), "blocked evaluations are still in flight")

	close(release)

	assert.True(t, settle(pool, time.Second, logger))
	assert.Zero(t, pool.InFlight())
	assert.True(t, settle(pool, 0, logger), "nothing in flight settles immediately")
}
