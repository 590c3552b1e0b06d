package banditpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupSubstrateCompletesEveryTask(t *testing.T) {
	s := NewGroupSubstrate(3, 0)

	var (
		mu      sync.Mutex
		results []float64
		running atomic.Int32
		peak    atomic.Int32
	)

	for i := 0; i < 12; i++ {
		v := float64(i)

		s.Submit(
			func() (Outcome, error) {
				n := running.Add(1)
				defer running.Add(-1)

				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}

				time.Sleep(time.Millisecond)

				return Observed(v), nil
			},
			func(out Outcome, err error) {
				assert.NoError(t, err)

				mu.Lock()
				results = append(results, out.Value)
				mu.Unlock()
			},
		)
	}

	require.NoError(t, s.Wait())
	assert.Len(t, results, 12)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestGroupSubstrateReportsPanics(t *testing.T) {
	s := NewGroupSubstrate(0, 0)

	var got error

	s.Submit(
		func() (Outcome, error) { panic("evaluator blew up") },
		func(_ Outcome, err error) { got = err },
	)

	require.NoError(t, s.Wait())
	require.Error(t, got)
	assert.Contains(t, got.Error(), "evaluator blew up")
}

func TestGroupSubstrateRateLimit(t *testing.T) {
	s := NewGroupSubstrate(0, 100)

	var done atomic.Int32

	start := time.Now()
	for i := 0; i < 150; i++ {
		s.Submit(
			func() (Outcome, error) { return Observed(0), nil },
			func(Outcome, error) { done.Add(1) },
		)
	}

	require.NoError(t, s.Wait())
	assert.Equal(t, int32(150), done.Load())
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond, "burst of 100 then 50 more at 100/s")
}
