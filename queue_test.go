package banditpool

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(q *candidateQueue) []int {
	var order []int
	for {
		e, ok := q.pop()
		if !ok {
			return order
		}

		order = append(order, e.arm)
	}
}

func TestCandidateQueueOrder(t *testing.T) {
	q := &candidateQueue{}

	q.push(3, 0.5)
	q.push(0, 0.1)
	q.push(5, math.NaN())
	q.push(1, 0.9)
	q.push(4, math.Inf(1))
	q.push(2, 0.5)

	assert.Equal(t, []int{4, 1, 2, 3, 0, 5}, drain(q), "score desc, ties by index, NaN last")
	assert.Zero(t, q.Len())
}

func TestCandidateQueueRemoveAndUpdate(t *testing.T) {
	q := &candidateQueue{}
	for arm, score := range []float64{0.1, 0.2, 0.3, 0.4} {
		q.push(arm, score)
	}

	assert.True(t, q.remove(3))
	assert.False(t, q.remove(3))
	assert.False(t, q.contains(3))
	assert.False(t, q.remove(42))

	assert.True(t, q.update(0, 1.0))
	assert.False(t, q.update(3, 1.0))

	assert.Equal(t, []int{0, 2, 1}, drain(q))
}

func TestCandidateQueuePositionsStayConsistent(t *testing.T) {
	q := &candidateQueue{}
	q.reserve(64)

	for arm := 0; arm < 64; arm++ {
		q.push(arm, float64((arm*37)%64))
	}

	for arm := 0; arm < 64; arm += 3 {
		require.True(t, q.remove(arm))
	}

	for i, e := range q.entries {
		assert.Equal(t, i, q.positions[e.arm])
	}

	prev := math.Inf(1)
	for _, arm := range drain(q) {
		score := float64((arm*37)%64)
		assert.LessOrEqual(t, score, prev)
		prev = score
	}
}
