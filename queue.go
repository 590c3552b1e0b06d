package banditpool

import (
	"container/heap"
	"math"
)

// scoreEntry is one eligible arm in the candidate queue.
type scoreEntry struct {
	arm   int
	score float64
}

// candidateQueue is a max-heap of scoreEntry. positions maps an arm index to
// its slot in entries (-1 when absent) so entries can be removed or re-keyed
// in O(log n).
//
// Not safe for concurrent use; the pool's mutex guards it.
type candidateQueue struct {
	entries   []scoreEntry
	positions []int
}

// Len implements heap.Interface.
func (q *candidateQueue) Len() int { return len(q.entries) }

// Less implements heap.Interface. Higher score wins, NaN loses to everything,
// equal scores go to the lower index.
func (q *candidateQueue) Less(i, j int) bool {
	a, b := q.entries[i], q.entries[j]

	aNaN, bNaN := math.IsNaN(a.score), math.IsNaN(b.score)
	switch {
	case aNaN && bNaN:
		return a.arm < b.arm
	case aNaN:
		return false
	case bNaN:
		return true
	}

	if a.score != b.score {
		return a.score > b.score
	}

	return a.arm < b.arm
}

// Swap implements heap.Interface.
func (q *candidateQueue) Swap(i, j int) {
	q.entries[i], q.entries[j] = q.entries[j], q.entries[i]
	q.positions[q.entries[i].arm] = i
	q.positions[q.entries[j].arm] = j
}

// Push implements heap.Interface. Use push instead.
func (q *candidateQueue) Push(x any) {
	e := x.(scoreEntry) //nolint:errcheck // heap.Interface contract guarantees type
	q.track(e.arm)
	q.positions[e.arm] = len(q.entries)
	q.entries = append(q.entries, e)
}

// Pop implements heap.Interface. Use pop instead.
func (q *candidateQueue) Pop() any {
	n := len(q.entries)
	e := q.entries[n-1]
	q.entries = q.entries[:n-1]
	q.positions[e.arm] = -1

	return e
}

// track grows positions so that arm is addressable.
func (q *candidateQueue) track(arm int) {
	for len(q.positions) <= arm {
		q.positions = append(q.positions, -1)
	}
}

func (q *candidateQueue) contains(arm int) bool {
	return arm >= 0 && arm < len(q.positions) && q.positions[arm] >= 0
}

func (q *candidateQueue) push(arm int, score float64) {
	heap.Push(q, scoreEntry{arm: arm, score: score})
}

// pop removes and returns the best entry. ok is false when empty.
func (q *candidateQueue) pop() (scoreEntry, bool) {
	if len(q.entries) == 0 {
		return scoreEntry{}, false
	}

	return heap.Pop(q).(scoreEntry), true //nolint:errcheck
}

// remove drops arm from the queue if present.
func (q *candidateQueue) remove(arm int) bool {
	if !q.contains(arm) {
		return false
	}

	heap.Remove(q, q.positions[arm])

	return true
}

// update re-keys arm in place. Returns false if arm is absent.
func (q *candidateQueue) update(arm int, score float64) bool {
	if !q.contains(arm) {
		return false
	}

	i := q.positions[arm]
	q.entries[i].score = score
	heap.Fix(q, i)

	return true
}

func (q *candidateQueue) reserve(n int) {
	if cap(q.entries)-len(q.entries) < n {
		grown := make([]scoreEntry, len(q.entries), len(q.entries)+n)
		copy(grown, q.entries)
		q.entries = grown
	}
}
