package banditpool

import (
	"fmt"
	"math"
)

//////
// Const, vars, types.
//////

// arm is one candidate record. Fields are guarded by the pool's mutex.
type arm[P any] struct {
	stats   ArmStats
	payload P

	// generation is bumped on every dispatch and on destruction, so that a
	// completion can prove it belongs to the current flight.
	generation uint64

	dead bool
}

// registry stores arms densely by their stable index. Indices are never
// reused, so a destroyed slot stays dead for the registry's lifetime.
type registry[P any] struct {
	arms      []*arm[P]
	destroyed int
}

//////
// Methods.
//////

func (r *registry[P]) reserve(n int) {
	if n <= 0 {
		return
	}

	if cap(r.arms)-len(r.arms) < n {
		grown := make([]*arm[P], len(r.arms), len(r.arms)+n)
		copy(grown, r.arms)
		r.arms = grown
	}
}

// create appends a zero-statistics arm and returns it.
func (r *registry[P]) create(payload P) *arm[P] {
	a := &arm[P]{
		payload: payload,
		stats: ArmStats{
			Index:     len(r.arms),
			RewardMin: math.Inf(1),
			RewardMax: math.Inf(-1),
		},
	}
	r.arms = append(r.arms, a)

	return a
}

// live returns the arm at index, or ErrStaleArm.
func (r *registry[P]) live(index int) (*arm[P], error) {
	if index < 0 || index >= len(r.arms) {
		return nil, fmt.Errorf("%w: index %d out of range [0, %d)", ErrStaleArm, index, len(r.arms))
	}

	a := r.arms[index]
	if a.dead {
		return nil, fmt.Errorf("%w: arm %d was destroyed", ErrStaleArm, index)
	}

	return a, nil
}

// destroy marks a dead, drops its payload and invalidates any outstanding
// ticket. Queue bookkeeping is the caller's job.
func (r *registry[P]) destroy(a *arm[P]) {
	var zero P

	a.dead = true
	a.payload = zero
	a.stats.InFlight = false
	a.generation++
	r.destroyed++
}

func (r *registry[P]) size() int { return len(r.arms) }

func (r *registry[P]) liveCount() int { return len(r.arms) - r.destroyed }

// record folds one clamped objective value and its reward into a's stats.
func (a *arm[P]) record(value, reward float64, optimizeMax bool) {
	s := &a.stats

	if s.PlayedCount == 0 ||
		(optimizeMax && value > s.ObjectiveValueBest) ||
		(!optimizeMax && value < s.ObjectiveValueBest) {
		s.ObjectiveValueBest = value
	}

	s.PlayedCount++
	s.ObjectiveValueSum += value
	s.RewardSum += reward
	s.RewardSquaredSum += reward * reward
	s.RewardMin = math.Min(s.RewardMin, reward)
	s.RewardMax = math.Max(s.RewardMax, reward)
}
