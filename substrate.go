package banditpool

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Substrate runs evaluations asynchronously on behalf of a Pool.
//
// Contract:
//   - onComplete fires exactly once per Submit, from any goroutine, after
//     task returns.
//   - A panicking task must be reported to onComplete as an error, never
//     dropped.
//
// Completions are tracked by the pool, see Pool.Wait.
type Substrate interface {
	Submit(task func() (Outcome, error), onComplete func(Outcome, error))
}

// GroupSubstrate is the default Substrate. It runs each task on its own
// goroutine through an errgroup, optionally bounded and throttled.
//
// Submit blocks while the group is at its limit.
type GroupSubstrate struct {
	group   errgroup.Group
	limiter *rate.Limiter
}

// NewGroupSubstrate creates a substrate running at most maxWorkers tasks at a
// time (<= 0 means unbounded) and starting at most perSecond tasks per second
// (<= 0 means unthrottled).
func NewGroupSubstrate(maxWorkers int, perSecond float64) *GroupSubstrate {
	s := &GroupSubstrate{}

	if maxWorkers > 0 {
		s.group.SetLimit(maxWorkers)
	}

	if perSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond)))
	}

	return s
}

// Submit implements Substrate.
func (s *GroupSubstrate) Submit(task func() (Outcome, error), onComplete func(Outcome, error)) {
	s.group.Go(func() error {
		if s.limiter != nil {
			if err := s.limiter.Wait(context.Background()); err != nil {
				onComplete(Outcome{}, fmt.Errorf("rate limiter: %w", err))

				return nil
			}
		}

		out, err := runTask(task)
		onComplete(out, err)

		return nil
	})
}

// Wait blocks until every task submitted so far has completed.
func (s *GroupSubstrate) Wait() error {
	return s.group.Wait()
}

// runTask calls task, turning a panic into an error.
func runTask(task func() (Outcome, error)) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluator panic: %v", r)
		}
	}()

	return task()
}
