package banditpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

//////
// Asynchronous dispatch.
//////

// DispatchArm selects the best eligible arm and submits its evaluation to the
// pool's Substrate. It returns as soon as the task is submitted; the arm stays
// out of the candidate queue until its completion is observed.
//
// Errors reported by asynchronous evaluations are collected and returned by
// the next Wait or Play.
//
// Returns:
//   - Ticket: Identifies the dispatched evaluation
//   - error: ErrPoolExhausted when no arm is eligible right now
func (p *Pool[P]) DispatchArm(ctx context.Context) (Ticket, error) {
	p.mu.Lock()
	ticket, payload, instance, err := p.acquireLocked()
	p.mu.Unlock()

	if err != nil {
		return Ticket{}, err
	}

	p.submit(ctx, ticket, payload, instance)

	return ticket, nil
}

// submit hands one acquired trial to the Substrate.
func (p *Pool[P]) submit(ctx context.Context, ticket Ticket, payload P, instance int) {
	p.substrate.Submit(
		func() (Outcome, error) {
			return p.evaluate(ctx, ticket, payload, instance)
		},
		func(out Outcome, err error) {
			p.onComplete(ticket, out, err)
		},
	)
}

// onComplete is the continuation handed to the Substrate.
func (p *Pool[P]) onComplete(ticket Ticket, out Outcome, evalErr error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.completeLocked(ticket, out, evalErr)
	if err != nil && !errors.Is(err, ErrStaleArm) {
		p.asyncErrs = append(p.asyncErrs, err)
	}
}

// Wait blocks until no evaluation is in flight, then returns the errors
// collected from asynchronous completions since the last call.
//
// An evaluation that never returns keeps Wait blocked until ctx is done.
func (p *Pool[P]) Wait(ctx context.Context) error {
	for {
		p.mu.Lock()
		if p.inFlight == 0 {
			err := p.takeErrorsLocked()
			p.mu.Unlock()

			return err
		}

		changed := p.changed
		p.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Play runs budget selection cycles.
//
// Without multi-threading every cycle is a blocking SelectAndPlayArm. With
// UseMultiThreading, up to Config.Parallelism evaluations run through the
// Substrate at once; when every live arm is in flight Play waits for the next
// completion instead of failing. Play returns once all its evaluations have
// been observed.
//
// Returns:
//   - error: ErrPoolExhausted if the arms run out before the budget is
//     spent, evaluator errors, or ctx.Err()
//
// Usage example:
//
//	// Spend 500 trials, then pick the winner.
//	if err := pool.Play(ctx, 500); err != nil {
//	    return err
//	}
//
//	winner, err := pool.SampleArmWithHighestReward()
func (p *Pool[P]) Play(ctx context.Context, budget int) error {
	if !p.config.UseMultiThreading {
		return p.playSync(ctx, budget)
	}

	return p.playAsync(ctx, budget)
}

func (p *Pool[P]) playSync(ctx context.Context, budget int) error {
	for i := 0; i < budget; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := p.SelectAndPlayArm(ctx); err != nil {
			return fmt.Errorf("play %d/%d: %w", i+1, budget, err)
		}
	}

	p.logger.Info("play finished", slog.Int("budget", budget), slog.Int("total_plays", p.TotalPlays()))

	return nil
}

func (p *Pool[P]) playAsync(ctx context.Context, budget int) error {
	for dispatched := 0; dispatched < budget; {
		if err := ctx.Err(); err != nil {
			return err
		}

		p.mu.Lock()

		if len(p.asyncErrs) > 0 {
			p.mu.Unlock()

			break
		}

		if p.queue.Len() == 0 || p.inFlight >= p.config.Parallelism {
			if p.queue.Len() == 0 && p.inFlight == 0 {
				err := fmt.Errorf("play %d/%d: %w: no live arm left", dispatched+1, budget, ErrPoolExhausted)
				err = errors.Join(err, p.takeErrorsLocked())
				p.mu.Unlock()

				return err
			}

			changed := p.changed
			p.mu.Unlock()

			select {
			case <-changed:
			case <-ctx.Done():
				return ctx.Err()
			}

			continue
		}

		ticket, payload, instance, err := p.acquireLocked()
		p.mu.Unlock()

		if err != nil {
			return err
		}

		p.submit(ctx, ticket, payload, instance)
		dispatched++
	}

	if err := p.Wait(ctx); err != nil {
		return fmt.Errorf("play: %w", err)
	}

	p.logger.Info("play finished",
		slog.Int("budget", budget),
		slog.Int("parallelism", p.config.Parallelism),
		slog.Int("total_plays", p.TotalPlays()),
	)

	return nil
}

// takeErrorsLocked returns and clears the collected asynchronous errors.
func (p *Pool[P]) takeErrorsLocked() error {
	err := errors.Join(p.asyncErrs...)
	p.asyncErrs = nil

	return err
}
