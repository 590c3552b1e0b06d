package banditpool

import "errors"

//////
// Errors.
//////

var (
	// ErrPoolExhausted is returned when no arm is eligible for selection and
	// no evaluation is in flight that could make one eligible again. It is
	// fatal to the calling loop.
	ErrPoolExhausted = errors.New("bandit pool exhausted")

	// ErrInvalidObjectiveValue is returned when an evaluator reports a value
	// that cannot be brought into its declared range (NaN). Out-of-range
	// finite values are clamped instead.
	ErrInvalidObjectiveValue = errors.New("invalid objective value")

	// ErrStaleArm is returned when an index refers to a destroyed or unknown
	// arm, or when a completion carries an outdated ticket.
	ErrStaleArm = errors.New("stale or unknown arm")

	// ErrInvariantViolation signals a queue entry referencing an arm that is
	// destroyed or in flight. Unreachable by correct construction.
	ErrInvariantViolation = errors.New("bandit pool invariant violation")

	// ErrInvalidRange is returned by NewPool when the evaluator's objective
	// range is degenerate or points the wrong way for OptimizeMax.
	ErrInvalidRange = errors.New("invalid objective range")

	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("invalid configuration")
)
