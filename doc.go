// Package banditpool provides adaptive trial allocation over a pool of
// competing candidates ("arms") using an upper confidence bound policy. It
// decides, one trial at a time, which candidate to evaluate next so that the
// best one is identified without wasting trials on clearly inferior or
// exhausted candidates.
//
// # Features
//
//   - Warm start: every arm is tried once before any arm is revisited
//   - Pluggable scoring: UCB1 (default), UCB-Tuned and Greedy, or any ScoreFunc
//   - Growing pools: arms can be created and destroyed while trials run
//   - Synchronous and asynchronous modes: block on each evaluation, or keep
//     several evaluations in flight through a Substrate
//   - Safe retirement: an evaluator returning Exhausted() destroys its arm;
//     late results for destroyed arms are detected and ignored
//   - Generic payloads: arms carry any value, which the pool never inspects
//   - Observability: slog logging, Prometheus metrics, OpenTelemetry spans and
//     an optional progress channel
//
// # Selection cycle
//
// Each cycle pops the arm with the highest score from the candidate queue,
// evaluates it, and folds the result back in:
//
//	pool, err := banditpool.NewPool[*Config](banditpool.DefaultConfig(), evaluator)
//	if err != nil {
//	    return err
//	}
//
//	for _, c := range candidates {
//	    pool.CreateArm(c)
//	}
//
//	for i := 0; i < 200; i++ {
//	    if _, err := pool.SelectAndPlayArm(ctx); err != nil {
//	        return err
//	    }
//	}
//
//	winner, err := pool.SampleArmWithHighestReward()
//
// # Scoring
//
// With UCB1 an arm scores
//
//	m + c * sqrt(ln(N) / n)
//
// where m is the arm's mean objective (negated when minimizing), c is
// Config.ExplorationCoefficient, N the pool-wide number of trials and n the
// arm's number of trials. Unplayed arms score +Inf. Ties go to the lowest arm
// index, so identical statistics always yield the same selection.
//
// # Asynchronous mode
//
// With Config.UseMultiThreading, Play keeps up to Config.Parallelism
// evaluations in flight. Each dispatched evaluation carries a Ticket (arm
// index + generation); its completion is only applied if the ticket still
// matches the arm. An arm is never dispatched twice at once.
//
//	config := banditpool.DefaultConfig()
//	config.UseMultiThreading = true
//	config.Parallelism = 8
//
// # Thread Safety
//
// All Pool methods are safe for concurrent use. One mutex guards the arms
// and the candidate queue; the evaluator always runs outside of it.
package banditpool
