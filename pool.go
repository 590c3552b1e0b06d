package banditpool

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

//////
// Const, vars, types.
//////

// Pool allocates trials among competing arms with an upper-confidence score.
//
// Every arm is tried once before any is revisited; afterwards the arm with the
// highest score is played next. Arms whose evaluation reports Exhausted are
// destroyed and never selected again.
//
// Type Parameter:
//   - P: The opaque payload carried by each arm. The pool never inspects or
//     mutates it.
//
// Thread safety:
//   - All methods are safe for concurrent use
//   - A single mutex guards the arms and the candidate queue
//   - The evaluator is never called with the mutex held
//   - At most one evaluation per arm is in flight at any time
type Pool[P any] struct {
	mu sync.Mutex

	id        string
	config    Config
	score     ScoreFunc
	params    ScoreParams
	evaluator Evaluator[P]
	objective objectiveRange
	instances int
	substrate Substrate
	logger    *slog.Logger
	tracer    poolTracer

	registry   registry[P]
	queue      candidateQueue
	inFlight   int
	totalPlays int

	// changed is closed and replaced whenever an evaluation completes or an
	// arm is destroyed.
	changed chan struct{}

	// asyncErrs collects errors from asynchronous completions until Wait or
	// Play hands them to the caller.
	asyncErrs []error
}

//////
// Factory.
//////

// NewPool creates a pool playing arms against evaluator.
//
// Parameters:
//   - config: Pool configuration, usually derived from DefaultConfig()
//   - evaluator: The objective arms are evaluated with
//
// Returns:
//   - *Pool[P]: The pool, with no arms
//   - error: ErrInvalidConfig or ErrInvalidRange
//
// Usage example:
//
//	config := DefaultConfig()
//	config.ExplorationCoefficient = 1.0
//
//	pool, err := NewPool[float64](config, evaluator)
//	if err != nil {
//	    return err
//	}
//
//	for _, v := range []float64{0.1, 0.5, 0.9} {
//	    pool.CreateArm(v)
//	}
//
//	if err := pool.Play(ctx, 100); err != nil {
//	    return err
//	}
//
//	best, err := pool.SampleArmWithHighestReward()
func NewPool[P any](config Config, evaluator Evaluator[P]) (*Pool[P], error) {
	if evaluator == nil {
		return nil, fmt.Errorf("%w: nil evaluator", ErrInvalidConfig)
	}

	if config.Parallelism == 0 {
		config.Parallelism = runtime.NumCPU()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	score := config.Score
	if score == nil {
		var err error
		if score, err = ScoreFuncByName(config.ScoreName); err != nil {
			return nil, err
		}
	}

	worst, best := evaluator.ObjectiveRange()

	objective, err := newObjectiveRange(worst, best, config.OptimizeMax)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	substrate := config.Substrate
	if substrate == nil {
		substrate = NewGroupSubstrate(0, config.MaxEvaluationsPerSecond)
	}

	p := &Pool[P]{
		id:        id,
		config:    config,
		score:     score,
		params:    ScoreParams{ExplorationCoefficient: config.ExplorationCoefficient, OptimizeMax: config.OptimizeMax},
		evaluator: evaluator,
		objective: objective,
		substrate: substrate,
		logger:    logger.With(slog.String("pool_id", id)),
		tracer:    newPoolTracer(id, config.TracingEnabled),
		changed:   make(chan struct{}),
	}

	if ic, ok := evaluator.(InstanceCounter); ok && ic.NumInstances() > 0 {
		p.instances = ic.NumInstances()
	}

	return p, nil
}

//////
// Arm registry.
//////

// ID returns the pool's unique identifier, used in logs, spans and progress
// updates.
func (p *Pool[P]) ID() string { return p.id }

// ReserveArms preallocates room for n more arms.
func (p *Pool[P]) ReserveArms(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.registry.reserve(n)
	p.queue.reserve(n)
}

// CreateArm adds an arm carrying payload and returns its stable index. The
// new arm is selected before any arm that has already been played.
func (p *Pool[P]) CreateArm(payload P) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	a := p.registry.create(payload)
	p.queue.push(a.stats.Index, math.Inf(1))

	armsCreatedTotal.Inc()
	p.logger.Debug("arm created", slog.Int("arm", a.stats.Index))

	return a.stats.Index
}

// DestroyArm retires an arm for good. Its index is never selected or reused
// again, and a result still in flight for it will be ignored.
func (p *Pool[P]) DestroyArm(index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, err := p.registry.live(index)
	if err != nil {
		return err
	}

	p.destroyLocked(a)

	return nil
}

// DestroyWorstArms destroys up to n played arms with the lowest mean reward
// and returns their indices, worst first.
func (p *Pool[P]) DestroyWorstArms(n int) []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	candidates := make([]*arm[P], 0, p.registry.liveCount())
	for _, a := range p.registry.arms {
		if !a.dead && a.stats.PlayedCount > 0 {
			candidates = append(candidates, a)
		}
	}

	slices.SortFunc(candidates, func(x, y *arm[P]) int {
		if c := cmp.Compare(x.stats.MeanReward(), y.stats.MeanReward()); c != 0 {
			return c
		}

		return cmp.Compare(y.stats.Index, x.stats.Index)
	})

	n = min(max(n, 0), len(candidates))
	destroyed := make([]int, 0, n)

	for _, a := range candidates[:n] {
		destroyed = append(destroyed, a.stats.Index)
		p.destroyLocked(a)
	}

	return destroyed
}

// Arm returns a snapshot of a live arm's statistics.
func (p *Pool[P]) Arm(index int) (ArmStats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, err := p.registry.live(index)
	if err != nil {
		return ArmStats{}, err
	}

	return a.stats, nil
}

// ArmObject returns a live arm's payload.
func (p *Pool[P]) ArmObject(index int) (P, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, err := p.registry.live(index)
	if err != nil {
		var zero P

		return zero, err
	}

	return a.payload, nil
}

// SetArmObject replaces a live arm's payload. Statistics are kept.
func (p *Pool[P]) SetArmObject(index int, payload P) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, err := p.registry.live(index)
	if err != nil {
		return err
	}

	a.payload = payload

	return nil
}

// ArmMeanObjective returns a live arm's mean raw objective, 0 if unplayed.
func (p *Pool[P]) ArmMeanObjective(index int) (float64, error) {
	s, err := p.Arm(index)

	return s.MeanObjective(), err
}

// ArmMeanReward returns a live arm's mean normalized reward, 0 if unplayed.
func (p *Pool[P]) ArmMeanReward(index int) (float64, error) {
	s, err := p.Arm(index)

	return s.MeanReward(), err
}

// ArmPlayedCount returns the number of counted trials of a live arm.
func (p *Pool[P]) ArmPlayedCount(index int) (int, error) {
	s, err := p.Arm(index)

	return s.PlayedCount, err
}

// NumArms returns the number of arms ever created, destroyed ones included.
func (p *Pool[P]) NumArms() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.registry.size()
}

// NumLiveArms returns the number of arms not destroyed.
func (p *Pool[P]) NumLiveArms() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.registry.liveCount()
}

// InFlight returns the number of dispatched, not yet observed evaluations.
func (p *Pool[P]) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.inFlight
}

// TotalPlays returns the pool-wide number of counted trials.
func (p *Pool[P]) TotalPlays() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.totalPlays
}

//////
// Selection cycle.
//////

// SelectAndPlayArm runs one synchronous select, dispatch, observe cycle and
// returns the index of the arm played.
//
// Returns:
//   - int: The arm that was played (-1 if none could be selected)
//   - error: ErrPoolExhausted when no arm is eligible, the evaluator's error,
//     or ErrInvalidObjectiveValue
//
// The caller blocks for the duration of the evaluation. An arm that gets
// destroyed while being evaluated is simply not updated.
func (p *Pool[P]) SelectAndPlayArm(ctx context.Context) (int, error) {
	p.mu.Lock()
	ticket, payload, instance, err := p.acquireLocked()
	p.mu.Unlock()

	if err != nil {
		return -1, err
	}

	out, evalErr := p.evaluate(ctx, ticket, payload, instance)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.completeLocked(ticket, out, evalErr); err != nil && !errors.Is(err, ErrStaleArm) {
		return ticket.Arm, err
	}

	return ticket.Arm, nil
}

// ObserveObjective feeds an out-of-band result for a live arm into the pool.
//
// If the arm is waiting in the candidate queue its statistics and score are
// updated in place. If it is in flight, the result completes that flight and
// the late result of the original dispatch will be ignored.
func (p *Pool[P]) ObserveObjective(index int, out Outcome) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, err := p.registry.live(index)
	if err != nil {
		observationsTotal.WithLabelValues(resultStale).Inc()

		return err
	}

	if !a.stats.InFlight {
		return p.applyLocked(a, out, true)
	}

	p.landLocked(a)
	a.generation++

	defer p.signalLocked()

	return p.applyLocked(a, out, false)
}

// SampleArmWithHighestReward returns the live arm with the highest mean
// reward, ignoring any exploration bonus. Ties go to the arm played most,
// then to the lowest index.
func (p *Pool[P]) SampleArmWithHighestReward() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	best, _ := p.bestArmLocked()
	if best < 0 {
		return -1, fmt.Errorf("%w: no live arm", ErrPoolExhausted)
	}

	return best, nil
}

// ArmsOrder returns every live arm sorted best-to-worst by mean objective.
// Arms never played come last, by index.
func (p *Pool[P]) ArmsOrder() []ArmRank {
	p.mu.Lock()

	order := make([]ArmRank, 0, p.registry.liveCount())
	for _, a := range p.registry.arms {
		if !a.dead {
			order = append(order, ArmRank{
				Index:         a.stats.Index,
				MeanObjective: a.stats.MeanObjective(),
				PlayedCount:   a.stats.PlayedCount,
			})
		}
	}

	p.mu.Unlock()

	optimizeMax := p.config.OptimizeMax

	slices.SortFunc(order, func(x, y ArmRank) int {
		if (x.PlayedCount == 0) != (y.PlayedCount == 0) {
			if x.PlayedCount == 0 {
				return 1
			}

			return -1
		}

		c := cmp.Compare(x.MeanObjective, y.MeanObjective)
		if optimizeMax {
			c = -c
		}

		if c != 0 {
			return c
		}

		return cmp.Compare(x.Index, y.Index)
	})

	return order
}

//////
// Internals. Methods suffixed with Locked expect p.mu to be held.
//////

// acquireLocked pops the best eligible arm and marks it in flight.
func (p *Pool[P]) acquireLocked() (Ticket, P, int, error) {
	var zero P

	entry, ok := p.queue.pop()
	if !ok {
		return Ticket{}, zero, 0, fmt.Errorf(
			"%w: no eligible arm (%d live, %d in flight)", ErrPoolExhausted, p.registry.liveCount(), p.inFlight,
		)
	}

	a := p.registry.arms[entry.arm]
	if a.dead || a.stats.InFlight {
		return Ticket{}, zero, 0, fmt.Errorf("%w: queued arm %d is dead or in flight", ErrInvariantViolation, entry.arm)
	}

	a.generation++
	a.stats.InFlight = true
	p.inFlight++
	inFlightEvaluations.Inc()

	instance := a.stats.PlayedCount
	if p.instances > 0 {
		instance %= p.instances
	}

	ticket := Ticket{Arm: entry.arm, Generation: a.generation}

	p.logger.Debug("arm dispatched",
		slog.Int("arm", ticket.Arm),
		slog.Int("instance", instance),
		slog.Float64("score", entry.score),
	)

	return ticket, a.payload, instance, nil
}

// evaluate calls the evaluator for one trial. Panics become errors.
func (p *Pool[P]) evaluate(ctx context.Context, ticket Ticket, payload P, instance int) (Outcome, error) {
	ctx, span := p.tracer.startEvaluation(ctx, ticket, instance)

	start := time.Now()
	out, err := runTask(func() (Outcome, error) {
		return p.evaluator.Evaluate(ctx, payload, instance)
	})
	evaluationDuration.Observe(time.Since(start).Seconds())

	endEvaluation(span, out, err)

	return out, err
}

// completeLocked integrates the result of a dispatched evaluation.
func (p *Pool[P]) completeLocked(ticket Ticket, out Outcome, evalErr error) error {
	if ticket.Arm < 0 || ticket.Arm >= p.registry.size() {
		observationsTotal.WithLabelValues(resultStale).Inc()

		return fmt.Errorf("%w: unknown arm %d", ErrStaleArm, ticket.Arm)
	}

	a := p.registry.arms[ticket.Arm]
	if a.dead || !a.stats.InFlight || a.generation != ticket.Generation {
		observationsTotal.WithLabelValues(resultStale).Inc()
		p.logger.Warn("ignoring stale completion",
			slog.Int("arm", ticket.Arm),
			slog.Uint64("generation", ticket.Generation),
			slog.Bool("destroyed", a.dead),
		)

		return fmt.Errorf("%w: completion for arm %d generation %d", ErrStaleArm, ticket.Arm, ticket.Generation)
	}

	p.landLocked(a)

	defer p.signalLocked()

	if evalErr != nil {
		observationsTotal.WithLabelValues(resultError).Inc()
		p.queue.push(a.stats.Index, p.scoreLocked(a))
		p.logger.Warn("evaluation failed", slog.Int("arm", a.stats.Index), slog.Any("error", evalErr))

		return fmt.Errorf("evaluate arm %d: %w", a.stats.Index, evalErr)
	}

	return p.applyLocked(a, out, false)
}

// landLocked clears a's in-flight state.
func (p *Pool[P]) landLocked(a *arm[P]) {
	a.stats.InFlight = false
	p.inFlight--
	inFlightEvaluations.Dec()
}

// applyLocked folds out into a. queued tells whether a currently sits in the
// candidate queue (out-of-band observation) or must be reinserted.
func (p *Pool[P]) applyLocked(a *arm[P], out Outcome, queued bool) error {
	if out.Exhausted {
		observationsTotal.WithLabelValues(resultExhausted).Inc()
		p.destroyLocked(a)

		return nil
	}

	if math.IsNaN(out.Value) {
		observationsTotal.WithLabelValues(resultInvalid).Inc()

		if !queued {
			p.queue.push(a.stats.Index, p.scoreLocked(a))
		}

		return fmt.Errorf("%w: arm %d returned NaN", ErrInvalidObjectiveValue, a.stats.Index)
	}

	value, clamped := p.objective.bound(out.Value)
	if clamped {
		clampedValuesTotal.Inc()
		p.logger.Warn("objective value out of range, clamped",
			slog.Int("arm", a.stats.Index),
			slog.Float64("value", out.Value),
			slog.Float64("clamped", value),
		)
	}

	a.record(value, p.objective.reward(value), p.config.OptimizeMax)
	p.totalPlays++

	score := p.scoreLocked(a)
	if queued {
		p.queue.update(a.stats.Index, score)
	} else {
		p.queue.push(a.stats.Index, score)
	}

	observationsTotal.WithLabelValues(resultObserved).Inc()
	p.logger.Debug("arm observed",
		slog.Int("arm", a.stats.Index),
		slog.Float64("value", value),
		slog.Int("played", a.stats.PlayedCount),
		slog.Float64("score", score),
	)

	p.progressLocked(a, false, value)

	return nil
}

// destroyLocked retires a and keeps the queue and in-flight count in sync.
func (p *Pool[P]) destroyLocked(a *arm[P]) {
	p.queue.remove(a.stats.Index)

	if a.stats.InFlight {
		p.inFlight--
		inFlightEvaluations.Dec()
	}

	p.registry.destroy(a)

	armsDestroyedTotal.Inc()
	p.logger.Info("arm destroyed",
		slog.Int("arm", a.stats.Index),
		slog.Int("played", a.stats.PlayedCount),
		slog.Int("live_arms", p.registry.liveCount()),
	)

	p.progressLocked(a, true, 0)
	p.signalLocked()
}

// scoreLocked scores a against the current total play count. Unplayed arms
// always score +Inf.
func (p *Pool[P]) scoreLocked(a *arm[P]) float64 {
	if a.stats.PlayedCount == 0 {
		return math.Inf(1)
	}

	return p.score(a.stats, p.totalPlays, p.params)
}

// bestArmLocked returns the live arm with the highest mean reward, or -1.
func (p *Pool[P]) bestArmLocked() (int, float64) {
	best, bestReward, bestPlays := -1, math.Inf(-1), -1

	for _, a := range p.registry.arms {
		if a.dead {
			continue
		}

		r := a.stats.MeanReward()
		if r > bestReward || (r == bestReward && a.stats.PlayedCount > bestPlays) {
			best, bestReward, bestPlays = a.stats.Index, r, a.stats.PlayedCount
		}
	}

	if best < 0 {
		return -1, 0
	}

	return best, bestReward
}

// signalLocked wakes everything waiting on p.changed.
func (p *Pool[P]) signalLocked() {
	close(p.changed)
	p.changed = make(chan struct{})
}

// progressLocked sends a ProgressUpdate without blocking.
func (p *Pool[P]) progressLocked(a *arm[P], destroyed bool, value float64) {
	if p.config.ProgressChan == nil {
		return
	}

	best, bestReward := p.bestArmLocked()

	update := ProgressUpdate{
		PoolID:         p.id,
		Arm:            a.stats.Index,
		Destroyed:      destroyed,
		Value:          value,
		TotalPlays:     p.totalPlays,
		LiveArms:       p.registry.liveCount(),
		BestArm:        best,
		BestMeanReward: bestReward,
	}

	select {
	case p.config.ProgressChan <- update:
	default:
		// Skip update if channel is full.
	}
}
