// Package trainer orchestrates improvement runs: select a strategy, apply
// its transform, score the result, record the outcome, watch for plateaus
// and hand off to the discovery engine when existing strategies stall.
package trainer

import (
	"context"

	"github.com/google/uuid"

	"github.com/XiaoConstantine/adapt-go/pkg/config"
	"github.com/XiaoConstantine/adapt-go/pkg/core"
	"github.com/XiaoConstantine/adapt-go/pkg/discovery"
	"github.com/XiaoConstantine/adapt-go/pkg/errors"
	"github.com/XiaoConstantine/adapt-go/pkg/logging"
	"github.com/XiaoConstantine/adapt-go/pkg/memory"
	"github.com/XiaoConstantine/adapt-go/pkg/registry"
)

// AppliedStrategy names one strategy application within a run.
type AppliedStrategy struct {
	Name       string
	Discovered bool
	Failed     bool
}

// Result summarizes one improvement run.
type Result struct {
	RunID       string
	BestInput   string
	FinalScore  float64
	Improvement float64
	Cycles      int
	Applied     []AppliedStrategy
}

// Trainer drives improvement runs. Each run is strictly sequential: outcome
// attribution depends on knowing the exact before/after pair, so strategy
// applications are never concurrent within a run.
type Trainer struct {
	registry  *registry.Registry
	memory    *memory.Memory
	scorer    core.Scorer
	discovery *discovery.Engine
	cfg       config.TrainerConfig
	logger    *logging.Logger
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithMaxCycles bounds the number of strategy applications per run.
func WithMaxCycles(n int) Option {
	return func(t *Trainer) {
		t.cfg.MaxCycles = n
	}
}

// WithImprovementThreshold sets the cumulative gain that ends a run early.
func WithImprovementThreshold(v float64) Option {
	return func(t *Trainer) {
		t.cfg.ImprovementThreshold = v
	}
}

// WithMaxScore sets the scorer's upper bound.
func WithMaxScore(v float64) Option {
	return func(t *Trainer) {
		t.cfg.MaxScore = v
	}
}

// WithDiscovery wires in a discovery engine and enables it for runs.
func WithDiscovery(e *discovery.Engine) Option {
	return func(t *Trainer) {
		t.discovery = e
		t.cfg.EnableDiscovery = true
	}
}

// WithoutDiscovery disables strategy discovery for runs.
func WithoutDiscovery() Option {
	return func(t *Trainer) {
		t.discovery = nil
		t.cfg.EnableDiscovery = false
	}
}

// New creates a Trainer over explicit registry and memory repositories.
func New(reg *registry.Registry, mem *memory.Memory, scorer core.Scorer, cfg config.TrainerConfig, opts ...Option) *Trainer {
	t := &Trainer{
		registry: reg,
		memory:   mem,
		scorer:   scorer,
		cfg:      cfg,
		logger:   logging.GetLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// runState is the per-run bookkeeping for plateau detection and discovery
// triggering.
type runState struct {
	bestInput string
	bestScore float64

	consecutiveFlat int
	nonImproving    int
	flatCounts      map[string]int
	plateaued       map[string]struct{}
	plateauOrder    []string
}

func (s *runState) markPlateaued(name string) {
	if _, ok := s.plateaued[name]; ok {
		return
	}
	s.plateaued[name] = struct{}{}
	s.plateauOrder = append(s.plateauOrder, name)
}

// ImproveArtifact runs the improvement loop over an artifact produced from
// spec, starting from initialScore. The returned result carries the best
// input achieved even when individual cycles failed.
func (t *Trainer) ImproveArtifact(ctx context.Context, input, spec string, initialScore float64, tc core.Context) (*Result, error) {
	if t.scorer == nil {
		return nil, errors.New(errors.InvalidInput, "trainer has no scorer")
	}

	candidates := t.selectCandidates(ctx, initialScore, tc)
	if len(candidates) == 0 {
		return nil, errors.New(errors.ResourceNotFound, "no strategies available")
	}

	result := &Result{
		RunID:     uuid.New().String(),
		BestInput: input,
	}
	state := &runState{
		bestInput:  input,
		bestScore:  initialScore,
		flatCounts: make(map[string]int),
		plateaued:  make(map[string]struct{}),
	}

	t.logger.Info(ctx, "Starting improvement run %s: score=%.2f, candidates=%d, max_cycles=%d",
		result.RunID, initialScore, len(candidates), t.cfg.MaxCycles)

	for cycle := 0; cycle < t.cfg.MaxCycles; cycle++ {
		result.Cycles = cycle + 1
		def := candidates[cycle%len(candidates)]
		cycleCtx := logging.WithStrategy(ctx, def.Name)

		previousScore := state.bestScore
		newScore, applyErr := t.applyAndScore(cycleCtx, def, spec, tc, state)

		applied := AppliedStrategy{Name: def.Name, Discovered: def.Discovered, Failed: applyErr != nil}
		result.Applied = append(result.Applied, applied)

		if applyErr != nil {
			// A failing application is never fatal: the strategy is
			// treated as plateaued for this run and the loop moves on.
			t.logger.Warn(cycleCtx, "Strategy %s failed, continuing: %v", def.Name, applyErr)
			state.markPlateaued(def.Name)
			state.nonImproving++
			t.maybeDiscover(cycleCtx, tc, state, &candidates)
			continue
		}

		flat := newScore <= previousScore+t.cfg.FlatDelta
		if flat {
			state.consecutiveFlat++
			state.nonImproving++
			state.flatCounts[def.Name]++
			if state.flatCounts[def.Name] >= 2 {
				state.markPlateaued(def.Name)
			}
		} else {
			state.consecutiveFlat = 0
			state.nonImproving = 0
		}

		t.maybeDiscover(cycleCtx, tc, state, &candidates)

		if state.bestScore-initialScore >= t.cfg.ImprovementThreshold {
			t.logger.Info(cycleCtx, "Improvement threshold reached: %.2f -> %.2f", initialScore, state.bestScore)
			break
		}
		if state.bestScore >= t.cfg.MaxScore {
			t.logger.Info(cycleCtx, "Maximum score reached: %.2f", state.bestScore)
			break
		}
		if flat && state.consecutiveFlat >= t.cfg.ConsecutiveFlatLimit {
			t.logger.Info(cycleCtx, "Run plateaued after %d consecutive flat cycles", state.consecutiveFlat)
			break
		}
	}

	result.BestInput = state.bestInput
	result.FinalScore = state.bestScore
	result.Improvement = state.bestScore - initialScore

	t.logger.Info(ctx, "Improvement run %s finished: score=%.2f (%+.2f) over %d cycles",
		result.RunID, result.FinalScore, result.Improvement, result.Cycles)
	return result, nil
}

// selectCandidates orders strategies by memory recommendation, falling back
// to the full registry when the memory has nothing relevant.
func (t *Trainer) selectCandidates(ctx context.Context, currentScore float64, tc core.Context) []core.StrategyDefinition {
	recs := t.memory.Recommendations(currentScore, tc)

	var candidates []core.StrategyDefinition
	for _, rec := range recs {
		def, err := t.registry.Get(rec.Name)
		if err != nil {
			// Outcomes can outlive the strategies that produced them.
			t.logger.Debug(ctx, "Recommended strategy %s no longer registered", rec.Name)
			continue
		}
		candidates = append(candidates, def)
	}

	if len(candidates) == 0 {
		t.logger.Debug(ctx, "No usable recommendations, falling back to registry defaults")
		candidates = t.registry.List()
	}
	return candidates
}

// applyAndScore runs one strategy's transform over the current best input,
// scores the result and records the outcome. The best input only advances
// when the new score is strictly higher.
func (t *Trainer) applyAndScore(ctx context.Context, def core.StrategyDefinition, spec string, tc core.Context, state *runState) (float64, error) {
	candidate, err := def.Transform.Apply(ctx, state.bestInput, tc)
	if err != nil {
		return 0, errors.Wrap(err, errors.TransformFailed, "strategy transform failed")
	}

	report, err := t.scorer.Score(ctx, candidate, spec)
	if err != nil {
		return 0, errors.Wrap(err, errors.ScoringFailed, "scorer collaborator failed")
	}

	newScore := report.Total
	outcome := core.NewOutcome([]string{def.Name}, tc, state.bestScore, newScore)
	if err := t.memory.RecordOutcome(ctx, outcome); err != nil {
		return 0, err
	}
	if def.Discovered && t.discovery != nil {
		if err := t.discovery.RecordApplication(ctx, def.Name, outcome.ImprovementPercent); err != nil {
			t.logger.Warn(ctx, "Failed to update discovered-strategy ledger for %s: %v", def.Name, err)
		}
	}

	t.logger.Debug(ctx, "Cycle result for %s: %.2f -> %.2f (%.1f%%)",
		def.Name, state.bestScore, newScore, outcome.ImprovementPercent)

	if newScore > state.bestScore {
		state.bestInput = candidate
		state.bestScore = newScore
	}
	return newScore, nil
}

// maybeDiscover invokes the discovery engine when enough distinct strategies
// have plateaued across enough consecutive non-improving cycles. A
// successful discovery prepends the new strategy to the candidate ordering
// and resets the streak; a failed one is logged and ignored.
func (t *Trainer) maybeDiscover(ctx context.Context, tc core.Context, state *runState, candidates *[]core.StrategyDefinition) {
	if !t.cfg.EnableDiscovery || t.discovery == nil {
		return
	}
	if len(state.plateaued) < t.cfg.DiscoveryThreshold || state.nonImproving < t.cfg.DiscoveryThreshold {
		return
	}

	record, err := t.discovery.DiscoverStrategy(ctx, tc, append([]string(nil), state.plateauOrder...), state.bestScore)
	if err != nil {
		t.logger.Warn(ctx, "Strategy discovery failed, continuing with existing strategies: %v", err)
		return
	}
	if record == nil {
		return
	}

	def, err := t.registry.Get(record.Name)
	if err != nil {
		t.logger.Warn(ctx, "Discovered strategy %s not registered: %v", record.Name, err)
		return
	}

	*candidates = append([]core.StrategyDefinition{def}, *candidates...)
	state.nonImproving = 0
	state.consecutiveFlat = 0

	t.logger.Info(ctx, "Inserted discovered strategy %q at the front of the candidate ordering", def.Name)
}
