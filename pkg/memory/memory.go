// Package memory is the persistent outcome log of the optimization engine:
// every strategy application ever recorded, plus the derived statistics and
// recommendation queries the trainer selects strategies from.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/XiaoConstantine/adapt-go/pkg/config"
	"github.com/XiaoConstantine/adapt-go/pkg/core"
	"github.com/XiaoConstantine/adapt-go/pkg/logging"
)

// Composite score weights for strategy recommendations.
const (
	successRateWeight    = 0.4
	avgImprovementWeight = 0.4
	scoreRelevanceWeight = 0.2
)

// Memory holds the append-only outcome log. Aggregated statistics are always
// recomputed from the log, never stored.
type Memory struct {
	mu       sync.RWMutex
	outcomes []core.StrategyOutcome
	store    OutcomeStore
	cfg      config.MemoryConfig
	logger   *logging.Logger
}

// New creates a Memory backed by the given store, loading any previously
// persisted history.
func New(ctx context.Context, store OutcomeStore, cfg config.MemoryConfig) (*Memory, error) {
	m := &Memory{
		store:  store,
		cfg:    cfg,
		logger: logging.GetLogger(),
	}

	outcomes, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	m.outcomes = outcomes

	m.logger.Debug(ctx, "Loaded %d outcomes from store", len(outcomes))
	return m, nil
}

// RecordOutcome appends an outcome and persists the full log. The in-memory
// log is only updated after persistence succeeds, so readers never see an
// outcome that could be lost.
func (m *Memory) RecordOutcome(ctx context.Context, outcome core.StrategyOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	updated := append(append([]core.StrategyOutcome(nil), m.outcomes...), outcome)
	if err := m.store.Save(ctx, updated); err != nil {
		return err
	}
	m.outcomes = updated

	m.logger.Debug(ctx, "Recorded outcome for %v: %.2f -> %.2f (%.1f%%)",
		outcome.Strategies, outcome.ScoreBefore, outcome.ScoreAfter, outcome.ImprovementPercent)
	return nil
}

// Outcomes returns a copy of the full ordered history.
func (m *Memory) Outcomes() []core.StrategyOutcome {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]core.StrategyOutcome(nil), m.outcomes...)
}

// Len returns the number of recorded outcomes.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.outcomes)
}

// strategyGroup accumulates per-strategy figures while walking the log.
type strategyGroup struct {
	name          string
	firstSeen     int // log index of first appearance, for tie-breaking
	usage         int
	successes     int
	failures      int
	sumImprove    float64
	bestRelevance float64
}

func (g *strategyGroup) avgImprovement() float64 {
	if g.usage == 0 {
		return 0
	}
	return g.sumImprove / float64(g.usage)
}

// groupByStrategy walks outcomes matching the context filter and groups them
// by strategy name, preserving first-seen order.
func groupByStrategy(outcomes []core.StrategyOutcome, tc core.Context) []*strategyGroup {
	byName := make(map[string]*strategyGroup)
	var ordered []*strategyGroup

	for i, o := range outcomes {
		if !tc.Matches(o.Context) {
			continue
		}
		for _, name := range o.Strategies {
			g, ok := byName[name]
			if !ok {
				g = &strategyGroup{name: name, firstSeen: i}
				byName[name] = g
				ordered = append(ordered, g)
			}
			g.usage++
			g.sumImprove += o.ImprovementPercent
			if o.Improved() {
				g.successes++
			} else {
				g.failures++
			}
		}
	}
	return ordered
}

// SuccessfulStrategy is one row of a SuccessfulStrategies result.
type SuccessfulStrategy struct {
	Name           string
	Usage          int
	AvgImprovement float64
}

// SuccessfulStrategies returns strategies whose average improvement over the
// context-matched outcomes is at least threshold, sorted descending by that
// average. Ties keep first-seen order.
func (m *Memory) SuccessfulStrategies(threshold float64, tc core.Context) []SuccessfulStrategy {
	m.mu.RLock()
	defer m.mu.RUnlock()

	groups := groupByStrategy(m.outcomes, tc)

	results := make([]SuccessfulStrategy, 0, len(groups))
	for _, g := range groups {
		if avg := g.avgImprovement(); avg >= threshold {
			results = append(results, SuccessfulStrategy{
				Name:           g.name,
				Usage:          g.usage,
				AvgImprovement: avg,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].AvgImprovement > results[j].AvgImprovement
	})
	return results
}

// Recommendation ranks one strategy for the current score and context.
type Recommendation struct {
	Name           string
	Composite      float64
	SuccessRate    float64
	AvgImprovement float64
	ScoreRelevance float64
	Usage          int
}

// Recommendations ranks strategies by a composite of success rate, average
// improvement and score relevance. The result is deterministic for a given
// log and query; ties keep first-seen order. An empty slice means nothing in
// memory matched and the caller should fall back to the registry.
func (m *Memory) Recommendations(currentScore float64, tc core.Context) []Recommendation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byName := make(map[string]*strategyGroup)
	var ordered []*strategyGroup

	for i, o := range m.outcomes {
		if !tc.Matches(o.Context) {
			continue
		}
		relevance := scoreRelevance(o.ScoreBefore, currentScore, m.cfg.MaxScoreSpan)
		for _, name := range o.Strategies {
			g, ok := byName[name]
			if !ok {
				g = &strategyGroup{name: name, firstSeen: i}
				byName[name] = g
				ordered = append(ordered, g)
			}
			g.usage++
			g.sumImprove += o.ImprovementPercent
			if o.Improved() {
				g.successes++
			} else {
				g.failures++
			}
			if relevance > g.bestRelevance {
				g.bestRelevance = relevance
			}
		}
	}

	recs := make([]Recommendation, 0, len(ordered))
	for _, g := range ordered {
		rate := successRate(g.successes, g.failures)
		avg := g.avgImprovement()
		composite := rate*successRateWeight +
			max(0, avg)*avgImprovementWeight +
			g.bestRelevance*scoreRelevanceWeight

		recs = append(recs, Recommendation{
			Name:           g.name,
			Composite:      composite,
			SuccessRate:    rate,
			AvgImprovement: avg,
			ScoreRelevance: g.bestRelevance,
			Usage:          g.usage,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Composite > recs[j].Composite
	})
	return recs
}

// successRate is successes over total attempts, with the denominator padded
// by one failure when a strategy has never failed. A perfect record counts
// slightly below 1.0 so a single lucky outcome cannot dominate.
func successRate(successes, failures int) float64 {
	if successes+failures == 0 {
		return 0
	}
	if failures == 0 {
		failures = 1
	}
	return float64(successes) / float64(successes+failures)
}

func scoreRelevance(scoreBefore, currentScore, maxSpan float64) float64 {
	dist := scoreBefore - currentScore
	if dist < 0 {
		dist = -dist
	}
	norm := dist / maxSpan
	if norm > 1 {
		norm = 1
	}
	return 1 - norm
}
