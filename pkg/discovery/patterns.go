package discovery

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/XiaoConstantine/adapt-go/pkg/config"
	"github.com/XiaoConstantine/adapt-go/pkg/core"
)

// Trend classifies how a strategy's recent improvements compare to the
// window before them.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendStable     Trend = "stable"
	TrendDecreasing Trend = "decreasing"
)

// AggregatedStrategyStats is the derived per-strategy view the discovery
// engine mines. It is recomputed from the outcome log on demand and never
// persisted.
type AggregatedStrategyStats struct {
	Name           string
	Usage          int
	Successes      int
	AvgImprovement float64
	Trend          Trend

	// Breakdowns of average improvement by context bucket.
	ByRequirement map[string]float64
	ByComponent   map[string]float64
	ByProject     map[string]float64
	ByScoreRange  map[string]float64
}

// Analyzer computes aggregated statistics over outcome histories.
type Analyzer struct {
	cfg config.DiscoveryConfig
}

// NewAnalyzer creates an analyzer with the given thresholds.
func NewAnalyzer(cfg config.DiscoveryConfig) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze groups outcomes by strategy and computes stats for each. The
// per-strategy aggregation fans out on a bounded worker pool; the result is
// ordered by each strategy's first appearance in the log.
func (a *Analyzer) Analyze(outcomes []core.StrategyOutcome) []AggregatedStrategyStats {
	type entry struct {
		firstSeen int
		outcomes  []core.StrategyOutcome
	}

	grouped := make(map[string]*entry)
	var names []string
	for i, o := range outcomes {
		for _, name := range o.Strategies {
			e, ok := grouped[name]
			if !ok {
				e = &entry{firstSeen: i}
				grouped[name] = e
				names = append(names, name)
			}
			e.outcomes = append(e.outcomes, o)
		}
	}

	stats := make([]AggregatedStrategyStats, len(names))
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(a.cfg.MaxWorkers)
	for i, name := range names {
		i, name := i, name
		p.Go(func() {
			s := a.aggregate(name, grouped[name].outcomes)
			mu.Lock()
			stats[i] = s
			mu.Unlock()
		})
	}
	p.Wait()

	sort.SliceStable(stats, func(i, j int) bool {
		return grouped[stats[i].Name].firstSeen < grouped[stats[j].Name].firstSeen
	})
	return stats
}

func (a *Analyzer) aggregate(name string, outcomes []core.StrategyOutcome) AggregatedStrategyStats {
	s := AggregatedStrategyStats{
		Name:          name,
		Usage:         len(outcomes),
		ByRequirement: make(map[string]float64),
		ByComponent:   make(map[string]float64),
		ByProject:     make(map[string]float64),
		ByScoreRange:  make(map[string]float64),
	}

	reqCounts := make(map[string]int)
	compCounts := make(map[string]int)
	projCounts := make(map[string]int)
	rangeCounts := make(map[string]int)

	var sum float64
	for _, o := range outcomes {
		sum += o.ImprovementPercent
		if o.ImprovementPercent > a.cfg.MinImprovementPercent {
			s.Successes++
		}

		for _, req := range o.Context.RequirementTypes {
			s.ByRequirement[req] += o.ImprovementPercent
			reqCounts[req]++
		}
		if comp := o.Context.ComponentType; comp != "" {
			s.ByComponent[comp] += o.ImprovementPercent
			compCounts[comp]++
		}
		if proj := o.Context.ProjectContext; proj != "" {
			s.ByProject[proj] += o.ImprovementPercent
			projCounts[proj]++
		}

		bucket := a.ScoreBucket(o.ScoreBefore)
		s.ByScoreRange[bucket] += o.ImprovementPercent
		rangeCounts[bucket]++
	}

	if s.Usage > 0 {
		s.AvgImprovement = sum / float64(s.Usage)
	}
	for k, n := range reqCounts {
		s.ByRequirement[k] /= float64(n)
	}
	for k, n := range compCounts {
		s.ByComponent[k] /= float64(n)
	}
	for k, n := range projCounts {
		s.ByProject[k] /= float64(n)
	}
	for k, n := range rangeCounts {
		s.ByScoreRange[k] /= float64(n)
	}

	s.Trend = a.trend(outcomes)
	return s
}

// trend compares the average improvement of the most recent window against
// the window before it. Relative changes within the tolerance are stable.
func (a *Analyzer) trend(outcomes []core.StrategyOutcome) Trend {
	w := a.cfg.TrendWindow
	if len(outcomes) < 2*w {
		return TrendStable
	}

	recent := outcomes[len(outcomes)-w:]
	prior := outcomes[len(outcomes)-2*w : len(outcomes)-w]

	avg := func(os []core.StrategyOutcome) float64 {
		var sum float64
		for _, o := range os {
			sum += o.ImprovementPercent
		}
		return sum / float64(len(os))
	}

	recentAvg, priorAvg := avg(recent), avg(prior)
	if priorAvg == 0 {
		switch {
		case recentAvg > 0:
			return TrendIncreasing
		case recentAvg < 0:
			return TrendDecreasing
		default:
			return TrendStable
		}
	}

	change := (recentAvg - priorAvg) / abs(priorAvg)
	switch {
	case change > a.cfg.TrendTolerance:
		return TrendIncreasing
	case change < -a.cfg.TrendTolerance:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// ScoreBucket maps a score onto its 2-point-wide range label, e.g. "6-8".
func (a *Analyzer) ScoreBucket(score float64) string {
	w := a.cfg.ScoreBucketWidth
	low := float64(int(score/w)) * w
	return fmt.Sprintf("%g-%g", low, low+w)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
