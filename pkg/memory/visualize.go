package memory

import (
	"fmt"
	"strings"

	"github.com/XiaoConstantine/adapt-go/pkg/core"
)

// StrategyRow is one line of the per-strategy table in a Report.
type StrategyRow struct {
	Name           string  `json:"name"`
	Usage          int     `json:"usage"`
	Successes      int     `json:"successes"`
	AvgImprovement float64 `json:"avg_improvement"`
}

// Report is a read-side projection of the memory: totals, a per-strategy
// table and the most recent applications. Building one has no side effects.
type Report struct {
	TotalOutcomes   int                    `json:"total_outcomes"`
	TotalStrategies int                    `json:"total_strategies"`
	AvgImprovement  float64                `json:"avg_improvement"`
	Strategies      []StrategyRow          `json:"strategies"`
	Recent          []core.StrategyOutcome `json:"recent"`
}

// Visualize computes the current statistics report.
func (m *Memory) Visualize() Report {
	m.mu.RLock()
	defer m.mu.RUnlock()

	groups := groupByStrategy(m.outcomes, core.Context{})

	report := Report{
		TotalOutcomes:   len(m.outcomes),
		TotalStrategies: len(groups),
	}

	var sum float64
	for _, o := range m.outcomes {
		sum += o.ImprovementPercent
	}
	if len(m.outcomes) > 0 {
		report.AvgImprovement = sum / float64(len(m.outcomes))
	}

	for _, g := range groups {
		report.Strategies = append(report.Strategies, StrategyRow{
			Name:           g.name,
			Usage:          g.usage,
			Successes:      g.successes,
			AvgImprovement: g.avgImprovement(),
		})
	}

	recent := m.cfg.RecentApplications
	if recent > len(m.outcomes) {
		recent = len(m.outcomes)
	}
	report.Recent = append([]core.StrategyOutcome(nil), m.outcomes[len(m.outcomes)-recent:]...)

	return report
}

// String renders the report for console display.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Outcomes: %d  Strategies: %d  Avg improvement: %.1f%%\n",
		r.TotalOutcomes, r.TotalStrategies, r.AvgImprovement)
	for _, row := range r.Strategies {
		fmt.Fprintf(&b, "  %-30s used=%d ok=%d avg=%.1f%%\n",
			row.Name, row.Usage, row.Successes, row.AvgImprovement)
	}
	if len(r.Recent) > 0 {
		fmt.Fprintf(&b, "Recent applications:\n")
		for _, o := range r.Recent {
			fmt.Fprintf(&b, "  %s %v %.2f -> %.2f\n",
				o.Timestamp.Format("2006-01-02 15:04:05"), o.Strategies, o.ScoreBefore, o.ScoreAfter)
		}
	}
	return b.String()
}
