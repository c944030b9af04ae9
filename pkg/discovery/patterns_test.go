package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/adapt-go/pkg/config"
	"github.com/XiaoConstantine/adapt-go/pkg/core"
)

func outcomeFor(strategy string, tc core.Context, before, after float64) core.StrategyOutcome {
	return core.NewOutcome([]string{strategy}, tc, before, after)
}

func TestAnalyzeGroupsAndOrders(t *testing.T) {
	a := NewAnalyzer(config.Default().Discovery)

	outcomes := []core.StrategyOutcome{
		outcomeFor("beta", core.Context{}, 5.0, 6.0),
		outcomeFor("alpha", core.Context{}, 5.0, 5.5),
		outcomeFor("beta", core.Context{}, 6.0, 6.6),
	}

	stats := a.Analyze(outcomes)
	require.Len(t, stats, 2)

	// Ordered by first appearance in the log, not alphabetically.
	assert.Equal(t, "beta", stats[0].Name)
	assert.Equal(t, "alpha", stats[1].Name)

	assert.Equal(t, 2, stats[0].Usage)
	// 20% and 10% improvements average to 15%; only the first clears the
	// 10% success bar.
	assert.InDelta(t, 15.0, stats[0].AvgImprovement, 1e-9)
	assert.Equal(t, 1, stats[0].Successes)
}

func TestAnalyzeContextBreakdowns(t *testing.T) {
	a := NewAnalyzer(config.Default().Discovery)

	outcomes := []core.StrategyOutcome{
		outcomeFor("s", core.Context{
			ProjectContext:   "shop",
			ComponentType:    "button",
			RequirementTypes: []string{"a11y"},
		}, 5.0, 6.0),
		outcomeFor("s", core.Context{
			ComponentType:    "button",
			RequirementTypes: []string{"a11y", "perf"},
		}, 5.0, 5.5),
	}

	stats := a.Analyze(outcomes)
	require.Len(t, stats, 1)
	s := stats[0]

	assert.InDelta(t, 15.0, s.ByComponent["button"], 1e-9)
	assert.InDelta(t, 15.0, s.ByRequirement["a11y"], 1e-9)
	assert.InDelta(t, 10.0, s.ByRequirement["perf"], 1e-9)
	assert.InDelta(t, 20.0, s.ByProject["shop"], 1e-9)
	assert.InDelta(t, 15.0, s.ByScoreRange["4-6"], 1e-9)
}

func TestTrendClassification(t *testing.T) {
	a := NewAnalyzer(config.Default().Discovery)

	// Window of 3: six outcomes split into prior and recent halves.
	improving := []core.StrategyOutcome{
		outcomeFor("s", core.Context{}, 5.0, 5.1),
		outcomeFor("s", core.Context{}, 5.0, 5.1),
		outcomeFor("s", core.Context{}, 5.0, 5.1),
		outcomeFor("s", core.Context{}, 5.0, 6.0),
		outcomeFor("s", core.Context{}, 5.0, 6.0),
		outcomeFor("s", core.Context{}, 5.0, 6.0),
	}
	assert.Equal(t, TrendIncreasing, a.Analyze(improving)[0].Trend)

	declining := []core.StrategyOutcome{
		outcomeFor("s", core.Context{}, 5.0, 6.0),
		outcomeFor("s", core.Context{}, 5.0, 6.0),
		outcomeFor("s", core.Context{}, 5.0, 6.0),
		outcomeFor("s", core.Context{}, 5.0, 5.1),
		outcomeFor("s", core.Context{}, 5.0, 5.1),
		outcomeFor("s", core.Context{}, 5.0, 5.1),
	}
	assert.Equal(t, TrendDecreasing, a.Analyze(declining)[0].Trend)

	// Identical halves stay within the tolerance.
	steady := []core.StrategyOutcome{
		outcomeFor("s", core.Context{}, 5.0, 5.5),
		outcomeFor("s", core.Context{}, 5.0, 5.5),
		outcomeFor("s", core.Context{}, 5.0, 5.5),
		outcomeFor("s", core.Context{}, 5.0, 5.5),
		outcomeFor("s", core.Context{}, 5.0, 5.5),
		outcomeFor("s", core.Context{}, 5.0, 5.5),
	}
	assert.Equal(t, TrendStable, a.Analyze(steady)[0].Trend)

	// Too little history defaults to stable.
	short := improving[:4]
	assert.Equal(t, TrendStable, a.Analyze(short)[0].Trend)
}

func TestScoreBucket(t *testing.T) {
	a := NewAnalyzer(config.Default().Discovery)

	assert.Equal(t, "6-8", a.ScoreBucket(6.0))
	assert.Equal(t, "6-8", a.ScoreBucket(7.9))
	assert.Equal(t, "8-10", a.ScoreBucket(8.0))
	assert.Equal(t, "0-2", a.ScoreBucket(0.5))
}

func TestAnalyzeFailures(t *testing.T) {
	a := NewAnalyzer(config.Default().Discovery)
	buttonA11y := core.Context{ComponentType: "button", RequirementTypes: []string{"a11y"}}

	outcomes := []core.StrategyOutcome{
		// Two sub-threshold outcomes for the plateaued strategy at high scores.
		outcomeFor("stuck", buttonA11y, 8.2, 8.3),
		outcomeFor("stuck", buttonA11y, 8.4, 8.4),
		// A healthy outcome must not register as a failure.
		outcomeFor("fine", buttonA11y, 5.0, 6.5),
	}

	analysis := a.AnalyzeFailures(outcomes, core.Context{ComponentType: "button"}, []string{"stuck"})

	assert.Equal(t, []string{"button"}, analysis.FailingComponents)
	assert.Equal(t, []string{"a11y"}, analysis.FailingRequirements)
	assert.Equal(t, []string{"8-10"}, analysis.PlateauScoreRanges)
	require.NotEmpty(t, analysis.CommonPatterns)
	assert.Contains(t, analysis.CommonPatterns[0], "high scores")
}

func TestAnalyzeFailuresRespectsContextFilter(t *testing.T) {
	a := NewAnalyzer(config.Default().Discovery)

	outcomes := []core.StrategyOutcome{
		outcomeFor("stuck", core.Context{ComponentType: "form"}, 8.0, 8.1),
		outcomeFor("stuck", core.Context{ComponentType: "form"}, 8.0, 8.1),
	}

	analysis := a.AnalyzeFailures(outcomes, core.Context{ComponentType: "button"}, []string{"stuck"})
	assert.Empty(t, analysis.FailingComponents)
	assert.Empty(t, analysis.PlateauScoreRanges)
	assert.Empty(t, analysis.CommonPatterns)
}
