package discovery

import (
	"fmt"
	"sort"

	"github.com/XiaoConstantine/adapt-go/pkg/core"
)

// FailureAnalysis summarizes where existing strategies keep failing for a
// given context: the component types and requirements that repeatedly miss
// the minimal improvement, the score ranges where the plateaued strategies
// were active, and qualitative pattern statements for the synthesis prompt.
type FailureAnalysis struct {
	FailingComponents   []string
	FailingRequirements []string
	PlateauScoreRanges  []string
	CommonPatterns      []string
}

// repeatedFailureMin is how often a component or requirement must miss the
// minimal improvement before it counts as a failure pattern.
const repeatedFailureMin = 2

// AnalyzeFailures restricts the history to outcomes matching tc and mines it
// for the failure patterns around the named plateaued strategies.
func (a *Analyzer) AnalyzeFailures(outcomes []core.StrategyOutcome, tc core.Context, plateaued []string) FailureAnalysis {
	plateauSet := make(map[string]struct{}, len(plateaued))
	for _, name := range plateaued {
		plateauSet[name] = struct{}{}
	}

	compFails := make(map[string]int)
	reqFails := make(map[string]int)
	rangeSet := make(map[string]struct{})

	var highPlateaus, lowPlateaus int
	for _, o := range outcomes {
		if !tc.Matches(o.Context) {
			continue
		}

		if o.ImprovementPercent <= a.cfg.MinImprovementPercent {
			if comp := o.Context.ComponentType; comp != "" {
				compFails[comp]++
			}
			for _, req := range o.Context.RequirementTypes {
				reqFails[req]++
			}
		}

		for _, name := range o.Strategies {
			if _, ok := plateauSet[name]; !ok {
				continue
			}
			if o.ImprovementPercent <= a.cfg.MinImprovementPercent {
				rangeSet[a.ScoreBucket(o.ScoreBefore)] = struct{}{}
				if o.ScoreBefore >= 8 {
					highPlateaus++
				} else if o.ScoreBefore < 4 {
					lowPlateaus++
				}
			}
		}
	}

	analysis := FailureAnalysis{
		FailingComponents:   repeated(compFails),
		FailingRequirements: repeated(reqFails),
		PlateauScoreRanges:  sortedKeys(rangeSet),
	}

	if highPlateaus >= repeatedFailureMin {
		analysis.CommonPatterns = append(analysis.CommonPatterns,
			"plateau at high scores >=8: existing strategies cannot close the final gap")
	}
	if lowPlateaus >= repeatedFailureMin {
		analysis.CommonPatterns = append(analysis.CommonPatterns,
			"plateau at low scores <4: artifacts miss fundamentals that rewording does not fix")
	}
	for _, comp := range analysis.FailingComponents {
		analysis.CommonPatterns = append(analysis.CommonPatterns,
			fmt.Sprintf("component %q repeatedly fails to improve", comp))
	}
	for _, req := range analysis.FailingRequirements {
		analysis.CommonPatterns = append(analysis.CommonPatterns,
			fmt.Sprintf("requirement %q repeatedly fails to improve", req))
	}

	return analysis
}

func repeated(counts map[string]int) []string {
	var out []string
	for k, n := range counts {
		if n >= repeatedFailureMin {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
