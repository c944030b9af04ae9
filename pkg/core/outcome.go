package core

import "time"

// StrategyOutcome records the result of one strategy application. Outcomes
// are immutable once recorded; the memory only ever grows.
type StrategyOutcome struct {
	// Strategies lists the strategy names applied for this outcome.
	// Usually one, but combined applications record several.
	Strategies []string `json:"strategies"`

	Context Context `json:"context"`

	ScoreBefore float64 `json:"score_before"`
	ScoreAfter  float64 `json:"score_after"`

	// ImprovementPercent is (after-before)/before*100, defined as exactly
	// 0 when ScoreBefore is 0.
	ImprovementPercent float64 `json:"improvement_percent"`

	Timestamp time.Time `json:"timestamp"`
}

// NewOutcome builds an outcome with the improvement percentage computed from
// the before/after pair.
func NewOutcome(strategies []string, tc Context, before, after float64) StrategyOutcome {
	return StrategyOutcome{
		Strategies:         strategies,
		Context:            tc,
		ScoreBefore:        before,
		ScoreAfter:         after,
		ImprovementPercent: ImprovementPercent(before, after),
		Timestamp:          time.Now(),
	}
}

// ImprovementPercent computes the relative improvement between two scores.
// A zero starting score yields 0 rather than propagating infinity.
func ImprovementPercent(before, after float64) float64 {
	if before == 0 {
		return 0
	}
	return (after - before) / before * 100
}

// Improved reports whether the outcome raised the score at all.
func (o StrategyOutcome) Improved() bool {
	return o.ImprovementPercent > 0
}
