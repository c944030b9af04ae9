package core

import "context"

// CriterionScore is one row of a score breakdown.
type CriterionScore struct {
	Criterion string  `json:"criterion"`
	Score     float64 `json:"score"`
	MaxScore  float64 `json:"max_score"`
	Feedback  string  `json:"feedback,omitempty"`
}

// ScoreReport is the scorer collaborator's verdict on an artifact. Total is
// always non-negative and bounded by the configured maximum score.
type ScoreReport struct {
	Criteria []CriterionScore `json:"criteria"`
	Total    float64          `json:"total"`
}

// Scorer evaluates an artifact against the specification it was produced
// from. Implementations own their own timeouts; a failed call is reported as
// an error, never a zero score.
type Scorer interface {
	Score(ctx context.Context, artifact, spec string) (*ScoreReport, error)
}
