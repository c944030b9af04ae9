// Package discovery mines the outcome memory for patterns, identifies
// plateaus, and synthesizes new strategy definitions via the generation
// collaborator once existing strategies stop helping.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/XiaoConstantine/adapt-go/pkg/config"
	"github.com/XiaoConstantine/adapt-go/pkg/core"
	"github.com/XiaoConstantine/adapt-go/pkg/errors"
	"github.com/XiaoConstantine/adapt-go/pkg/logging"
	"github.com/XiaoConstantine/adapt-go/pkg/memory"
	"github.com/XiaoConstantine/adapt-go/pkg/registry"
	"github.com/XiaoConstantine/adapt-go/pkg/transform"
)

// topPerformerCount is how many high-performing strategies the synthesis
// prompt summarizes.
const topPerformerCount = 3

// Engine synthesizes new strategies from mined outcome patterns. All state
// is explicit; the caller owns the memory, registry and store lifecycles.
type Engine struct {
	memory   *memory.Memory
	registry *registry.Registry
	llm      core.LLM
	store    RecordStore
	analyzer *Analyzer
	cfg      config.DiscoveryConfig
	logger   *logging.Logger

	mu      sync.RWMutex
	records []DiscoveredStrategyRecord
}

// NewEngine creates a discovery engine and loads previously discovered
// records from the store.
func NewEngine(ctx context.Context, mem *memory.Memory, reg *registry.Registry, llm core.LLM, store RecordStore, cfg config.DiscoveryConfig) (*Engine, error) {
	records, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		memory:   mem,
		registry: reg,
		llm:      llm,
		store:    store,
		analyzer: NewAnalyzer(cfg),
		cfg:      cfg,
		logger:   logging.GetLogger(),
		records:  records,
	}

	// Re-register surviving discovered strategies so their transforms are
	// available to new runs.
	for i := range records {
		def, err := records[i].Definition()
		if err != nil {
			e.logger.Warn(ctx, "Skipping discovered record %s: %v", records[i].Name, err)
			continue
		}
		if err := reg.Register(def); err != nil && !errors.IsCode(err, errors.DuplicateStrategy) {
			return nil, err
		}
	}

	return e, nil
}

// proposal is the shape the generation collaborator must answer with.
type proposal struct {
	Name                string           `json:"name"`
	Description         string           `json:"description"`
	Category            string           `json:"category"`
	ExpectedImprovement float64          `json:"expected_improvement,omitempty"`
	Rules               []transform.Rule `json:"rules"`
}

// DiscoverStrategy synthesizes a new strategy for the given context. It
// returns (nil, nil) when the outcome history is too small to mine, and an
// error when synthesis or parsing fails; the caller continues with its
// existing strategies in both cases.
func (e *Engine) DiscoverStrategy(ctx context.Context, tc core.Context, plateaued []string, currentScore float64) (*DiscoveredStrategyRecord, error) {
	outcomes := e.memory.Outcomes()
	if len(outcomes) < e.cfg.MinSampleSize {
		e.logger.Info(ctx, "Skipping discovery: %d outcomes recorded, need %d", len(outcomes), e.cfg.MinSampleSize)
		return nil, nil
	}

	stats := e.analyzer.Analyze(outcomes)
	failures := e.analyzer.AnalyzeFailures(outcomes, tc, plateaued)

	prompt := e.buildSynthesisPrompt(tc, failures, stats, plateaued, currentScore)

	resp, err := e.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, errors.Wrap(err, errors.DiscoveryFailed, "strategy synthesis call failed")
	}

	prop, err := parseProposal(resp.Content)
	if err != nil {
		return nil, errors.Wrap(err, errors.DiscoveryFailed, "could not parse strategy proposal")
	}

	record := e.buildRecord(prop, tc, failures, plateaued, currentScore)

	def, err := record.Definition()
	if err != nil {
		return nil, errors.Wrap(err, errors.DiscoveryFailed, "proposal has invalid category")
	}
	if err := e.registry.Register(def); err != nil {
		return nil, errors.Wrap(err, errors.DiscoveryFailed, "could not register discovered strategy")
	}

	e.mu.Lock()
	e.records = append(e.records, record)
	snapshot := append([]DiscoveredStrategyRecord(nil), e.records...)
	e.mu.Unlock()

	if err := e.store.Save(ctx, snapshot); err != nil {
		return nil, err
	}

	e.logger.Info(ctx, "Discovered new strategy %q (%s) targeting %v", record.Name, record.Category, record.TriggeredBy)
	return &record, nil
}

// HasStrategyPlateaued reports whether a discovered strategy's most recent
// applications have all failed to clear the minimal improvement. It requires
// at least PlateauThreshold applications; one application above the
// threshold resets detection.
func (e *Engine) HasStrategyPlateaued(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	record := e.find(name)
	if record == nil {
		return false
	}

	n := e.cfg.PlateauThreshold
	if len(record.Applications) < n {
		return false
	}

	recent := record.Applications[len(record.Applications)-n:]
	for _, a := range recent {
		if a.ImprovementPercent > e.cfg.MinImprovementPercent {
			return false
		}
	}
	return true
}

// RecordApplication appends one use of a discovered strategy to its ledger
// and persists the records.
func (e *Engine) RecordApplication(ctx context.Context, name string, improvementPercent float64) error {
	e.mu.Lock()

	record := e.find(name)
	if record == nil {
		e.mu.Unlock()
		return errors.WithFields(
			errors.New(errors.ResourceNotFound, "no discovered strategy record"),
			errors.Fields{"strategy": name},
		)
	}

	record.Usage++
	if improvementPercent > e.cfg.MinImprovementPercent {
		record.Successes++
	}
	record.Applications = append(record.Applications, Application{
		ImprovementPercent: improvementPercent,
		Timestamp:          time.Now(),
	})

	snapshot := append([]DiscoveredStrategyRecord(nil), e.records...)
	e.mu.Unlock()

	return e.store.Save(ctx, snapshot)
}

// Records returns a copy of all discovered strategy records.
func (e *Engine) Records() []DiscoveredStrategyRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]DiscoveredStrategyRecord(nil), e.records...)
}

// find returns a pointer into e.records; callers must hold e.mu.
func (e *Engine) find(name string) *DiscoveredStrategyRecord {
	for i := range e.records {
		if e.records[i].Name == name {
			return &e.records[i]
		}
	}
	return nil
}

func (e *Engine) buildRecord(prop proposal, tc core.Context, failures FailureAnalysis, plateaued []string, currentScore float64) DiscoveredStrategyRecord {
	expected := prop.ExpectedImprovement
	if expected <= 0 {
		expected = e.cfg.MinImprovementPercent
	}

	return DiscoveredStrategyRecord{
		ID:          uuid.New().String(),
		Name:        normalizeName(prop.Name),
		Description: prop.Description,
		Category:    prop.Category,
		Spec:        transform.Spec{Rules: prop.Rules},

		CreatedAt:          time.Now(),
		TargetComponents:   targetComponents(tc, failures),
		TargetRequirements: targetRequirements(tc, failures),
		TargetScoreRange: ScoreRange{
			Min: currentScore - e.cfg.ScoreBucketWidth,
			Max: currentScore + e.cfg.ScoreBucketWidth,
		},
		TriggeredBy:         append([]string(nil), plateaued...),
		ExpectedImprovement: expected,
	}
}

func targetComponents(tc core.Context, failures FailureAnalysis) []string {
	if len(failures.FailingComponents) > 0 {
		return failures.FailingComponents
	}
	if tc.ComponentType != "" {
		return []string{tc.ComponentType}
	}
	return nil
}

func targetRequirements(tc core.Context, failures FailureAnalysis) []string {
	if len(failures.FailingRequirements) > 0 {
		return failures.FailingRequirements
	}
	return append([]string(nil), tc.RequirementTypes...)
}

func (e *Engine) buildSynthesisPrompt(tc core.Context, failures FailureAnalysis, stats []AggregatedStrategyStats, plateaued []string, currentScore float64) string {
	var b strings.Builder

	b.WriteString("You design adaptation strategies for improving generated artifacts.\n\n")

	fmt.Fprintf(&b, "Current score: %.2f\n", currentScore)
	if tc.ProjectContext != "" {
		fmt.Fprintf(&b, "Project: %s\n", tc.ProjectContext)
	}
	if tc.ComponentType != "" {
		fmt.Fprintf(&b, "Component type: %s\n", tc.ComponentType)
	}
	if len(tc.RequirementTypes) > 0 {
		fmt.Fprintf(&b, "Requirements: %s\n", strings.Join(tc.RequirementTypes, ", "))
	}

	fmt.Fprintf(&b, "\nPlateaued strategies (no longer improving): %s\n", strings.Join(plateaued, ", "))
	if len(failures.CommonPatterns) > 0 {
		b.WriteString("Observed failure patterns:\n")
		for _, p := range failures.CommonPatterns {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	if len(failures.PlateauScoreRanges) > 0 {
		fmt.Fprintf(&b, "Score ranges where plateaus occur: %s\n", strings.Join(failures.PlateauScoreRanges, ", "))
	}

	top := topPerformers(stats, topPerformerCount)
	if len(top) > 0 {
		b.WriteString("\nBest performing strategies so far:\n")
		for _, s := range top {
			fmt.Fprintf(&b, "- %s: avg improvement %.1f%% over %d uses, trend %s\n",
				s.Name, s.AvgImprovement, s.Usage, s.Trend)
		}
	}

	b.WriteString(`
Propose one NEW strategy that addresses the failure patterns and is distinct
from every strategy named above. Answer with a single JSON object and nothing
else:

{
  "name": "kebab-case-name",
  "description": "one line",
  "category": "prompt|context|model|config",
  "expected_improvement": 15,
  "rules": [
    {"op": "prepend|append|insert-before|insert-after|replace", "match": "anchor text if needed", "text": "payload, may use {{input}}, {{project}}, {{component}}, {{requirements}}"}
  ]
}
`)
	return b.String()
}

func topPerformers(stats []AggregatedStrategyStats, n int) []AggregatedStrategyStats {
	sorted := append([]AggregatedStrategyStats(nil), stats...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].AvgImprovement > sorted[j-1].AvgImprovement; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// parseProposal decodes the collaborator's answer. Every field is required;
// a missing one fails the discovery rather than being guessed.
func parseProposal(raw string) (proposal, error) {
	body := transform.ExtractJSON(raw)
	if body == "" {
		return proposal{}, errors.New(errors.InvalidResponse, "no JSON object in synthesis output")
	}

	var prop proposal
	if err := json.Unmarshal([]byte(body), &prop); err != nil {
		return proposal{}, errors.Wrap(err, errors.InvalidResponse, "malformed strategy proposal")
	}

	var missing []string
	if strings.TrimSpace(prop.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(prop.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(prop.Category) == "" {
		missing = append(missing, "category")
	}
	if len(prop.Rules) == 0 {
		missing = append(missing, "rules")
	}
	if len(missing) > 0 {
		return proposal{}, errors.WithFields(
			errors.New(errors.InvalidResponse, "strategy proposal is incomplete"),
			errors.Fields{"missing": strings.Join(missing, ",")},
		)
	}

	if _, err := core.ParseCategory(prop.Category); err != nil {
		return proposal{}, errors.Wrap(err, errors.InvalidResponse, "strategy proposal has unknown category")
	}
	if err := (transform.Spec{Rules: prop.Rules}).Validate(); err != nil {
		return proposal{}, errors.Wrap(err, errors.InvalidResponse, "strategy proposal has invalid rules")
	}

	return prop, nil
}

var nameCaser = cases.Lower(language.English)

// normalizeName folds a proposed name into lowercase kebab-case.
func normalizeName(name string) string {
	name = nameCaser.String(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "-")
	name = strings.ReplaceAll(name, "_", "-")
	return name
}
