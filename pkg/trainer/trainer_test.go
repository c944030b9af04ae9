package trainer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/adapt-go/internal/testutil"
	"github.com/XiaoConstantine/adapt-go/pkg/config"
	"github.com/XiaoConstantine/adapt-go/pkg/core"
	"github.com/XiaoConstantine/adapt-go/pkg/discovery"
	"github.com/XiaoConstantine/adapt-go/pkg/errors"
	"github.com/XiaoConstantine/adapt-go/pkg/memory"
	"github.com/XiaoConstantine/adapt-go/pkg/registry"
)

func appendStrategy(name, marker string) core.StrategyDefinition {
	return core.StrategyDefinition{
		Name:     name,
		Category: core.CategoryPrompt,
		Transform: core.TransformFunc(func(ctx context.Context, input string, tc core.Context) (string, error) {
			return input + marker, nil
		}),
	}
}

func failingStrategy(name string) core.StrategyDefinition {
	return core.StrategyDefinition{
		Name:     name,
		Category: core.CategoryPrompt,
		Transform: core.TransformFunc(func(ctx context.Context, input string, tc core.Context) (string, error) {
			return "", errors.New(errors.TransformFailed, "broken transform")
		}),
	}
}

func newTestMemory(t *testing.T) *memory.Memory {
	t.Helper()
	store := memory.NewFileStore(filepath.Join(t.TempDir(), "outcomes.json"))
	mem, err := memory.New(context.Background(), store, config.Default().Memory)
	require.NoError(t, err)
	return mem
}

func TestImproveArtifactStopsAtImprovementThreshold(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(appendStrategy("a", " [a]")))
	require.NoError(t, reg.Register(appendStrategy("b", " [b]")))

	scorer := &testutil.ScriptedScorer{Totals: []float64{8.0, 11.2}}
	tr := New(reg, newTestMemory(t), scorer, config.Default().Trainer,
		WithImprovementThreshold(5), WithMaxScore(20), WithoutDiscovery())

	result, err := tr.ImproveArtifact(context.Background(), "seed", "spec text", 6.0, core.Context{})
	require.NoError(t, err)

	// Score climbed 6.0 -> 8.0 -> 11.2; cumulative gain 5.2 ends the run
	// before the cycle budget is spent.
	assert.Equal(t, 2, result.Cycles)
	assert.Equal(t, 11.2, result.FinalScore)
	assert.InDelta(t, 5.2, result.Improvement, 1e-9)
	assert.NotEmpty(t, result.RunID)
}

func TestImproveArtifactStopsAtMaxScore(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(appendStrategy("a", " [a]")))

	scorer := &testutil.ScriptedScorer{Totals: []float64{10.0}}
	tr := New(reg, newTestMemory(t), scorer, config.Default().Trainer,
		WithImprovementThreshold(100), WithoutDiscovery())

	result, err := tr.ImproveArtifact(context.Background(), "seed", "spec text", 6.0, core.Context{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Cycles)
	assert.Equal(t, 10.0, result.FinalScore)
}

func TestImproveArtifactStopsAfterConsecutiveFlatCycles(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(appendStrategy("a", " [a]")))
	require.NoError(t, reg.Register(appendStrategy("b", " [b]")))

	// Both cycles land within the flat delta of 0.5.
	scorer := &testutil.ScriptedScorer{Totals: []float64{6.1, 6.2}}
	tr := New(reg, newTestMemory(t), scorer, config.Default().Trainer,
		WithImprovementThreshold(100), WithoutDiscovery())

	result, err := tr.ImproveArtifact(context.Background(), "seed", "spec text", 6.0, core.Context{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Cycles)
	assert.Equal(t, 6.2, result.FinalScore)
}

func TestImproveArtifactBestInputOnlyAdvances(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(appendStrategy("a", " [a]")))
	require.NoError(t, reg.Register(appendStrategy("b", " [b]")))

	mem := newTestMemory(t)
	scorer := &testutil.ScriptedScorer{Totals: []float64{8.0, 7.0}}
	tr := New(reg, mem, scorer, config.Default().Trainer,
		WithMaxCycles(2), WithImprovementThreshold(100), WithMaxScore(20), WithoutDiscovery())

	result, err := tr.ImproveArtifact(context.Background(), "seed", "spec text", 6.0, core.Context{})
	require.NoError(t, err)

	// The regressing second cycle must not displace the best artifact.
	assert.Equal(t, "seed [a]", result.BestInput)
	assert.Equal(t, 8.0, result.FinalScore)

	// Both applications were recorded, the second against the best score.
	outcomes := mem.Outcomes()
	require.Len(t, outcomes, 2)
	assert.Equal(t, []string{"a"}, outcomes[0].Strategies)
	assert.Equal(t, 8.0, outcomes[1].ScoreBefore)
	assert.Equal(t, 7.0, outcomes[1].ScoreAfter)
}

func TestImproveArtifactRequiresStrategies(t *testing.T) {
	tr := New(registry.New(), newTestMemory(t), &testutil.ScriptedScorer{Totals: []float64{7}},
		config.Default().Trainer, WithoutDiscovery())

	_, err := tr.ImproveArtifact(context.Background(), "seed", "spec text", 6.0, core.Context{})
	assert.True(t, errors.IsCode(err, errors.ResourceNotFound))
}

func TestImproveArtifactRequiresScorer(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(appendStrategy("a", " [a]")))

	tr := New(reg, newTestMemory(t), nil, config.Default().Trainer, WithoutDiscovery())
	_, err := tr.ImproveArtifact(context.Background(), "seed", "spec text", 6.0, core.Context{})
	assert.True(t, errors.IsCode(err, errors.InvalidInput))
}

func TestImproveArtifactPrefersMemoryRecommendations(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(appendStrategy("a", " [a]")))
	require.NoError(t, reg.Register(appendStrategy("b", " [b]")))

	mem := newTestMemory(t)
	tc := core.Context{ComponentType: "button"}
	require.NoError(t, mem.RecordOutcome(context.Background(), core.NewOutcome([]string{"b"}, tc, 6.0, 7.5)))

	scorer := &testutil.ScriptedScorer{Totals: []float64{9.0}}
	tr := New(reg, mem, scorer, config.Default().Trainer, WithoutDiscovery())

	result, err := tr.ImproveArtifact(context.Background(), "seed", "spec text", 6.0, tc)
	require.NoError(t, err)
	require.NotEmpty(t, result.Applied)
	assert.Equal(t, "b", result.Applied[0].Name)
}

func TestImproveArtifactContinuesPastTransformFailure(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(failingStrategy("broken")))
	require.NoError(t, reg.Register(appendStrategy("working", " [w]")))

	scorer := &testutil.ScriptedScorer{Totals: []float64{9.0}}
	tr := New(reg, newTestMemory(t), scorer, config.Default().Trainer,
		WithMaxCycles(2), WithImprovementThreshold(100), WithMaxScore(20), WithoutDiscovery())

	result, err := tr.ImproveArtifact(context.Background(), "seed", "spec text", 6.0, core.Context{})
	require.NoError(t, err)

	require.Len(t, result.Applied, 2)
	assert.True(t, result.Applied[0].Failed)
	assert.False(t, result.Applied[1].Failed)
	assert.Equal(t, 9.0, result.FinalScore)
	assert.Equal(t, "seed [w]", result.BestInput)
}

func TestImproveArtifactTriggersDiscovery(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	reg := registry.New()
	require.NoError(t, reg.Register(failingStrategy("stale-one")))
	require.NoError(t, reg.Register(failingStrategy("stale-two")))
	require.NoError(t, reg.Register(failingStrategy("stale-three")))

	mem, err := memory.New(ctx, memory.NewFileStore(filepath.Join(dir, "outcomes.json")), config.Default().Memory)
	require.NoError(t, err)
	// Recorded under a strategy that is no longer registered, so candidate
	// selection falls back to the full registry.
	for i := 0; i < 5; i++ {
		require.NoError(t, mem.RecordOutcome(ctx, core.NewOutcome([]string{"retired"}, core.Context{}, 6.0, 6.1)))
	}

	llm := new(testutil.MockLLM)
	llm.On("Generate", mock.Anything, mock.Anything).Return(&core.LLMResponse{Content: `{
		"name": "fresh-angle",
		"description": "Reframe the request around unmet criteria",
		"category": "prompt",
		"rules": [{"op": "prepend", "text": "Address the weakest criteria first.\n"}]
	}`}, nil)

	engine, err := discovery.NewEngine(ctx, mem, reg, llm,
		discovery.NewFileRecordStore(filepath.Join(dir, "discovered.json")), config.Default().Discovery)
	require.NoError(t, err)

	scorer := &testutil.ScriptedScorer{Totals: []float64{9.0}}
	tr := New(reg, mem, scorer, config.Default().Trainer,
		WithMaxCycles(5), WithImprovementThreshold(100), WithMaxScore(20), WithDiscovery(engine))

	result, err := tr.ImproveArtifact(ctx, "seed", "spec text", 6.0, core.Context{})
	require.NoError(t, err)

	// Three distinct failures trip discovery; the synthesized strategy is
	// tried next and becomes the best artifact.
	var discovered *AppliedStrategy
	for i := range result.Applied {
		if result.Applied[i].Discovered {
			discovered = &result.Applied[i]
		}
	}
	require.NotNil(t, discovered)
	assert.Equal(t, "fresh-angle", discovered.Name)
	assert.False(t, discovered.Failed)
	assert.Equal(t, 9.0, result.FinalScore)
	assert.Equal(t, "Address the weakest criteria first.\nseed", result.BestInput)

	// The application landed in the discovered-strategy ledger.
	records := engine.Records()
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Usage)
}
