// Package testutil provides shared mocks for package tests.
package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/XiaoConstantine/adapt-go/pkg/core"
)

// MockLLM is a testify mock of the generation collaborator.
type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) Generate(ctx context.Context, prompt string, options ...core.GenerateOption) (*core.LLMResponse, error) {
	args := m.Called(ctx, prompt)
	if resp := args.Get(0); resp != nil {
		return resp.(*core.LLMResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLLM) ModelID() string {
	return "mock-model"
}

// MockScorer is a testify mock of the scorer collaborator.
type MockScorer struct {
	mock.Mock
}

func (m *MockScorer) Score(ctx context.Context, artifact, spec string) (*core.ScoreReport, error) {
	args := m.Called(ctx, artifact, spec)
	if report := args.Get(0); report != nil {
		return report.(*core.ScoreReport), args.Error(1)
	}
	return nil, args.Error(1)
}

// ScriptedScorer returns a fixed sequence of totals, then repeats the last
// one. Useful when a test cares about score progression, not inputs.
type ScriptedScorer struct {
	Totals []float64
	calls  int
}

func (s *ScriptedScorer) Score(ctx context.Context, artifact, spec string) (*core.ScoreReport, error) {
	idx := s.calls
	if idx >= len(s.Totals) {
		idx = len(s.Totals) - 1
	}
	s.calls++
	return &core.ScoreReport{Total: s.Totals[idx]}, nil
}

// MockOutcomeStore is a testify mock of the outcome store.
type MockOutcomeStore struct {
	mock.Mock
}

func (m *MockOutcomeStore) Save(ctx context.Context, outcomes []core.StrategyOutcome) error {
	args := m.Called(ctx, outcomes)
	return args.Error(0)
}

func (m *MockOutcomeStore) Load(ctx context.Context) ([]core.StrategyOutcome, error) {
	args := m.Called(ctx)
	if outcomes := args.Get(0); outcomes != nil {
		return outcomes.([]core.StrategyOutcome), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOutcomeStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
