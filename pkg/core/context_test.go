package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextMatches(t *testing.T) {
	tests := []struct {
		name    string
		query   Context
		other   Context
		matches bool
	}{
		{
			name:    "both wildcard",
			query:   Context{},
			other:   Context{},
			matches: true,
		},
		{
			name:    "unset query field matches anything",
			query:   Context{},
			other:   Context{ProjectContext: "shop", ComponentType: "button"},
			matches: true,
		},
		{
			name:    "unset outcome field matches anything",
			query:   Context{ComponentType: "button"},
			other:   Context{},
			matches: true,
		},
		{
			name:    "component mismatch",
			query:   Context{ComponentType: "button"},
			other:   Context{ComponentType: "form"},
			matches: false,
		},
		{
			name:    "project mismatch",
			query:   Context{ProjectContext: "shop"},
			other:   Context{ProjectContext: "blog"},
			matches: false,
		},
		{
			name:    "requirement overlap",
			query:   Context{RequirementTypes: []string{"accessibility", "performance"}},
			other:   Context{RequirementTypes: []string{"performance"}},
			matches: true,
		},
		{
			name:    "no requirement overlap",
			query:   Context{RequirementTypes: []string{"accessibility"}},
			other:   Context{RequirementTypes: []string{"performance"}},
			matches: false,
		},
		{
			name:    "all fields agree",
			query:   Context{ProjectContext: "shop", ComponentType: "button", RequirementTypes: []string{"a11y"}},
			other:   Context{ProjectContext: "shop", ComponentType: "button", RequirementTypes: []string{"a11y", "perf"}},
			matches: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.matches, tt.query.Matches(tt.other))
		})
	}
}

func TestContextIsWildcard(t *testing.T) {
	assert.True(t, Context{}.IsWildcard())
	assert.False(t, Context{ComponentType: "button"}.IsWildcard())
	assert.False(t, Context{RequirementTypes: []string{"a11y"}}.IsWildcard())
}
