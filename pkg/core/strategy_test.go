package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryRoundTrip(t *testing.T) {
	for _, c := range []StrategyCategory{CategoryPrompt, CategoryContext, CategoryModel, CategoryConfig} {
		parsed, err := ParseCategory(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}

	_, err := ParseCategory("widget")
	assert.Error(t, err)
}

func TestIdentityTransform(t *testing.T) {
	out, err := IdentityTransform().Apply(context.Background(), "unchanged", Context{ComponentType: "card"})
	require.NoError(t, err)
	assert.Equal(t, "unchanged", out)
}
