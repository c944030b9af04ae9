package core

import (
	"context"
	"fmt"
)

// StrategyCategory is a tagged variant describing what a strategy operates
// on. Dispatch on categories is always explicit; never match on names.
type StrategyCategory int

const (
	// CategoryPrompt strategies rewrite the prompt text itself.
	CategoryPrompt StrategyCategory = iota
	// CategoryContext strategies enrich the surrounding context.
	CategoryContext
	// CategoryModel strategies adjust how the generation model is used.
	CategoryModel
	// CategoryConfig strategies tune generation parameters.
	CategoryConfig
)

// String provides the canonical lowercase tag for a category.
func (c StrategyCategory) String() string {
	switch c {
	case CategoryPrompt:
		return "prompt"
	case CategoryContext:
		return "context"
	case CategoryModel:
		return "model"
	case CategoryConfig:
		return "config"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// ParseCategory converts a tag back into a StrategyCategory.
func ParseCategory(s string) (StrategyCategory, error) {
	switch s {
	case "prompt":
		return CategoryPrompt, nil
	case "context":
		return CategoryContext, nil
	case "model":
		return CategoryModel, nil
	case "config":
		return CategoryConfig, nil
	default:
		return CategoryPrompt, fmt.Errorf("unknown strategy category: %q", s)
	}
}

// Transform is the capability a strategy carries: rewrite an input under a
// given context. Implementations may suspend on the generation collaborator
// and must return the original input unchanged when they cannot help.
type Transform interface {
	Apply(ctx context.Context, input string, tc Context) (string, error)
}

// TransformFunc adapts a plain function to the Transform interface.
type TransformFunc func(ctx context.Context, input string, tc Context) (string, error)

// Apply implements Transform.
func (f TransformFunc) Apply(ctx context.Context, input string, tc Context) (string, error) {
	return f(ctx, input, tc)
}

// IdentityTransform returns its input unchanged. It is the fallback for
// strategies whose real transform cannot run safely.
func IdentityTransform() Transform {
	return TransformFunc(func(_ context.Context, input string, _ Context) (string, error) {
		return input, nil
	})
}

// StrategyDefinition is a named, reusable adaptation strategy. Names are
// globally unique within a registry.
type StrategyDefinition struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    StrategyCategory `json:"category"`
	Transform   Transform        `json:"-"`

	// Discovered marks strategies synthesized at runtime rather than
	// registered at startup.
	Discovered bool `json:"discovered,omitempty"`
}
