package core

import "context"

// TokenInfo tracks token usage reported by a generation call.
type TokenInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// LLMResponse is the result of one generation call.
type LLMResponse struct {
	Content  string
	Usage    *TokenInfo
	Metadata map[string]interface{}
}

// GenerateOptions configures a single generation call.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
}

// GenerateOption mutates GenerateOptions.
type GenerateOption func(*GenerateOptions)

// NewGenerateOptions returns options with reasonable defaults.
func NewGenerateOptions() *GenerateOptions {
	return &GenerateOptions{
		MaxTokens:   4096,
		Temperature: 0.5,
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = t
	}
}

// LLM is the generation collaborator. Callers must treat a failed call or an
// empty/too-short completion as "no-op": keep the original input unchanged.
type LLM interface {
	Generate(ctx context.Context, prompt string, options ...GenerateOption) (*LLMResponse, error)

	// ModelID identifies the underlying model for logging.
	ModelID() string
}
