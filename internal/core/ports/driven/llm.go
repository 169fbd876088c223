package driven

import "context"

// GenerationService produces text from a prompt. Used by the answer
// engine to ground generation in retrieved passages.
type GenerationService interface {
	// Generate produces a completion for the prompt. Transient failures
	// (timeout, rate limit) are retried with exponential backoff up to a
	// bounded count; exhaustion maps to domain.ErrGenerationFailed.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the generation model tag.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64
}
