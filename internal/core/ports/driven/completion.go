package driven

import "context"

// CompletionService produces free-text completions from prompts. It is an
// optional capability: when nil, query engines return the raw ranked chunk
// list without a synthesised answer rather than failing.
type CompletionService interface {
	// Complete generates text from a prompt.
	Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error)

	// ModelName returns the completion model identifier.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompleteOptions configures text generation behaviour.
type CompleteOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64

	// SystemPrompt is prepended as a system instruction when non-empty.
	SystemPrompt string
}
