package openai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/cisbeo/scorpius-rag/internal/core/ports/driven"
)

var _ driven.CompletionService = (*CompletionService)(nil)

// DefaultCompletionModel is the chat model used when none is configured.
const DefaultCompletionModel = "gpt-4o-mini"

// CompletionConfig holds configuration for the OpenAI completion service.
type CompletionConfig struct {
	// APIKey authenticates against the OpenAI API. Required.
	APIKey string

	// BaseURL overrides the API endpoint. Empty means the official one.
	BaseURL string

	// Model is the chat model (default: gpt-4o-mini).
	Model string
}

// CompletionService generates text using the OpenAI chat API.
type CompletionService struct {
	client *goopenai.Client
	model  string
}

// NewCompletionService creates a new OpenAI completion service.
func NewCompletionService(cfg CompletionConfig) (*CompletionService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultCompletionModel
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &CompletionService{
		client: goopenai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}, nil
}

// Complete generates text from a prompt.
func (s *CompletionService) Complete(ctx context.Context, prompt string, opts driven.CompleteOptions) (string, error) {
	var messages []goopenai.ChatCompletionMessage
	if opts.SystemPrompt != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: opts.SystemPrompt,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := s.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: float32(opts.Temperature),
	})
	if err != nil {
		return "", classify("openai complete", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai complete: empty response")
	}

	return resp.Choices[0].Message.Content, nil
}

// ModelName returns the completion model identifier.
func (s *CompletionService) ModelName() string {
	return s.model
}

// Ping validates connectivity and credentials by listing models.
func (s *CompletionService) Ping(ctx context.Context) error {
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *CompletionService) Close() error {
	return nil
}
