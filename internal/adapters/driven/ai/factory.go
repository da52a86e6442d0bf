// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/cisbeo/scorpius-rag/internal/adapters/driven/ai/mistral"
	"github.com/cisbeo/scorpius-rag/internal/adapters/driven/ai/openai"
	"github.com/cisbeo/scorpius-rag/internal/core/domain"
	"github.com/cisbeo/scorpius-rag/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateEmbeddingService creates the embedding service named by the
// settings. Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderMistral:
		return mistral.NewEmbeddingService(mistral.Config{
			APIKey:            settings.APIKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Dimensions:        domain.EmbeddingDimensions()[settings.Model],
			RequestsPerSecond: settings.RequestsPerSecond,
		}), nil

	case domain.AIProviderOpenAI:
		return openai.NewEmbeddingService(openai.Config{
			APIKey:            settings.APIKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Dimensions:        domain.EmbeddingDimensions()[settings.Model],
			RequestsPerSecond: settings.RequestsPerSecond,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateCompletionService creates the completion service named by the
// settings. Returns nil if the provider is not configured: answer
// synthesis is optional and queries degrade to ranked chunks.
func CreateCompletionService(settings *domain.CompletionSettings) (driven.CompletionService, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderMistral:
		return mistral.NewCompletionService(mistral.CompletionConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openai.NewCompletionService(openai.CompletionConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported completion provider: %s", settings.Provider)
	}
}

// CreateAndValidateEmbeddingService creates an embedding service and
// validates connectivity before handing it to the pipeline.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateCompletionService creates a completion service and
// validates connectivity. A nil result means answer synthesis is off.
func CreateAndValidateCompletionService(settings *domain.CompletionSettings) (driven.CompletionService, error) {
	svc, err := CreateCompletionService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCompletionUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrCompletionUnavailable, err)
	}

	return svc, nil
}
