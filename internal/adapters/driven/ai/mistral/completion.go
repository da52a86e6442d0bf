package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cisbeo/scorpius-rag/internal/core/domain"
	"github.com/cisbeo/scorpius-rag/internal/core/ports/driven"
)

var _ driven.CompletionService = (*CompletionService)(nil)

// DefaultCompletionModel is the completion model used when none is set.
const DefaultCompletionModel = "mistral-small-latest"

// CompletionConfig holds configuration for the Mistral completion service.
type CompletionConfig struct {
	// APIKey authenticates against the Mistral API.
	APIKey string

	// BaseURL is the API base URL (default: https://api.mistral.ai).
	BaseURL string

	// Model is the chat model to use (default: mistral-small-latest).
	Model string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// CompletionService generates text using the Mistral chat API.
type CompletionService struct {
	client  *http.Client
	apiKey  string
	baseURL string
	model   string
}

// chatMessage is one message of a chat completion exchange.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the Mistral chat completions API request format.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

// chatResponse is the Mistral chat completions API response format.
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewCompletionService creates a new Mistral completion service.
func NewCompletionService(cfg CompletionConfig) *CompletionService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultCompletionModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &CompletionService{
		client:  &http.Client{Timeout: cfg.Timeout},
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// Complete generates text from a prompt.
func (s *CompletionService) Complete(ctx context.Context, prompt string, opts driven.CompleteOptions) (string, error) {
	var messages []chatMessage
	if opts.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: opts.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	jsonBody, err := json.Marshal(chatRequest{
		Model:       s.model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/v1/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", domain.Transient("mistral complete", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError("mistral complete", resp)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("mistral complete: empty response")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// ModelName returns the completion model identifier.
func (s *CompletionService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable.
func (s *CompletionService) Ping(ctx context.Context) error {
	return ping(ctx, s.client, s.baseURL, s.apiKey)
}

// Close releases resources.
func (s *CompletionService) Close() error {
	return nil
}
