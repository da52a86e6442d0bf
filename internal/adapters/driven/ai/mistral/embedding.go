// Package mistral provides embedding and completion adapters for the
// Mistral platform API.
package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/cisbeo/scorpius-rag/internal/core/domain"
	"github.com/cisbeo/scorpius-rag/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL        = "https://api.mistral.ai"
	DefaultEmbeddingModel = "mistral-embed"
	DefaultTimeout        = 30 * time.Second
	DefaultDimensions     = 1024 // mistral-embed
)

// Config holds configuration for the Mistral embedding service.
type Config struct {
	// APIKey authenticates against the Mistral API.
	APIKey string

	// BaseURL is the API base URL (default: https://api.mistral.ai).
	BaseURL string

	// Model is the embedding model to use (default: mistral-embed).
	Model string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration

	// Dimensions is the embedding vector size (model-dependent).
	Dimensions int

	// RequestsPerSecond caps the call rate. Zero disables limiting.
	RequestsPerSecond float64
}

// EmbeddingService generates embeddings using the Mistral API.
type EmbeddingService struct {
	client     *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
	model      string
	dimensions int
}

// embedRequest is the Mistral embeddings API request format.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse is the Mistral embeddings API response format.
type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// NewEmbeddingService creates a new Mistral embedding service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultEmbeddingModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &EmbeddingService{
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one API call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	jsonBody, err := json.Marshal(embedRequest{Model: s.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/v1/embeddings",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		// Network failures and timeouts are worth retrying.
		return nil, domain.Transient("mistral embed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("mistral embed", resp)
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(embedResp.Data) != len(texts) {
		return nil, fmt.Errorf("mistral embed: got %d embeddings for %d inputs",
			len(embedResp.Data), len(texts))
	}

	// The API may reorder entries; Index restores input order.
	vectors := make([][]float32, len(texts))
	for _, item := range embedResp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("mistral embed: index %d out of range", item.Index)
		}
		vec := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vec[i] = float32(v)
		}
		vectors[item.Index] = vec
	}

	return vectors, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by listing models. This checks
// connectivity and credentials without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return ping(ctx, s.client, s.baseURL, s.apiKey)
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

// ping hits the models endpoint shared by both Mistral adapters.
func ping(ctx context.Context, client *http.Client, baseURL, apiKey string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("mistral: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("mistral: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("mistral: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("mistral: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// statusError turns a non-200 response into an error, marking rate limits
// and server-side failures as transient.
func statusError(op string, resp *http.Response) error {
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		body = []byte("failed to read response")
	}
	err := fmt.Errorf("%s: API returned status %d: %s", op, resp.StatusCode, string(body))

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return domain.Transient(op, err)
	}
	return err
}
