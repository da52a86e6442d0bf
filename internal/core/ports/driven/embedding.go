package driven

import "context"

// EmbeddingService converts text into fixed-dimension vectors.
//
// Implementations may include:
//   - Mistral (mistral-embed)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//
// Calls may fail with a transient condition (timeout, quota); callers wrap
// those as domain.TransientError and retry with bounded backoff.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g. 1024, 1536).
	// All chunks stored in one vector store share this dimension.
	Dimensions() int

	// ModelName returns the embedding model identifier. It is part of
	// the cache key, so a model change naturally invalidates the cache.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
