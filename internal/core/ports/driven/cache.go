package driven

import "context"

// EmbeddingCache is a content-addressed store mapping a hash of
// (normalised chunk text, embedding model id) to a previously computed
// vector, with a time-to-live.
//
// The cache is an optimisation only: a cache outage degrades to
// always-miss, never to failure, so implementations report infrastructure
// problems as misses and correctness never depends on cache availability.
type EmbeddingCache interface {
	// Get returns the cached vector for (text, modelID) when present and
	// not expired. The boolean reports a hit.
	Get(ctx context.Context, text, modelID string) ([]float32, bool, error)

	// Put stores a vector keyed by (text, modelID) with the configured
	// TTL, tagged with the owning document so InvalidateDocument works.
	Put(ctx context.Context, documentID, text, modelID string, vector []float32) error

	// InvalidateDocument removes entries associated with a document.
	InvalidateDocument(ctx context.Context, documentID string) error

	// InvalidateAll flushes everything. Used when a model version changes.
	InvalidateAll(ctx context.Context) error

	// Close releases resources.
	Close() error
}
