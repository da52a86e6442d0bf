package driven

import (
	"context"

	"github.com/cisbeo/scorpius-rag/internal/core/domain"
)

// VectorStore persists chunk records and answers nearest-neighbour queries
// filtered by metadata.
//
// Concurrency contract: Upsert is safe to call concurrently for chunks of
// different documents; within one document writes are sequential (one
// indexing job per document at a time, enforced by the pipeline).
type VectorStore interface {
	// Upsert inserts or replaces a chunk by its id.
	Upsert(ctx context.Context, chunk domain.Chunk) error

	// DeleteByDocument removes all chunks owned by a document.
	DeleteByDocument(ctx context.Context, documentID string) error

	// DeleteChunks removes specific chunks of a document. The pipeline
	// uses it to drop chunk ids that no longer appear after re-indexing
	// a document that shrank.
	DeleteChunks(ctx context.Context, documentID string, chunkIDs []string) error

	// ListChunkIDs returns the ids of all stored chunks of a document.
	ListChunkIDs(ctx context.Context, documentID string) ([]string, error)

	// Search returns up to topK chunks whose normalised similarity to
	// the query vector is above threshold, restricted to the filter
	// scope, ordered by descending score with ties broken by ascending
	// chunk id. An empty or unknown scope yields an empty result, not
	// an error.
	Search(ctx context.Context, vector []float32, topK int, threshold float64, filter domain.Filter) ([]domain.RetrievedChunk, error)

	// SearchText returns chunks whose text contains the given term,
	// case-insensitively, restricted to the filter scope. Used by the
	// router's hybrid mode to catch exact identifiers that embeddings
	// miss.
	SearchText(ctx context.Context, term string, filter domain.Filter, limit int) ([]domain.Chunk, error)

	// Close releases resources.
	Close() error
}
