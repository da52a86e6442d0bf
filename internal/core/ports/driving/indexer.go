package driving

import (
	"context"

	"github.com/cisbeo/scorpius-rag/internal/core/domain"
)

// Indexer materialises a document's chunks into the vector store,
// idempotently. Re-running on unchanged text makes zero new embedding
// calls and leaves the store content-identical.
type Indexer interface {
	// IndexDocument runs the full pipeline for one document. When some
	// chunks fail after retries the report counts them and the returned
	// error is a *domain.PartialIndexingError; the run is repeatable.
	IndexDocument(ctx context.Context, input domain.DocumentInput) (domain.IndexingReport, error)

	// DeleteDocument removes a document's chunks and cache entries
	// (cascading deletion owned by the document).
	DeleteDocument(ctx context.Context, documentID string) error
}
