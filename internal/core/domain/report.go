package domain

import "time"

// IndexingReport summarises one indexing pipeline run for a document.
// A report with ChunksFailed > 0 means the document is partially indexed;
// re-running the pipeline completes the missing chunks.
type IndexingReport struct {
	// RunID identifies this pipeline run.
	RunID string

	DocumentID string

	// ChunksCreated counts chunks embedded via the external service and
	// stored during this run.
	ChunksCreated int

	// ChunksReused counts chunks whose vector came from the embedding
	// cache (no paid call).
	ChunksReused int

	// ChunksFailed counts chunks that could not be embedded after
	// retries. Their indexes are listed in FailedIndexes.
	ChunksFailed int

	// FailedIndexes are the chunk indexes skipped after retry exhaustion.
	FailedIndexes []int

	// ChunksRemoved counts previously stored chunks deleted because the
	// document shrank.
	ChunksRemoved int

	Duration time.Duration
}

// Partial reports whether the document is only partially indexed.
func (r IndexingReport) Partial() bool {
	return r.ChunksFailed > 0
}
