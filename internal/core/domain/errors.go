package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConfiguration indicates invalid chunking or pipeline parameters,
	// e.g. overlap >= chunk size. Validated eagerly, never retried.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrStoreUnavailable indicates the vector store or cache backend is
	// unreachable. Surfaced to the caller; the job aborts cleanly since
	// writes are per-chunk and idempotent.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Indexing and vector search are impossible without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrCompletionUnavailable indicates the completion service is not
	// configured. Engines degrade to returning raw ranked chunks.
	ErrCompletionUnavailable = errors.New("completion service unavailable")

	// ErrDimensionMismatch indicates a vector whose dimension differs
	// from the store's fixed dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// TransientError wraps a failure of an external embedding or completion
// call that is worth retrying: timeouts, quota errors, 5xx responses.
type TransientError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient failure: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *TransientError) Unwrap() error { return e.Err }

// Transient marks err as a retryable external-service failure.
func Transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err (or anything it wraps) is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// PartialIndexingError reports that some chunks of a document could not be
// embedded after retries. The document is marked partially indexed and the
// job is safely re-runnable to complete the missing chunks.
type PartialIndexingError struct {
	DocumentID    string
	FailedIndexes []int
}

// Error implements the error interface.
func (e *PartialIndexingError) Error() string {
	return fmt.Sprintf("document %s partially indexed: %d chunk(s) failed",
		e.DocumentID, len(e.FailedIndexes))
}
