package driven

import "github.com/cisbeo/scorpius-rag/internal/core/domain"

// Chunker deterministically converts raw document text, optionally with
// structural hints, into an ordered sequence of chunk drafts. Each strategy
// is a pure function of (text, hints, configuration); malformed hints
// degrade gracefully rather than failing the document.
type Chunker interface {
	// Chunk splits text into drafts with contiguous, zero-based indexes.
	// Empty or whitespace-only input produces zero drafts and no error.
	Chunk(text string, hints *domain.Structure) ([]domain.ChunkDraft, error)

	// Strategy names the variant implemented.
	Strategy() domain.ChunkingStrategy
}
