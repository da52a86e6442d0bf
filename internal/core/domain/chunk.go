package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ChunkingStrategy selects how a document is split into chunks.
type ChunkingStrategy string

// Chunking strategies. The set is closed; Hybrid composes Structural and
// Semantic rather than being an independent algorithm.
const (
	StrategyFixedSize  ChunkingStrategy = "fixed_size"
	StrategySemantic   ChunkingStrategy = "semantic"
	StrategyStructural ChunkingStrategy = "structural"
	StrategyHybrid     ChunkingStrategy = "hybrid"
)

// Valid reports whether the strategy is one of the known variants.
func (s ChunkingStrategy) Valid() bool {
	switch s {
	case StrategyFixedSize, StrategySemantic, StrategyStructural, StrategyHybrid:
		return true
	}
	return false
}

// Chunk is the atomic retrievable unit: a bounded segment of a document's
// text together with its embedding and position metadata.
type Chunk struct {
	// ID is deterministically derived from (DocumentID, Index) and is
	// therefore stable across re-indexing runs.
	ID string

	// DocumentID references the externally-owned document.
	DocumentID string

	// Text is the chunk content. Never empty for a stored chunk.
	Text string

	// Embedding is the vector representation. All chunks in one store
	// share a single dimension, fixed by the embedding model.
	Embedding []float32

	// DocumentType is a caller-supplied document-family tag (e.g. CCTP).
	DocumentType string

	// SectionType is a structural tag (article, clause, table, ...).
	SectionType string

	// PageNumber is the source page, when known. Zero means unknown.
	PageNumber int

	// Index is the 0-based position within the document's chunk sequence.
	// Indexes for one document are contiguous and gap-free.
	Index int

	// ChunkSize and OverlapSize describe how the chunk was produced,
	// in characters.
	ChunkSize   int
	OverlapSize int

	// ConfidenceScore is reserved for future quality signals, in [0,1].
	ConfidenceScore float64
}

// ChunkDraft is a chunk before embedding: text plus position metadata as
// produced by a chunking strategy.
type ChunkDraft struct {
	Text         string
	Index        int
	DocumentType string
	SectionType  string
	PageNumber   int
	OverlapSize  int
}

// DocumentInput is what the external ingestion layer hands to the indexing
// pipeline: extracted text plus optional structural hints.
type DocumentInput struct {
	DocumentID   string
	Text         string
	DocumentType string
	Hints        *Structure
}

// Structure is an optional hierarchical annotation of a document
// (headings, articles, sections, tables) supplied by the extraction step.
type Structure struct {
	Sections []Section
}

// Section is one structural node. A node with children is a container;
// a node with text is a leaf that can become a chunk.
type Section struct {
	// Type is the structural node type: article, clause, section, table...
	Type string

	// Title is the heading text, when present.
	Title string

	// Text is the leaf content.
	Text string

	// Page is the source page number, zero when unknown.
	Page int

	Children []Section
}

// NewChunkID derives the stable chunk identifier from the owning document
// and the chunk position. Identical inputs always yield the same id.
func NewChunkID(documentID string, index int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", documentID, index)))
	return hex.EncodeToString(sum[:16])
}

// NormaliseText trims and collapses whitespace so that cache keys are
// insensitive to formatting noise in extracted text.
func NormaliseText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// CacheKey derives the content-addressed embedding cache key for
// (text, modelID). Whitespace differences in the text do not change
// the key; a different model always does.
func CacheKey(text, modelID string) string {
	sum := sha256.Sum256([]byte(modelID + ":" + NormaliseText(text)))
	return hex.EncodeToString(sum[:])
}
