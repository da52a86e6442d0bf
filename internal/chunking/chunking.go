// Package chunking splits raw document text into ordered, overlapping
// chunk drafts. Four strategies are available: fixed-size, semantic,
// structural and hybrid. Each is deterministic and pure; the indexing
// pipeline derives chunk ids and embeddings afterwards.
package chunking

import (
	"fmt"

	"github.com/cisbeo/scorpius-rag/internal/core/domain"
	"github.com/cisbeo/scorpius-rag/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultOverlapSize is the default number of overlapping characters.
const DefaultOverlapSize = 200

// Config holds the sizing parameters shared by all strategies.
type Config struct {
	// ChunkSize is the target chunk length in characters (runes).
	ChunkSize int

	// OverlapSize is the number of trailing characters repeated at the
	// start of the next chunk. Must be strictly less than ChunkSize.
	OverlapSize int
}

// DefaultConfig returns the reference sizing parameters.
func DefaultConfig() Config {
	return Config{ChunkSize: DefaultChunkSize, OverlapSize: DefaultOverlapSize}
}

// Validate rejects impossible sizing parameters before any work starts.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d",
			domain.ErrConfiguration, c.ChunkSize)
	}
	if c.OverlapSize < 0 {
		return fmt.Errorf("%w: overlap_size must not be negative, got %d",
			domain.ErrConfiguration, c.OverlapSize)
	}
	if c.OverlapSize >= c.ChunkSize {
		return fmt.Errorf("%w: overlap_size (%d) must be strictly less than chunk_size (%d)",
			domain.ErrConfiguration, c.OverlapSize, c.ChunkSize)
	}
	return nil
}

// New returns the chunker implementing the given strategy.
func New(strategy domain.ChunkingStrategy, cfg Config) (driven.Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch strategy {
	case domain.StrategyFixedSize:
		return &FixedSize{cfg: cfg}, nil
	case domain.StrategySemantic:
		return &Semantic{cfg: cfg}, nil
	case domain.StrategyStructural:
		return &Structural{cfg: cfg}, nil
	case domain.StrategyHybrid:
		return &Hybrid{cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("%w: unknown chunking strategy %q",
			domain.ErrConfiguration, strategy)
	}
}

// reindex renumbers drafts so indexes are contiguous and zero-based in
// source order, whatever splits and fallbacks happened along the way.
func reindex(drafts []domain.ChunkDraft) []domain.ChunkDraft {
	for i := range drafts {
		drafts[i].Index = i
	}
	return drafts
}
