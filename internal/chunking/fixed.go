package chunking

import (
	"strings"

	"github.com/cisbeo/scorpius-rag/internal/core/domain"
)

// FixedSize slides a window of ChunkSize characters with OverlapSize
// characters of overlap across the text. The window is measured in runes so
// multi-byte characters are never split.
type FixedSize struct {
	cfg Config
}

// Strategy implements driven.Chunker.
func (f *FixedSize) Strategy() domain.ChunkingStrategy { return domain.StrategyFixedSize }

// Chunk implements driven.Chunker. Structural hints are ignored by this
// strategy. The last chunk may be shorter than ChunkSize.
func (f *FixedSize) Chunk(text string, _ *domain.Structure) ([]domain.ChunkDraft, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	total := len(runes)
	if total <= f.cfg.ChunkSize {
		return []domain.ChunkDraft{{Text: text, Index: 0}}, nil
	}

	step := f.cfg.ChunkSize - f.cfg.OverlapSize
	drafts := make([]domain.ChunkDraft, 0, total/step+1)

	for start := 0; start < total; start += step {
		end := start + f.cfg.ChunkSize
		if end > total {
			end = total
		}
		overlap := 0
		if start > 0 {
			overlap = f.cfg.OverlapSize
		}
		drafts = append(drafts, domain.ChunkDraft{
			Text:        string(runes[start:end]),
			Index:       len(drafts),
			OverlapSize: overlap,
		})
	}

	return drafts, nil
}
