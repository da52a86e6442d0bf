package chunking

import (
	"github.com/cisbeo/scorpius-rag/internal/core/domain"
)

// Hybrid runs the structural strategy first, then recursively splits any
// chunk still exceeding ChunkSize with the semantic strategy.
type Hybrid struct {
	cfg Config
}

// Strategy implements driven.Chunker.
func (h *Hybrid) Strategy() domain.ChunkingStrategy { return domain.StrategyHybrid }

// Chunk implements driven.Chunker.
func (h *Hybrid) Chunk(text string, hints *domain.Structure) ([]domain.ChunkDraft, error) {
	structural := &Structural{cfg: h.cfg}
	sem := &Semantic{cfg: h.cfg}

	drafts, err := structural.Chunk(text, hints)
	if err != nil {
		return nil, err
	}

	var refined []domain.ChunkDraft
	for _, draft := range drafts {
		if len([]rune(draft.Text)) <= h.cfg.ChunkSize {
			refined = append(refined, draft)
			continue
		}
		parts := sem.split(draft.Text)
		for i := range parts {
			parts[i].SectionType = draft.SectionType
			parts[i].PageNumber = draft.PageNumber
			parts[i].DocumentType = draft.DocumentType
		}
		refined = append(refined, parts...)
	}

	return reindex(refined), nil
}
