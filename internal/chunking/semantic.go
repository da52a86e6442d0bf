package chunking

import (
	"strings"

	"github.com/cisbeo/scorpius-rag/internal/core/domain"
)

// Semantic splits at sentence and paragraph boundaries, greedily packing
// sentences into a chunk until adding the next one would exceed ChunkSize.
// Each new chunk begins with the last OverlapSize characters of the
// previous chunk's tail, preserving local context across the split.
type Semantic struct {
	cfg Config
}

// Strategy implements driven.Chunker.
func (s *Semantic) Strategy() domain.ChunkingStrategy { return domain.StrategySemantic }

// Chunk implements driven.Chunker. Structural hints are ignored by this
// strategy.
func (s *Semantic) Chunk(text string, _ *domain.Structure) ([]domain.ChunkDraft, error) {
	drafts := s.split(text)
	return reindex(drafts), nil
}

// split performs the packing without assigning final indexes, so that the
// structural and hybrid strategies can reuse it on section fragments.
func (s *Semantic) split(text string) []domain.ChunkDraft {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var sentences []string
	for _, para := range splitParagraphs(text) {
		for _, sent := range splitSentences(para) {
			// A sentence longer than a whole chunk is cut hard so
			// packing always makes progress.
			sentences = append(sentences, hardSplit(sent, s.cfg.ChunkSize)...)
		}
	}
	if len(sentences) == 0 {
		return nil
	}

	var (
		drafts  []domain.ChunkDraft
		current strings.Builder
		overlap int
		packed  bool // at least one sentence since the last flush
	)

	for _, sent := range sentences {
		sentLen := len([]rune(sent))
		size := len([]rune(current.String()))
		if packed && size+1+sentLen > s.cfg.ChunkSize {
			// Close the chunk and seed the next one with its tail. The
			// seed counts against the new chunk's budget, so it shrinks
			// when the sentence about to be placed would not fit after it.
			chunkText := current.String()
			drafts = append(drafts, domain.ChunkDraft{
				Text:        chunkText,
				OverlapSize: overlap,
			})
			seed := s.cfg.OverlapSize
			if room := s.cfg.ChunkSize - sentLen - 1; seed > room {
				seed = room
			}
			if seed < 0 {
				seed = 0
			}
			prefix := tail(chunkText, seed)
			current.Reset()
			current.WriteString(prefix)
			overlap = len([]rune(prefix))
			packed = false
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
		packed = true
	}

	if packed {
		drafts = append(drafts, domain.ChunkDraft{
			Text:        current.String(),
			OverlapSize: overlap,
		})
	}

	return drafts
}
