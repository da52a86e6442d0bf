package domain

import (
	"fmt"
	"math"
	"sort"
)

// LexicalScore is the fixed score assigned to exact keyword matches when
// the router merges lexical hits into a vector result set. It ranks them
// above almost all semantic hits without claiming a perfect match.
const LexicalScore = 0.95

// CosineSimilarity returns the cosine of the angle between a and b,
// in [-1, 1]. A zero vector has similarity 0 with everything.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// NormalisedSimilarity maps a cosine similarity onto the [0, 1] scale
// used for thresholds and ranking: (1 + cosine) / 2.
func NormalisedSimilarity(cosine float64) float64 {
	return (1 + cosine) / 2
}

// SortRetrieved orders chunks by descending score, ties broken by
// ascending chunk id so equal-score results are stable across runs.
func SortRetrieved(chunks []RetrievedChunk) {
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		return chunks[i].Chunk.ID < chunks[j].Chunk.ID
	})
}

// Matches reports whether a chunk falls inside the filter scope.
// Zero-value fields do not restrict.
func (f Filter) Matches(c Chunk) bool {
	if f.DocumentID != "" && c.DocumentID != f.DocumentID {
		return false
	}
	if f.DocumentType != "" && c.DocumentType != f.DocumentType {
		return false
	}
	if f.SectionType != "" && c.SectionType != f.SectionType {
		return false
	}
	return true
}
