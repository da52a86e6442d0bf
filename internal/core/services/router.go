package services

import (
	"context"
	"regexp"
	"strings"

	"github.com/cisbeo/scorpius-rag/internal/core/domain"
	"github.com/cisbeo/scorpius-rag/internal/core/ports/driven"
	"github.com/cisbeo/scorpius-rag/internal/core/ports/driving"
	"github.com/cisbeo/scorpius-rag/internal/logger"
)

// Ensure RouterEngine implements the interface.
var _ driving.QueryEngine = (*RouterEngine)(nil)

// complexQueryLength is the rune count past which a query is treated as
// complex.
const complexQueryLength = 150

// complexMarkers are French phrasings that signal a multi-part question.
var complexMarkers = []string{
	" et ",
	" ainsi que ",
	"comparer",
	"comparaison",
	"différence",
	"liste",
	"lister",
	"énumérer",
	"tous les",
	"toutes les",
	"chaque",
	"plusieurs",
	"quels sont",
	"quelles sont",
}

// Identifier patterns that embeddings tend to miss. Exact references to
// articles, dates, amounts or document families are better served by a
// lexical pass over the stored text.
var identifierPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\barticle\s+[0-9]+(?:\.[0-9]+)*\b`),
	regexp.MustCompile(`\b[0-9]{1,2}/[0-9]{1,2}/[0-9]{2,4}\b`),
	regexp.MustCompile(`(?i)\b[0-9][0-9\s.,]*(?:euros?\b|€)`),
	regexp.MustCompile(`\b(?:CCTP|CCAP|CCAG|RC|BPU|DQE|DPGF|AE)\b`),
}

// RouterEngine classifies a query as simple or complex with cheap
// heuristics, delegates to the matching engine, and supplements the
// vector hits with exact lexical matches when the query contains
// identifiers such as article numbers or document codes.
type RouterEngine struct {
	simple      *SimpleEngine
	subQuestion *SubQuestionEngine
	store       driven.VectorStore
}

// NewRouterEngine creates a routing engine over both concrete engines.
func NewRouterEngine(simple *SimpleEngine, subQuestion *SubQuestionEngine, store driven.VectorStore) *RouterEngine {
	return &RouterEngine{
		simple:      simple,
		subQuestion: subQuestion,
		store:       store,
	}
}

// Query implements driving.QueryEngine.
func (e *RouterEngine) Query(ctx context.Context, query string, opts domain.QueryOptions) (*domain.QueryResult, error) {
	identifiers := extractIdentifiers(query)

	var (
		result *domain.QueryResult
		err    error
	)
	if isComplexQuery(query) {
		logger.Debug("Routing to sub-question engine: %q", trimmedPreview(query))
		result, err = e.subQuestion.Query(ctx, query, opts)
	} else {
		logger.Debug("Routing to simple engine: %q", trimmedPreview(query))
		result, err = e.simple.Query(ctx, query, opts)
	}
	if err != nil {
		return nil, err
	}

	if len(identifiers) > 0 {
		e.mergeLexical(ctx, result, identifiers, opts)
	}
	return result, nil
}

// mergeLexical adds exact text matches for the detected identifiers to
// the result at a fixed score, skipping chunks the vector search already
// found, and re-ranks. Lexical hits bypass the similarity threshold. A
// failing lexical pass degrades to vector-only results.
func (e *RouterEngine) mergeLexical(ctx context.Context, result *domain.QueryResult, identifiers []string, opts domain.QueryOptions) {
	limit := opts.TopK
	if limit <= 0 {
		limit = domain.DefaultTopK
	}

	seen := make(map[string]struct{}, len(result.Chunks))
	for _, rc := range result.Chunks {
		seen[rc.Chunk.ID] = struct{}{}
	}

	var added int
	for _, id := range identifiers {
		chunks, err := e.store.SearchText(ctx, id, opts.Filter, limit)
		if err != nil {
			logger.Warn("Lexical search for %q failed: %v", id, err)
			continue
		}
		for _, c := range chunks {
			if _, ok := seen[c.ID]; ok {
				continue
			}
			seen[c.ID] = struct{}{}
			result.Chunks = append(result.Chunks, domain.RetrievedChunk{
				Chunk:   c,
				Score:   domain.LexicalScore,
				Lexical: true,
			})
			added++
		}
	}

	if added > 0 {
		domain.SortRetrieved(result.Chunks)
		result.Chunks = capRetrieved(result.Chunks, limit)
		logger.Debug("Hybrid mode added %d lexical chunk(s)", added)
	}
}

// capRetrieved truncates a ranked merge to the requested size. Lexical
// hits always survive the cut; vector hits fill the remaining slots in
// rank order, so the result only exceeds the limit when the lexical hits
// alone do.
func capRetrieved(chunks []domain.RetrievedChunk, limit int) []domain.RetrievedChunk {
	if len(chunks) <= limit {
		return chunks
	}

	var lexical int
	for _, rc := range chunks {
		if rc.Lexical {
			lexical++
		}
	}
	budget := limit - lexical

	kept := chunks[:0]
	for _, rc := range chunks {
		if rc.Lexical {
			kept = append(kept, rc)
			continue
		}
		if budget > 0 {
			kept = append(kept, rc)
			budget--
		}
	}
	return kept
}

// isComplexQuery reports whether the query warrants decomposition.
func isComplexQuery(query string) bool {
	if len([]rune(query)) > complexQueryLength {
		return true
	}
	if strings.Count(query, "?") > 1 {
		return true
	}
	lower := strings.ToLower(query)
	for _, marker := range complexMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// extractIdentifiers returns the exact references found in the query, in
// order of first appearance, deduplicated case-insensitively.
func extractIdentifiers(query string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, pattern := range identifierPatterns {
		for _, match := range pattern.FindAllString(query, -1) {
			key := strings.ToLower(strings.TrimSpace(match))
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, strings.TrimSpace(match))
		}
	}
	return out
}
