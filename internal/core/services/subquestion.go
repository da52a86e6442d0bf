package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cisbeo/scorpius-rag/internal/core/domain"
	"github.com/cisbeo/scorpius-rag/internal/core/ports/driven"
	"github.com/cisbeo/scorpius-rag/internal/core/ports/driving"
	"github.com/cisbeo/scorpius-rag/internal/logger"
)

// Ensure SubQuestionEngine implements the interface.
var _ driving.QueryEngine = (*SubQuestionEngine)(nil)

// MaxSubQuestions caps the decomposition of a complex query.
const MaxSubQuestions = 5

// SubQuestionEngine decomposes a complex query into atomic sub-questions,
// answers each through the simple engine in parallel, and synthesises one
// final answer. Decomposition yielding nothing, or every sub-question
// failing, falls back to the simple engine on the original query.
type SubQuestionEngine struct {
	simple     *SimpleEngine
	completion driven.CompletionService
}

// NewSubQuestionEngine creates a sub-question engine on top of a simple
// engine. completion may be nil, in which case every query falls back.
func NewSubQuestionEngine(simple *SimpleEngine, completion driven.CompletionService) *SubQuestionEngine {
	return &SubQuestionEngine{
		simple:     simple,
		completion: completion,
	}
}

// Query implements driving.QueryEngine.
func (e *SubQuestionEngine) Query(ctx context.Context, query string, opts domain.QueryOptions) (*domain.QueryResult, error) {
	if e.completion == nil {
		logger.Debug("No completion service, falling back to simple engine")
		return e.simple.Query(ctx, query, opts)
	}

	subQuestions := e.decompose(ctx, query)
	if len(subQuestions) == 0 {
		logger.Warn("No sub-questions generated, falling back to simple engine")
		return e.simple.Query(ctx, query, opts)
	}
	logger.Info("Decomposed into %d sub-question(s)", len(subQuestions))

	subResults := e.fanOut(ctx, subQuestions, opts)

	// Keep only the sub-questions that produced an answer or chunks.
	var (
		answered   []string
		subAnswers []string
		merged     []domain.RetrievedChunk
		seen       = make(map[string]struct{})
	)
	for i, sub := range subResults {
		if sub == nil || (sub.Answer == "" && len(sub.Chunks) == 0) {
			continue
		}
		answered = append(answered, subQuestions[i])
		subAnswers = append(subAnswers, subAnswer(sub))
		for _, rc := range sub.Chunks {
			if _, ok := seen[rc.Chunk.ID]; ok {
				continue
			}
			seen[rc.Chunk.ID] = struct{}{}
			merged = append(merged, rc)
		}
	}

	if len(answered) == 0 {
		logger.Warn("All sub-questions failed, falling back to simple engine")
		return e.simple.Query(ctx, query, opts)
	}

	domain.SortRetrieved(merged)

	result := &domain.QueryResult{
		Query:        query,
		Chunks:       merged,
		SubQuestions: answered,
		Engine:       domain.QuerySubQuestion,
	}

	answer, err := e.completion.Complete(ctx, synthesisePrompt(query, answered, subAnswers), driven.CompleteOptions{
		MaxTokens:    answerMaxTokens,
		Temperature:  0.1,
		SystemPrompt: synthesiseSystemPrompt,
	})
	if err != nil {
		logger.Warn("Final synthesis failed, returning merged chunks: %v", err)
		return result, nil
	}
	result.Answer = answer
	result.Citations = citedFromSubResults(subResults, merged)
	return result, nil
}

// decompose asks the completion service for sub-questions. Any failure
// returns nil, which the caller treats as "fall back to simple".
func (e *SubQuestionEngine) decompose(ctx context.Context, query string) []string {
	response, err := e.completion.Complete(ctx, decomposePrompt(query), driven.CompleteOptions{
		MaxTokens:    512,
		Temperature:  0.3,
		SystemPrompt: fmt.Sprintf(decomposeSystemPrompt, MaxSubQuestions),
	})
	if err != nil {
		logger.Warn("Decomposition failed: %v", err)
		return nil
	}
	return parseSubQuestions(response, MaxSubQuestions)
}

// fanOut answers all sub-questions in parallel through the simple engine.
// A failed sub-question yields a nil slot rather than failing the fan-out.
func (e *SubQuestionEngine) fanOut(ctx context.Context, subQuestions []string, opts domain.QueryOptions) []*domain.QueryResult {
	results := make([]*domain.QueryResult, len(subQuestions))

	var wg sync.WaitGroup
	for i, sub := range subQuestions {
		wg.Add(1)
		go func(i int, sub string) {
			defer wg.Done()
			res, err := e.simple.Query(ctx, sub, opts)
			if err != nil {
				logger.Warn("Sub-question %d failed: %v", i+1, err)
				return
			}
			results[i] = res
		}(i, sub)
	}
	wg.Wait()

	return results
}

// subAnswer is what a sub-question contributes to the synthesis: its
// answer when present, otherwise its best chunk's text.
func subAnswer(res *domain.QueryResult) string {
	if res.Answer != "" {
		return res.Answer
	}
	if len(res.Chunks) > 0 {
		return res.Chunks[0].Chunk.Text
	}
	return ""
}

// citedFromSubResults collects the citations of all sub-results, restricted
// to chunks present in the merged set.
func citedFromSubResults(subResults []*domain.QueryResult, merged []domain.RetrievedChunk) []string {
	inMerged := make(map[string]struct{}, len(merged))
	for _, rc := range merged {
		inMerged[rc.Chunk.ID] = struct{}{}
	}

	var cited []string
	seen := make(map[string]struct{})
	for _, sub := range subResults {
		if sub == nil {
			continue
		}
		for _, id := range sub.Citations {
			if _, ok := inMerged[id]; !ok {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			cited = append(cited, id)
		}
	}
	return cited
}

// trimmedPreview shortens a query for log lines.
func trimmedPreview(query string) string {
	query = strings.TrimSpace(query)
	runes := []rune(query)
	if len(runes) <= 50 {
		return query
	}
	return string(runes[:50]) + "..."
}
