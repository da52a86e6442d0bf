package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/cisbeo/scorpius-rag/internal/core/domain"
	"github.com/cisbeo/scorpius-rag/internal/core/ports/driven"
	"github.com/cisbeo/scorpius-rag/internal/core/ports/driving"
	"github.com/cisbeo/scorpius-rag/internal/logger"
)

// Ensure SimpleEngine implements the interface.
var _ driving.QueryEngine = (*SimpleEngine)(nil)

// answerMaxTokens bounds synthesised answers.
const answerMaxTokens = 1024

// SimpleEngine embeds the query, retrieves the nearest chunks and
// optionally synthesises a French answer from them. The completion
// service is optional: without it (or when it fails) the engine returns
// the ranked chunks with no answer and no error.
type SimpleEngine struct {
	embedder   driven.EmbeddingService
	store      driven.VectorStore
	completion driven.CompletionService
}

// NewSimpleEngine creates a simple query engine. completion may be nil.
func NewSimpleEngine(
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	completion driven.CompletionService,
) *SimpleEngine {
	return &SimpleEngine{
		embedder:   embedder,
		store:      store,
		completion: completion,
	}
}

// Query implements driving.QueryEngine.
func (e *SimpleEngine) Query(ctx context.Context, query string, opts domain.QueryOptions) (*domain.QueryResult, error) {
	result := &domain.QueryResult{Query: query, Engine: domain.QuerySimple}

	query = strings.TrimSpace(query)
	if query == "" {
		return result, nil
	}
	if e.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	logger.Debug("Simple query: %q (topK=%d threshold=%.2f)", query, topK, opts.Threshold)

	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	chunks, err := e.store.Search(ctx, vector, topK, opts.Threshold, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	result.Chunks = chunks

	if len(chunks) == 0 {
		logger.Debug("No chunks above threshold")
		if e.completion != nil {
			result.Answer = noAnswerText
		}
		return result, nil
	}

	e.synthesise(ctx, result)
	return result, nil
}

// synthesise fills in the answer and citations when a completion service
// is available. Completion failures degrade to chunks-only, never to an
// error.
func (e *SimpleEngine) synthesise(ctx context.Context, result *domain.QueryResult) {
	if e.completion == nil {
		return
	}

	answer, err := e.completion.Complete(ctx, answerPrompt(result.Query, result.Chunks), driven.CompleteOptions{
		MaxTokens:    answerMaxTokens,
		Temperature:  0.1,
		SystemPrompt: answerSystemPrompt,
	})
	if err != nil {
		logger.Warn("Answer synthesis failed, returning chunks only: %v", err)
		return
	}

	result.Answer = answer
	result.Citations = citedChunks(answer, result.Chunks)
}

// citedChunks maps [Source N] markers in the answer back to chunk ids.
// Citations are always a subset of the retrieved chunks.
func citedChunks(answer string, chunks []domain.RetrievedChunk) []string {
	var cited []string
	for i, rc := range chunks {
		marker := fmt.Sprintf("[Source %d]", i+1)
		if strings.Contains(answer, marker) {
			cited = append(cited, rc.Chunk.ID)
		}
	}
	// An answer citing nothing explicitly still rests on all the context
	// it was given.
	if len(cited) == 0 {
		for _, rc := range chunks {
			cited = append(cited, rc.Chunk.ID)
		}
	}
	return cited
}
