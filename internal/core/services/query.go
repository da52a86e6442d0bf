package services

import (
	"context"
	"fmt"

	"github.com/cisbeo/scorpius-rag/internal/core/domain"
	"github.com/cisbeo/scorpius-rag/internal/core/ports/driven"
	"github.com/cisbeo/scorpius-rag/internal/core/ports/driving"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// QueryService dispatches queries to the engine named by the options.
// The zero strategy and "auto" both go through the router.
type QueryService struct {
	simple      *SimpleEngine
	subQuestion *SubQuestionEngine
	router      *RouterEngine
}

// NewQueryService wires the three engines over the given adapters.
// completion may be nil, which disables answer synthesis and makes the
// sub-question engine fall back to simple retrieval.
func NewQueryService(
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	completion driven.CompletionService,
) *QueryService {
	simple := NewSimpleEngine(embedder, store, completion)
	subQuestion := NewSubQuestionEngine(simple, completion)
	return &QueryService{
		simple:      simple,
		subQuestion: subQuestion,
		router:      NewRouterEngine(simple, subQuestion, store),
	}
}

// Query implements driving.QueryService.
func (s *QueryService) Query(ctx context.Context, query string, opts domain.QueryOptions) (*domain.QueryResult, error) {
	switch opts.Strategy {
	case domain.QuerySimple:
		return s.simple.Query(ctx, query, opts)
	case domain.QuerySubQuestion:
		return s.subQuestion.Query(ctx, query, opts)
	case domain.QueryRouter, domain.QueryAuto, "":
		return s.router.Query(ctx, query, opts)
	default:
		return nil, fmt.Errorf("%w: unknown query strategy %q", domain.ErrConfiguration, opts.Strategy)
	}
}
