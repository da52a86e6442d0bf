package driving

import (
	"context"

	"github.com/cisbeo/scorpius-rag/internal/core/domain"
)

// QueryEngine answers a natural-language question against the vector
// store. Engines are stateless per call; Simple, SubQuestion and Router
// are interchangeable strategies behind this contract.
type QueryEngine interface {
	Query(ctx context.Context, query string, opts domain.QueryOptions) (*domain.QueryResult, error)
}

// QueryService dispatches a query to the engine selected by
// domain.QueryOptions.Strategy.
type QueryService interface {
	QueryEngine
}
