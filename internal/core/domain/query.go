package domain

// QueryStrategy selects which query engine answers a question.
type QueryStrategy string

// Query strategies. Auto lets the router pick between Simple and
// SubQuestion based on the query itself.
const (
	QuerySimple      QueryStrategy = "simple"
	QuerySubQuestion QueryStrategy = "subquestion"
	QueryRouter      QueryStrategy = "router"
	QueryAuto        QueryStrategy = "auto"
)

// DefaultTopK is the number of chunks retrieved when the caller does not
// specify one.
const DefaultTopK = 5

// Filter restricts a search to chunks matching the given metadata.
// Zero-value fields do not filter.
type Filter struct {
	DocumentID   string
	DocumentType string
	SectionType  string
}

// QueryOptions configures a retrieval query.
type QueryOptions struct {
	// TopK is the maximum number of chunks to return (default 5).
	TopK int

	// Threshold is the minimum normalised similarity in [0,1).
	Threshold float64

	// Filter restricts the search scope.
	Filter Filter

	// Strategy selects the query engine (default auto).
	Strategy QueryStrategy
}

// RetrievedChunk pairs a chunk with its normalised similarity score.
type RetrievedChunk struct {
	Chunk Chunk

	// Score is the similarity on the normalised [0,1] scale:
	// (1 + cosine)/2 for vector hits, a fixed constant for exact
	// lexical matches.
	Score float64

	// Lexical marks chunks found by exact keyword matching rather than
	// vector similarity. Lexical hits are exempt from the threshold.
	Lexical bool
}

// QueryResult is the outcome of a query: ranked chunks, strictly descending
// by score with ties broken by ascending chunk id, plus an optional
// synthesised answer.
type QueryResult struct {
	Query string

	// Chunks are the retrieved chunks in rank order.
	Chunks []RetrievedChunk

	// Answer is the synthesised natural-language answer, empty when the
	// completion capability is unavailable.
	Answer string

	// Citations are the ids of the chunks actually used to build Answer.
	// Always a subset of Chunks.
	Citations []string

	// SubQuestions records the decomposition when the sub-question
	// engine was used.
	SubQuestions []string

	// Engine names the strategy that produced this result.
	Engine QueryStrategy
}
