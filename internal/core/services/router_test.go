package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storemem "github.com/cisbeo/scorpius-rag/internal/adapters/driven/storage/memory"
	"github.com/cisbeo/scorpius-rag/internal/core/domain"
)

func newRouter(t *testing.T, store *storemem.Store, completion *mockCompletion) *RouterEngine {
	t.Helper()

	var simple *SimpleEngine
	if completion != nil {
		simple = NewSimpleEngine(newMockEmbedder(), store, completion)
		return NewRouterEngine(simple, NewSubQuestionEngine(simple, completion), store)
	}
	simple = NewSimpleEngine(newMockEmbedder(), store, nil)
	return NewRouterEngine(simple, NewSubQuestionEngine(simple, nil), store)
}

func TestRouterEngine_SimpleQueryRoutesToSimple(t *testing.T) {
	engine := newRouter(t, seedStore(t), nil)

	result, err := engine.Query(context.Background(), "Quel est le montant maximal ?", domain.QueryOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.QuerySimple, result.Engine)
	assert.Len(t, result.Chunks, 3)
}

func TestRouterEngine_ComplexQueryRoutesToSubQuestion(t *testing.T) {
	completion := routedCompletion(t, "Quel est le délai ?\nQuel est le montant ?")
	engine := newRouter(t, seedStore(t), completion)

	result, err := engine.Query(context.Background(),
		"Quelle est la différence entre le délai de réponse du CCAP et celui du règlement ?",
		domain.QueryOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.QuerySubQuestion, result.Engine)
	assert.Len(t, result.SubQuestions, 2)
}

func TestRouterEngine_HybridMergesLexicalHits(t *testing.T) {
	store := seedStore(t)
	// A chunk whose embedding is far from the query but whose text holds
	// the exact reference asked about.
	require.NoError(t, store.Upsert(context.Background(), domain.Chunk{
		ID:         "chunk-d",
		DocumentID: "doc-3",
		Text:       "L'article 12 précise les modalités de remise des offres.",
		Embedding:  []float32{-1, 0},
		Index:      0,
	}))
	engine := newRouter(t, store, nil)

	result, err := engine.Query(context.Background(), "Que dit l'article 12 ?", domain.QueryOptions{
		Threshold: 0.8,
	})
	require.NoError(t, err)

	var lexical *domain.RetrievedChunk
	for i := range result.Chunks {
		if result.Chunks[i].Chunk.ID == "chunk-d" {
			lexical = &result.Chunks[i]
		}
	}
	require.NotNil(t, lexical, "exact reference must be found despite the threshold")
	assert.True(t, lexical.Lexical)
	assert.Equal(t, domain.LexicalScore, lexical.Score)

	// Re-ranked: the perfect vector match outranks the lexical hit.
	assert.Equal(t, "chunk-a", result.Chunks[0].Chunk.ID)
	assert.Equal(t, "chunk-d", result.Chunks[1].Chunk.ID)
}

func TestRouterEngine_HybridRespectsTopK(t *testing.T) {
	store := seedStore(t)
	require.NoError(t, store.Upsert(context.Background(), domain.Chunk{
		ID:         "chunk-d",
		DocumentID: "doc-3",
		Text:       "L'article 12 précise les modalités de remise des offres.",
		Embedding:  []float32{-1, 0},
		Index:      0,
	}))
	engine := newRouter(t, store, nil)

	result, err := engine.Query(context.Background(), "Que dit l'article 12 ?", domain.QueryOptions{
		TopK: 2,
	})
	require.NoError(t, err)

	// The lexical merge must not grow the result past top_k, and the
	// lexical hit must survive the cut at the expense of a vector hit.
	require.Len(t, result.Chunks, 2)
	assert.Equal(t, "chunk-a", result.Chunks[0].Chunk.ID)
	assert.Equal(t, "chunk-d", result.Chunks[1].Chunk.ID)
	assert.True(t, result.Chunks[1].Lexical)
}

func TestCapRetrieved_LexicalHitsAlwaysSurvive(t *testing.T) {
	chunks := []domain.RetrievedChunk{
		{Chunk: domain.Chunk{ID: "a"}, Score: 1.0},
		{Chunk: domain.Chunk{ID: "b"}, Score: domain.LexicalScore, Lexical: true},
		{Chunk: domain.Chunk{ID: "c"}, Score: domain.LexicalScore, Lexical: true},
		{Chunk: domain.Chunk{ID: "d"}, Score: 0.7},
	}

	kept := capRetrieved(chunks, 2)

	require.Len(t, kept, 2)
	assert.True(t, kept[0].Lexical)
	assert.True(t, kept[1].Lexical)
	assert.Equal(t, "b", kept[0].Chunk.ID)
	assert.Equal(t, "c", kept[1].Chunk.ID)
}

func TestRouterEngine_HybridDoesNotDuplicateVectorHits(t *testing.T) {
	engine := newRouter(t, seedStore(t), nil)

	// chunk-a both matches the query vector and contains "article 12".
	result, err := engine.Query(context.Background(), "Que dit l'article 12 ?", domain.QueryOptions{})
	require.NoError(t, err)

	var count int
	for _, rc := range result.Chunks {
		if rc.Chunk.ID == "chunk-a" {
			count++
			assert.False(t, rc.Lexical, "the vector hit wins over the lexical duplicate")
		}
	}
	assert.Equal(t, 1, count)
}

func TestRouterEngine_NoIdentifiersSkipsLexicalPass(t *testing.T) {
	engine := newRouter(t, seedStore(t), nil)

	result, err := engine.Query(context.Background(), "Quel est le montant maximal ?", domain.QueryOptions{})
	require.NoError(t, err)

	for _, rc := range result.Chunks {
		assert.False(t, rc.Lexical)
	}
}

func TestIsComplexQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{"short factual", "Quel est le délai de réponse ?", false},
		{"over length limit", strings.Repeat("mot ", 50) + "?", true},
		{"multiple questions", "Quel est le délai ? Quel est le montant ?", true},
		{"comparison marker", "Quelle est la différence entre le CCAP et le CCTP ?", true},
		{"enumeration marker", "Lister les pièces à fournir", true},
		{"conjunction marker", "Le délai et le montant du marché", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isComplexQuery(tt.query))
		})
	}
}

func TestExtractIdentifiers(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "article reference",
			query: "Que dit l'article 12.3 du règlement ?",
			want:  []string{"article 12.3"},
		},
		{
			name:  "document code",
			query: "Où trouver les spécifications dans le CCTP ?",
			want:  []string{"CCTP"},
		},
		{
			name:  "date and amount",
			query: "La remise du 15/03/2024 pour 50 000 € est-elle valide ?",
			want:  []string{"15/03/2024", "50 000 €"},
		},
		{
			name:  "deduplicated case-insensitively",
			query: "Article 12 et article 12 encore",
			want:  []string{"Article 12"},
		},
		{
			name:  "no identifiers",
			query: "Quel est le délai de réponse ?",
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractIdentifiers(tt.query))
		})
	}
}
