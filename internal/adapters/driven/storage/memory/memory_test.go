package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cisbeo/scorpius-rag/internal/core/domain"
)

func chunk(id, docID, text string, embedding []float32) domain.Chunk {
	return domain.Chunk{
		ID:         id,
		DocumentID: docID,
		Text:       text,
		Embedding:  embedding,
	}
}

func TestStore_UpsertReplaces(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, chunk("c1", "doc-1", "ancien texte", []float32{1, 0})))
	require.NoError(t, s.Upsert(ctx, chunk("c1", "doc-1", "nouveau texte", []float32{0, 1})))

	assert.Equal(t, 1, s.Len())
	got, err := s.SearchText(ctx, "nouveau", domain.Filter{}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "nouveau texte", got[0].Text)
}

func TestStore_DeleteByDocument(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, chunk("c1", "doc-1", "a", []float32{1})))
	require.NoError(t, s.Upsert(ctx, chunk("c2", "doc-1", "b", []float32{1})))
	require.NoError(t, s.Upsert(ctx, chunk("c3", "doc-2", "c", []float32{1})))

	require.NoError(t, s.DeleteByDocument(ctx, "doc-1"))

	assert.Equal(t, 1, s.Len())
	ids, err := s.ListChunkIDs(ctx, "doc-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"c3"}, ids)
}

func TestStore_DeleteChunksScopedToDocument(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, chunk("c1", "doc-1", "a", []float32{1})))
	require.NoError(t, s.Upsert(ctx, chunk("c2", "doc-2", "b", []float32{1})))

	// c2 belongs to doc-2, so deleting it under doc-1 must be a no-op.
	require.NoError(t, s.DeleteChunks(ctx, "doc-1", []string{"c1", "c2"}))

	assert.Equal(t, 1, s.Len())
	ids, err := s.ListChunkIDs(ctx, "doc-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, ids)
}

func TestStore_ListChunkIDs_Sorted(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, chunk("ccc", "doc-1", "a", []float32{1})))
	require.NoError(t, s.Upsert(ctx, chunk("aaa", "doc-1", "b", []float32{1})))

	ids, err := s.ListChunkIDs(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"aaa", "ccc"}, ids)
}

func TestStore_Search_OrdersAndBounds(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, chunk("c1", "doc-1", "a", []float32{1, 0})))
	require.NoError(t, s.Upsert(ctx, chunk("c2", "doc-1", "b", []float32{0.9, 0.1})))
	require.NoError(t, s.Upsert(ctx, chunk("c3", "doc-1", "c", []float32{0, 1})))

	results, err := s.Search(ctx, []float32{1, 0}, 2, 0, domain.Filter{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].Chunk.ID)
	assert.Equal(t, "c2", results[1].Chunk.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestStore_Search_Threshold(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, chunk("c1", "doc-1", "a", []float32{1, 0})))
	require.NoError(t, s.Upsert(ctx, chunk("c2", "doc-1", "b", []float32{-1, 0})))

	// c2 is opposite to the query: normalised score 0.
	results, err := s.Search(ctx, []float32{1, 0}, 10, 0.5, domain.Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].Chunk.ID)
}

func TestStore_Search_FilterScope(t *testing.T) {
	s := New()
	ctx := context.Background()

	c := chunk("c1", "doc-1", "a", []float32{1, 0})
	c.DocumentType = "CCTP"
	require.NoError(t, s.Upsert(ctx, c))

	c2 := chunk("c2", "doc-2", "b", []float32{1, 0})
	c2.DocumentType = "CCAP"
	require.NoError(t, s.Upsert(ctx, c2))

	results, err := s.Search(ctx, []float32{1, 0}, 10, 0, domain.Filter{DocumentType: "CCTP"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].Chunk.ID)

	// Unknown scope yields an empty result, not an error.
	results, err = s.Search(ctx, []float32{1, 0}, 10, 0, domain.Filter{DocumentID: "doc-999"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_Search_DimensionMismatch(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, chunk("c1", "doc-1", "a", []float32{1, 0, 0})))

	_, err := s.Search(ctx, []float32{1, 0}, 10, 0, domain.Filter{})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestStore_SearchText_CaseInsensitive(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, chunk("c1", "doc-1", "Le délai est fixé à l'Article 12.", []float32{1})))
	require.NoError(t, s.Upsert(ctx, chunk("c2", "doc-1", "Aucun rapport.", []float32{1})))

	got, err := s.SearchText(ctx, "article 12", domain.Filter{}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ID)

	got, err = s.SearchText(ctx, "   ", domain.Filter{}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
