package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cisbeo/scorpius-rag/internal/core/domain"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testChunk(id, docID, text string, index int, embedding []float32) domain.Chunk {
	return domain.Chunk{
		ID:         id,
		DocumentID: docID,
		Text:       text,
		Index:      index,
		Embedding:  embedding,
	}
}

func TestStore_MigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	// Reopening must not re-run applied migrations.
	s2, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestVectorStore_UpsertRoundTrip(t *testing.T) {
	s := newTestStore(t)
	vs := s.VectorStore()
	ctx := context.Background()

	in := domain.Chunk{
		ID:           "c1",
		DocumentID:   "doc-1",
		Text:         "L'article 12 fixe le délai d'exécution.",
		Index:        3,
		DocumentType: "CCAP",
		SectionType:  "article",
		PageNumber:   7,
		ChunkSize:    1000,
		OverlapSize:  200,
		Embedding:    []float32{0.25, -1.5, 3.75},
	}
	require.NoError(t, vs.Upsert(ctx, in))

	got, err := vs.SearchText(ctx, "article 12", domain.Filter{}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, in, got[0])
}

func TestVectorStore_UpsertReplaces(t *testing.T) {
	s := newTestStore(t)
	vs := s.VectorStore()
	ctx := context.Background()

	require.NoError(t, vs.Upsert(ctx, testChunk("c1", "doc-1", "ancien", 0, []float32{1})))
	require.NoError(t, vs.Upsert(ctx, testChunk("c1", "doc-1", "nouveau", 0, []float32{2})))

	ids, err := vs.ListChunkIDs(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids)

	got, err := vs.SearchText(ctx, "nouveau", domain.Filter{}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestVectorStore_DeleteByDocument(t *testing.T) {
	s := newTestStore(t)
	vs := s.VectorStore()
	ctx := context.Background()

	require.NoError(t, vs.Upsert(ctx, testChunk("c1", "doc-1", "a", 0, []float32{1})))
	require.NoError(t, vs.Upsert(ctx, testChunk("c2", "doc-1", "b", 1, []float32{1})))
	require.NoError(t, vs.Upsert(ctx, testChunk("c3", "doc-2", "c", 0, []float32{1})))

	require.NoError(t, vs.DeleteByDocument(ctx, "doc-1"))

	ids, err := vs.ListChunkIDs(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = vs.ListChunkIDs(ctx, "doc-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"c3"}, ids)
}

func TestVectorStore_DeleteChunksScopedToDocument(t *testing.T) {
	s := newTestStore(t)
	vs := s.VectorStore()
	ctx := context.Background()

	require.NoError(t, vs.Upsert(ctx, testChunk("c1", "doc-1", "a", 0, []float32{1})))
	require.NoError(t, vs.Upsert(ctx, testChunk("c2", "doc-2", "b", 0, []float32{1})))

	require.NoError(t, vs.DeleteChunks(ctx, "doc-1", []string{"c1", "c2"}))

	ids, err := vs.ListChunkIDs(ctx, "doc-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, ids, "chunks of other documents must survive")
}

func TestVectorStore_SearchRanksAndFilters(t *testing.T) {
	s := newTestStore(t)
	vs := s.VectorStore()
	ctx := context.Background()

	c1 := testChunk("c1", "doc-1", "a", 0, []float32{1, 0})
	c1.DocumentType = "CCTP"
	c2 := testChunk("c2", "doc-1", "b", 1, []float32{0.9, 0.1})
	c2.DocumentType = "CCTP"
	c3 := testChunk("c3", "doc-2", "c", 0, []float32{1, 0})
	c3.DocumentType = "CCAP"
	for _, c := range []domain.Chunk{c1, c2, c3} {
		require.NoError(t, vs.Upsert(ctx, c))
	}

	results, err := vs.Search(ctx, []float32{1, 0}, 10, 0, domain.Filter{DocumentType: "CCTP"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].Chunk.ID)
	assert.Equal(t, "c2", results[1].Chunk.ID)
	assert.True(t, results[0].Score >= results[1].Score)

	// Threshold filters the weaker match out.
	results, err = vs.Search(ctx, []float32{1, 0}, 10, 0.999, domain.Filter{DocumentType: "CCTP"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].Chunk.ID)

	// Unknown scope yields empty, not an error.
	results, err = vs.Search(ctx, []float32{1, 0}, 10, 0, domain.Filter{DocumentID: "doc-999"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorStore_SearchText(t *testing.T) {
	s := newTestStore(t)
	vs := s.VectorStore()
	ctx := context.Background()

	require.NoError(t, vs.Upsert(ctx, testChunk("c1", "doc-1", "Le Règlement de Consultation précise les critères.", 0, []float32{1})))
	require.NoError(t, vs.Upsert(ctx, testChunk("c2", "doc-1", "Aucun rapport.", 1, []float32{1})))

	got, err := vs.SearchText(ctx, "règlement de consultation", domain.Filter{}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ID)

	got, err = vs.SearchText(ctx, "", domain.Filter{}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEmbeddingCache_RoundTripAndExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithCacheTTL(time.Hour), WithClock(func() time.Time { return now }))
	cache := s.EmbeddingCache()
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "texte", "mistral-embed")
	require.NoError(t, err)
	assert.False(t, ok)

	vec := []float32{0.5, -0.5}
	require.NoError(t, cache.Put(ctx, "doc-1", "texte", "mistral-embed", vec))

	got, ok, err := cache.Get(ctx, "texte", "mistral-embed")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, vec, got)

	now = now.Add(2 * time.Hour)
	_, ok, err = cache.Get(ctx, "texte", "mistral-embed")
	require.NoError(t, err)
	assert.False(t, ok, "entry past its TTL must miss")
}

func TestEmbeddingCache_NormalisedKeyAndModelScope(t *testing.T) {
	s := newTestStore(t)
	cache := s.EmbeddingCache()
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "doc-1", "le  marché\npublic", "m1", []float32{1}))

	_, ok, err := cache.Get(ctx, " le marché public ", "m1")
	require.NoError(t, err)
	assert.True(t, ok, "whitespace variants must share one key")

	_, ok, err = cache.Get(ctx, "le marché public", "m2")
	require.NoError(t, err)
	assert.False(t, ok, "a different model must not hit")
}

func TestEmbeddingCache_Invalidation(t *testing.T) {
	s := newTestStore(t)
	cache := s.EmbeddingCache()
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "doc-1", "premier", "m", []float32{1}))
	require.NoError(t, cache.Put(ctx, "doc-2", "second", "m", []float32{2}))

	require.NoError(t, cache.InvalidateDocument(ctx, "doc-1"))
	_, ok, _ := cache.Get(ctx, "premier", "m")
	assert.False(t, ok)
	_, ok, _ = cache.Get(ctx, "second", "m")
	assert.True(t, ok)

	require.NoError(t, cache.InvalidateAll(ctx))
	_, ok, _ = cache.Get(ctx, "second", "m")
	assert.False(t, ok)
}
