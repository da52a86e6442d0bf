// Package memory provides an in-process vector store backed by maps.
// It implements the full store contract and is the reference
// implementation the service tests run against.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cisbeo/scorpius-rag/internal/core/domain"
	"github.com/cisbeo/scorpius-rag/internal/core/ports/driven"
)

var _ driven.VectorStore = (*Store)(nil)

// Store keeps chunks in a map by id with a per-document index.
type Store struct {
	mu     sync.RWMutex
	chunks map[string]domain.Chunk
	byDoc  map[string]map[string]struct{}
}

// New creates an empty store.
func New() *Store {
	return &Store{
		chunks: make(map[string]domain.Chunk),
		byDoc:  make(map[string]map[string]struct{}),
	}
}

// Upsert implements driven.VectorStore.
func (s *Store) Upsert(_ context.Context, chunk domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.chunks[chunk.ID]; ok && old.DocumentID != chunk.DocumentID {
		s.unindex(old.ID, old.DocumentID)
	}
	s.chunks[chunk.ID] = chunk
	ids, ok := s.byDoc[chunk.DocumentID]
	if !ok {
		ids = make(map[string]struct{})
		s.byDoc[chunk.DocumentID] = ids
	}
	ids[chunk.ID] = struct{}{}
	return nil
}

// DeleteByDocument implements driven.VectorStore.
func (s *Store) DeleteByDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.byDoc[documentID] {
		delete(s.chunks, id)
	}
	delete(s.byDoc, documentID)
	return nil
}

// DeleteChunks implements driven.VectorStore.
func (s *Store) DeleteChunks(_ context.Context, documentID string, chunkIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range chunkIDs {
		if c, ok := s.chunks[id]; ok && c.DocumentID == documentID {
			delete(s.chunks, id)
			s.unindex(id, documentID)
		}
	}
	return nil
}

// ListChunkIDs implements driven.VectorStore.
func (s *Store) ListChunkIDs(_ context.Context, documentID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.byDoc[documentID]))
	for id := range s.byDoc[documentID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Search implements driven.VectorStore. It scans every chunk in scope,
// which is fine for the corpus sizes this store is used with.
func (s *Store) Search(_ context.Context, vector []float32, topK int, threshold float64, filter domain.Filter) ([]domain.RetrievedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []domain.RetrievedChunk
	for _, chunk := range s.chunks {
		if !filter.Matches(chunk) {
			continue
		}
		cos, err := domain.CosineSimilarity(vector, chunk.Embedding)
		if err != nil {
			return nil, err
		}
		score := domain.NormalisedSimilarity(cos)
		if score < threshold {
			continue
		}
		results = append(results, domain.RetrievedChunk{Chunk: chunk, Score: score})
	}

	domain.SortRetrieved(results)
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// SearchText implements driven.VectorStore.
func (s *Store) SearchText(_ context.Context, term string, filter domain.Filter, limit int) ([]domain.Chunk, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.Chunk
	for _, chunk := range s.chunks {
		if !filter.Matches(chunk) {
			continue
		}
		if strings.Contains(strings.ToLower(chunk.Text), term) {
			matched = append(matched, chunk)
		}
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Close implements driven.VectorStore.
func (s *Store) Close() error { return nil }

// Len reports the number of stored chunks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// unindex drops one id from the per-document index. Callers hold mu.
func (s *Store) unindex(id, documentID string) {
	if ids, ok := s.byDoc[documentID]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(s.byDoc, documentID)
		}
	}
}
