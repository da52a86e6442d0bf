package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/cisbeo/scorpius-rag/internal/core/domain"
	"github.com/cisbeo/scorpius-rag/internal/core/ports/driven"
)

// paragraphChunker splits text on blank lines, one draft per paragraph.
// Deterministic, so re-runs over unchanged text yield identical drafts.
type paragraphChunker struct{}

var _ driven.Chunker = (*paragraphChunker)(nil)

func (paragraphChunker) Chunk(text string, _ *domain.Structure) ([]domain.ChunkDraft, error) {
	var drafts []domain.ChunkDraft
	for _, part := range strings.Split(text, "\n\n") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		drafts = append(drafts, domain.ChunkDraft{
			Text:  part,
			Index: len(drafts),
		})
	}
	return drafts, nil
}

func (paragraphChunker) Strategy() domain.ChunkingStrategy { return domain.StrategyFixedSize }

// failingChunker always errors.
type failingChunker struct{ err error }

var _ driven.Chunker = (*failingChunker)(nil)

func (c *failingChunker) Chunk(string, *domain.Structure) ([]domain.ChunkDraft, error) {
	return nil, c.err
}

func (c *failingChunker) Strategy() domain.ChunkingStrategy { return domain.StrategyFixedSize }

// mockEmbedder counts calls per text and supports error injection through
// errFor, which sees the 1-based call number for that text.
type mockEmbedder struct {
	mu      sync.Mutex
	model   string
	calls   map[string]int
	vectors map[string][]float32
	errFor  func(text string, call int) error
}

var _ driven.EmbeddingService = (*mockEmbedder)(nil)

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{
		model:   "mistral-embed",
		calls:   make(map[string]int),
		vectors: make(map[string][]float32),
	}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls[text]++
	if m.errFor != nil {
		if err := m.errFor(text, m.calls[text]); err != nil {
			return nil, err
		}
	}
	if v, ok := m.vectors[text]; ok {
		return append([]float32(nil), v...), nil
	}
	return []float32{1, 0}, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int            { return 2 }
func (m *mockEmbedder) ModelName() string          { return m.model }
func (m *mockEmbedder) Ping(context.Context) error { return nil }
func (m *mockEmbedder) Close() error               { return nil }

func (m *mockEmbedder) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func (m *mockEmbedder) callsFor(text string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[text]
}

// mockCompletion answers through respond and records every prompt.
type mockCompletion struct {
	mu      sync.Mutex
	prompts []string
	respond func(prompt string, opts driven.CompleteOptions) (string, error)
}

var _ driven.CompletionService = (*mockCompletion)(nil)

func (m *mockCompletion) Complete(_ context.Context, prompt string, opts driven.CompleteOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.respond == nil {
		return "", errors.New("no responder configured")
	}
	return m.respond(prompt, opts)
}

func (m *mockCompletion) ModelName() string          { return "mistral-small-latest" }
func (m *mockCompletion) Ping(context.Context) error { return nil }
func (m *mockCompletion) Close() error               { return nil }

// brokenCache fails every operation, modelling a cache outage.
type brokenCache struct{ err error }

var _ driven.EmbeddingCache = (*brokenCache)(nil)

func (c *brokenCache) Get(context.Context, string, string) ([]float32, bool, error) {
	return nil, false, c.err
}

func (c *brokenCache) Put(context.Context, string, string, string, []float32) error {
	return c.err
}

func (c *brokenCache) InvalidateDocument(context.Context, string) error { return c.err }
func (c *brokenCache) InvalidateAll(context.Context) error              { return c.err }
func (c *brokenCache) Close() error                                     { return nil }

// brokenStore fails writes, modelling a store outage mid-run. Reads pass
// through to an empty result.
type brokenStore struct{ err error }

var _ driven.VectorStore = (*brokenStore)(nil)

func (s *brokenStore) Upsert(context.Context, domain.Chunk) error { return s.err }

func (s *brokenStore) DeleteByDocument(context.Context, string) error { return s.err }

func (s *brokenStore) DeleteChunks(context.Context, string, []string) error { return s.err }

func (s *brokenStore) ListChunkIDs(context.Context, string) ([]string, error) {
	return nil, nil
}

func (s *brokenStore) Search(context.Context, []float32, int, float64, domain.Filter) ([]domain.RetrievedChunk, error) {
	return nil, s.err
}

func (s *brokenStore) SearchText(context.Context, string, domain.Filter, int) ([]domain.Chunk, error) {
	return nil, s.err
}

func (s *brokenStore) Close() error { return nil }
