// Package memory provides an in-process embedding cache with a
// time-to-live, suitable for tests and single-binary deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cisbeo/scorpius-rag/internal/core/domain"
	"github.com/cisbeo/scorpius-rag/internal/core/ports/driven"
)

// DefaultTTL is how long cached vectors stay valid.
const DefaultTTL = 7 * 24 * time.Hour

var _ driven.EmbeddingCache = (*Cache)(nil)

type entry struct {
	vector     []float32
	documentID string
	expiresAt  time.Time
}

// Cache is a mutex-guarded map keyed by the content hash of
// (normalised text, model id). Expired entries are dropped lazily on
// read; a secondary index per document backs InvalidateDocument.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	byDoc   map[string]map[string]struct{}
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the default time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithClock injects the time source. Tests use it to exercise expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		byDoc:   make(map[string]map[string]struct{}),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get implements driven.EmbeddingCache.
func (c *Cache) Get(_ context.Context, text, modelID string) ([]float32, bool, error) {
	key := domain.CacheKey(text, modelID)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(e.expiresAt) {
		c.remove(key, e.documentID)
		return nil, false, nil
	}

	out := make([]float32, len(e.vector))
	copy(out, e.vector)
	return out, true, nil
}

// Put implements driven.EmbeddingCache.
func (c *Cache) Put(_ context.Context, documentID, text, modelID string, vector []float32) error {
	key := domain.CacheKey(text, modelID)
	stored := make([]float32, len(vector))
	copy(stored, vector)

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok && old.documentID != documentID {
		c.unindex(key, old.documentID)
	}
	c.entries[key] = entry{
		vector:     stored,
		documentID: documentID,
		expiresAt:  c.now().Add(c.ttl),
	}
	keys, ok := c.byDoc[documentID]
	if !ok {
		keys = make(map[string]struct{})
		c.byDoc[documentID] = keys
	}
	keys[key] = struct{}{}
	return nil
}

// InvalidateDocument implements driven.EmbeddingCache.
func (c *Cache) InvalidateDocument(_ context.Context, documentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.byDoc[documentID] {
		delete(c.entries, key)
	}
	delete(c.byDoc, documentID)
	return nil
}

// InvalidateAll implements driven.EmbeddingCache.
func (c *Cache) InvalidateAll(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
	c.byDoc = make(map[string]map[string]struct{})
	return nil
}

// Close implements driven.EmbeddingCache.
func (c *Cache) Close() error { return nil }

// Len reports the number of live entries, counting expired ones out.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	now := c.now()
	for _, e := range c.entries {
		if !now.After(e.expiresAt) {
			n++
		}
	}
	return n
}

// remove deletes an entry and its document index slot. Callers hold mu.
func (c *Cache) remove(key, documentID string) {
	delete(c.entries, key)
	c.unindex(key, documentID)
}

func (c *Cache) unindex(key, documentID string) {
	if keys, ok := c.byDoc[documentID]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(c.byDoc, documentID)
		}
	}
}
