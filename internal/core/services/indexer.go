package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cisbeo/scorpius-rag/internal/core/domain"
	"github.com/cisbeo/scorpius-rag/internal/core/ports/driven"
	"github.com/cisbeo/scorpius-rag/internal/core/ports/driving"
	"github.com/cisbeo/scorpius-rag/internal/logger"
)

// Ensure IndexingService implements the interface.
var _ driving.Indexer = (*IndexingService)(nil)

// Default pipeline tuning values.
const (
	DefaultBatchWidth     = 4
	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = 200 * time.Millisecond
	DefaultCallTimeout    = 30 * time.Second
)

// IndexerConfig tunes the indexing pipeline.
type IndexerConfig struct {
	// BatchWidth bounds the number of concurrent embedding calls.
	BatchWidth int

	// MaxRetries bounds retry attempts for transient embedding failures.
	MaxRetries int

	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	RetryBaseDelay time.Duration

	// CallTimeout bounds each individual embedding call.
	CallTimeout time.Duration
}

// withDefaults fills unset fields.
func (c IndexerConfig) withDefaults() IndexerConfig {
	if c.BatchWidth <= 0 {
		c.BatchWidth = DefaultBatchWidth
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	return c
}

// IndexingService runs the chunk, embed and store pipeline for documents.
// Runs are idempotent: chunk ids derive from (document, index) and vectors
// of unchanged text come from the cache, so re-indexing unchanged text
// makes zero new embedding calls.
type IndexingService struct {
	chunker  driven.Chunker
	embedder driven.EmbeddingService
	cache    driven.EmbeddingCache
	store    driven.VectorStore
	cfg      IndexerConfig

	// docLocks serialises concurrent runs on the same document.
	mu       sync.Mutex
	docLocks map[string]*sync.Mutex
}

// NewIndexingService creates an indexing pipeline. The cache is optional
// (nil degrades to always-miss).
func NewIndexingService(
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	cache driven.EmbeddingCache,
	store driven.VectorStore,
	cfg IndexerConfig,
) *IndexingService {
	return &IndexingService{
		chunker:  chunker,
		embedder: embedder,
		cache:    cache,
		store:    store,
		cfg:      cfg.withDefaults(),
		docLocks: make(map[string]*sync.Mutex),
	}
}

// chunkOutcome is the result of processing one chunk draft.
type chunkOutcome struct {
	index  int
	reused bool
	err    error
}

// IndexDocument implements driving.Indexer.
func (s *IndexingService) IndexDocument(ctx context.Context, input domain.DocumentInput) (domain.IndexingReport, error) {
	start := time.Now()
	report := domain.IndexingReport{
		RunID:      uuid.NewString(),
		DocumentID: input.DocumentID,
	}

	if input.DocumentID == "" {
		return report, fmt.Errorf("%w: document id is required", domain.ErrConfiguration)
	}
	if s.embedder == nil {
		return report, domain.ErrEmbeddingUnavailable
	}

	// One run per document at a time; different documents proceed in
	// parallel.
	unlock := s.lockDocument(input.DocumentID)
	defer unlock()

	logger.Section("Indexing " + input.DocumentID)

	drafts, err := s.chunker.Chunk(input.Text, input.Hints)
	if err != nil {
		return report, fmt.Errorf("chunking document %s: %w", input.DocumentID, err)
	}
	logger.Debug("Strategy %s produced %d chunk(s)", s.chunker.Strategy(), len(drafts))

	desired := make(map[string]struct{}, len(drafts))
	for _, draft := range drafts {
		desired[domain.NewChunkID(input.DocumentID, draft.Index)] = struct{}{}
	}

	outcomes, err := s.processDrafts(ctx, input, drafts)
	if err != nil {
		report.Duration = time.Since(start)
		return report, err
	}

	for _, o := range outcomes {
		switch {
		case o.err != nil:
			report.ChunksFailed++
			report.FailedIndexes = append(report.FailedIndexes, o.index)
			logger.Warn("Chunk %d of %s failed: %v", o.index, input.DocumentID, o.err)
		case o.reused:
			report.ChunksReused++
		default:
			report.ChunksCreated++
		}
	}
	sort.Ints(report.FailedIndexes)

	// Drop chunks of earlier runs that no longer exist. Ids still desired
	// are never deleted, failed ones included, so a rerun can complete a
	// partial document without losing data.
	removed, err := s.removeStale(ctx, input.DocumentID, desired)
	if err != nil {
		report.Duration = time.Since(start)
		return report, err
	}
	report.ChunksRemoved = removed

	report.Duration = time.Since(start)
	logger.Info("Indexed %s: %d created, %d reused, %d failed, %d removed",
		input.DocumentID, report.ChunksCreated, report.ChunksReused,
		report.ChunksFailed, report.ChunksRemoved)

	if report.Partial() {
		return report, &domain.PartialIndexingError{
			DocumentID:    input.DocumentID,
			FailedIndexes: report.FailedIndexes,
		}
	}
	return report, nil
}

// processDrafts embeds and stores all drafts with bounded concurrency.
// Per-chunk embedding failures are recorded as outcomes; a store failure
// aborts the run.
func (s *IndexingService) processDrafts(ctx context.Context, input domain.DocumentInput, drafts []domain.ChunkDraft) ([]chunkOutcome, error) {
	if len(drafts) == 0 {
		return nil, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		sem      = make(chan struct{}, s.cfg.BatchWidth)
		mu       sync.Mutex
		outcomes []chunkOutcome
		fatal    error
	)

	for _, draft := range drafts {
		wg.Add(1)
		go func(draft domain.ChunkDraft) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-runCtx.Done():
				return
			}

			outcome, storeErr := s.processOne(runCtx, input, draft)

			mu.Lock()
			defer mu.Unlock()
			if storeErr != nil {
				if fatal == nil {
					fatal = storeErr
					cancel()
				}
				return
			}
			outcomes = append(outcomes, outcome)
		}(draft)
	}
	wg.Wait()

	if fatal != nil {
		return nil, fatal
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// processOne resolves one draft's vector (cache first, then the embedding
// service with retries) and upserts the chunk. The second return value is
// a fatal store error.
func (s *IndexingService) processOne(ctx context.Context, input domain.DocumentInput, draft domain.ChunkDraft) (chunkOutcome, error) {
	outcome := chunkOutcome{index: draft.Index}
	modelID := s.embedder.ModelName()

	var vector []float32
	if s.cache != nil {
		cached, hit, err := s.cache.Get(ctx, draft.Text, modelID)
		if err != nil {
			// A broken cache degrades to a miss, never to failure.
			logger.Warn("Cache lookup failed for chunk %d: %v", draft.Index, err)
		} else if hit {
			vector = cached
			outcome.reused = true
		}
	}

	if vector == nil {
		embedded, err := s.embedWithRetry(ctx, draft.Text)
		if err != nil {
			if ctx.Err() != nil {
				return outcome, ctx.Err()
			}
			outcome.err = err
			return outcome, nil
		}
		vector = embedded

		if s.cache != nil {
			if err := s.cache.Put(ctx, input.DocumentID, draft.Text, modelID, vector); err != nil {
				logger.Warn("Cache store failed for chunk %d: %v", draft.Index, err)
			}
		}
	}

	docType := draft.DocumentType
	if docType == "" {
		docType = input.DocumentType
	}

	chunk := domain.Chunk{
		ID:           domain.NewChunkID(input.DocumentID, draft.Index),
		DocumentID:   input.DocumentID,
		Text:         draft.Text,
		Embedding:    vector,
		DocumentType: docType,
		SectionType:  draft.SectionType,
		PageNumber:   draft.PageNumber,
		Index:        draft.Index,
		ChunkSize:    len([]rune(draft.Text)),
		OverlapSize:  draft.OverlapSize,
	}

	if err := s.store.Upsert(ctx, chunk); err != nil {
		return outcome, fmt.Errorf("%w: upserting chunk %s: %w",
			domain.ErrStoreUnavailable, chunk.ID, err)
	}
	return outcome, nil
}

// embedWithRetry calls the embedding service with a per-call timeout and
// bounded exponential backoff on transient failures.
func (s *IndexingService) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	delay := s.cfg.RetryBaseDelay

	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			logger.Debug("Retrying embedding (attempt %d/%d) after %s",
				attempt, s.cfg.MaxRetries, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
		}

		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		vector, err := s.embedder.Embed(callCtx, text)
		cancel()

		if err == nil {
			return vector, nil
		}
		lastErr = err
		if !domain.IsTransient(err) || ctx.Err() != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("embedding failed after %d retries: %w", s.cfg.MaxRetries, lastErr)
}

// removeStale deletes stored chunk ids that are no longer part of the
// document.
func (s *IndexingService) removeStale(ctx context.Context, documentID string, desired map[string]struct{}) (int, error) {
	existing, err := s.store.ListChunkIDs(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("%w: listing chunks of %s: %w",
			domain.ErrStoreUnavailable, documentID, err)
	}

	var stale []string
	for _, id := range existing {
		if _, ok := desired[id]; !ok {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	if err := s.store.DeleteChunks(ctx, documentID, stale); err != nil {
		return 0, fmt.Errorf("%w: deleting stale chunks of %s: %w",
			domain.ErrStoreUnavailable, documentID, err)
	}
	logger.Debug("Removed %d stale chunk(s) of %s", len(stale), documentID)
	return len(stale), nil
}

// DeleteDocument implements driving.Indexer.
func (s *IndexingService) DeleteDocument(ctx context.Context, documentID string) error {
	unlock := s.lockDocument(documentID)
	defer unlock()

	if err := s.store.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("%w: deleting document %s: %w",
			domain.ErrStoreUnavailable, documentID, err)
	}
	if s.cache != nil {
		if err := s.cache.InvalidateDocument(ctx, documentID); err != nil {
			logger.Warn("Cache invalidation failed for %s: %v", documentID, err)
		}
	}
	return nil
}

// lockDocument acquires the per-document mutex and returns its unlock.
func (s *IndexingService) lockDocument(documentID string) func() {
	s.mu.Lock()
	lock, ok := s.docLocks[documentID]
	if !ok {
		lock = &sync.Mutex{}
		s.docLocks[documentID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
