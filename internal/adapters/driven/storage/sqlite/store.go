package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/cisbeo/scorpius-rag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/cisbeo/scorpius-rag/internal/core/domain"
	"github.com/cisbeo/scorpius-rag/internal/core/ports/driven"
)

// DefaultCacheTTL is how long cached embedding vectors stay valid.
const DefaultCacheTTL = 7 * 24 * time.Hour

// Store is a unified SQLite-based storage providing the vector store and
// the embedding cache through wrapper types sharing one database.
type Store struct {
	db   *sql.DB
	path string
	ttl  time.Duration
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithCacheTTL overrides the default embedding cache time-to-live.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithClock injects the time source. Tests use it to exercise expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.scorpius/data/scorpius.db.
func NewStore(dataDir string, opts ...Option) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".scorpius", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "scorpius.db")

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		ttl:  DefaultCacheTTL,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// VectorStore returns a VectorStore interface backed by this store.
func (s *Store) VectorStore() driven.VectorStore {
	return &vectorStore{store: s}
}

// EmbeddingCache returns an EmbeddingCache interface backed by this store.
func (s *Store) EmbeddingCache() driven.EmbeddingCache {
	return &embeddingCache{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Vector Store ====================

// vectorStore implements driven.VectorStore.
type vectorStore struct {
	store *Store
}

var _ driven.VectorStore = (*vectorStore)(nil)

// Upsert inserts or replaces a chunk by its id.
func (s *vectorStore) Upsert(ctx context.Context, chunk domain.Chunk) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO chunks
			(id, document_id, content, position, document_type, section_type,
			 page_number, chunk_size, overlap_size, confidence_score, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			content = excluded.content,
			position = excluded.position,
			document_type = excluded.document_type,
			section_type = excluded.section_type,
			page_number = excluded.page_number,
			chunk_size = excluded.chunk_size,
			overlap_size = excluded.overlap_size,
			confidence_score = excluded.confidence_score,
			embedding = excluded.embedding
	`, chunk.ID, chunk.DocumentID, chunk.Text, chunk.Index,
		chunk.DocumentType, chunk.SectionType, chunk.PageNumber,
		chunk.ChunkSize, chunk.OverlapSize, chunk.ConfidenceScore,
		float32SliceToBytes(chunk.Embedding))

	if err != nil {
		return fmt.Errorf("saving chunk: %w", err)
	}
	return nil
}

// DeleteByDocument removes all chunks owned by a document.
func (s *vectorStore) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// DeleteChunks removes specific chunks of a document.
func (s *vectorStore) DeleteChunks(ctx context.Context, documentID string, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM chunks WHERE id = ? AND document_id = ?")
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, id := range chunkIDs {
		if _, err := stmt.ExecContext(ctx, id, documentID); err != nil {
			return fmt.Errorf("deleting chunk %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListChunkIDs returns the ids of all stored chunks of a document.
func (s *vectorStore) ListChunkIDs(ctx context.Context, documentID string) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT id FROM chunks WHERE document_id = ? ORDER BY id", documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunk ids: %w", err)
	}
	defer rows.Close()

	var ids []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning chunk id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk ids: %w", err)
	}
	return ids, nil
}

// Search scans the chunks in filter scope and ranks them by cosine
// similarity computed in Go. SQLite narrows the scope by metadata; the
// vector math stays out of SQL.
func (s *vectorStore) Search(ctx context.Context, vector []float32, topK int, threshold float64, filter domain.Filter) ([]domain.RetrievedChunk, error) {
	query, args := filteredQuery(`
		SELECT id, document_id, content, position, document_type, section_type,
		       page_number, chunk_size, overlap_size, confidence_score, embedding
		FROM chunks`, filter)

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var results []domain.RetrievedChunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
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

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	domain.SortRetrieved(results)
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// SearchText returns chunks containing the term, case-insensitively.
func (s *vectorStore) SearchText(ctx context.Context, term string, filter domain.Filter, limit int) ([]domain.Chunk, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}

	query, args := filteredQuery(`
		SELECT id, document_id, content, position, document_type, section_type,
		       page_number, chunk_size, overlap_size, confidence_score, embedding
		FROM chunks`, filter)
	query += " AND instr(lower(content), lower(?)) > 0 ORDER BY id"
	args = append(args, term)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks by text: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// Close is a no-op: the owning Store closes the shared connection.
func (s *vectorStore) Close() error { return nil }

// filteredQuery appends the filter's WHERE clauses. The returned query
// always ends in a WHERE chain so callers can append further AND terms.
func filteredQuery(base string, filter domain.Filter) (string, []any) {
	query := base + " WHERE 1=1"
	var args []any
	if filter.DocumentID != "" {
		query += " AND document_id = ?"
		args = append(args, filter.DocumentID)
	}
	if filter.DocumentType != "" {
		query += " AND document_type = ?"
		args = append(args, filter.DocumentType)
	}
	if filter.SectionType != "" {
		query += " AND section_type = ?"
		args = append(args, filter.SectionType)
	}
	return query, args
}

// scanChunk scans a chunk from *sql.Rows.
func scanChunk(rows *sql.Rows) (domain.Chunk, error) {
	var chunk domain.Chunk
	var embeddingBlob []byte

	if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Text, &chunk.Index,
		&chunk.DocumentType, &chunk.SectionType, &chunk.PageNumber,
		&chunk.ChunkSize, &chunk.OverlapSize, &chunk.ConfidenceScore,
		&embeddingBlob); err != nil {
		return domain.Chunk{}, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
	return chunk, nil
}

// ==================== Embedding Cache ====================

// embeddingCache implements driven.EmbeddingCache on the shared database.
// Expired rows are dropped lazily on read.
type embeddingCache struct {
	store *Store
}

var _ driven.EmbeddingCache = (*embeddingCache)(nil)

// Get returns the cached vector for (text, modelID) when present and
// not expired.
func (c *embeddingCache) Get(ctx context.Context, text, modelID string) ([]float32, bool, error) {
	key := domain.CacheKey(text, modelID)

	var blob []byte
	var expiresAt time.Time
	err := c.store.db.QueryRowContext(ctx,
		"SELECT vector, expires_at FROM embedding_cache WHERE key = ?", key).
		Scan(&blob, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying embedding cache: %w", err)
	}

	if c.store.now().After(expiresAt) {
		if _, err := c.store.db.ExecContext(ctx,
			"DELETE FROM embedding_cache WHERE key = ?", key); err != nil {
			return nil, false, fmt.Errorf("evicting expired entry: %w", err)
		}
		return nil, false, nil
	}

	return bytesToFloat32Slice(blob), true, nil
}

// Put stores a vector keyed by (text, modelID) with the configured TTL.
func (c *embeddingCache) Put(ctx context.Context, documentID, text, modelID string, vector []float32) error {
	key := domain.CacheKey(text, modelID)
	expiresAt := c.store.now().Add(c.store.ttl).UTC()

	_, err := c.store.db.ExecContext(ctx, `
		INSERT INTO embedding_cache (key, document_id, vector, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			document_id = excluded.document_id,
			vector = excluded.vector,
			expires_at = excluded.expires_at
	`, key, documentID, float32SliceToBytes(vector), expiresAt)

	if err != nil {
		return fmt.Errorf("saving cache entry: %w", err)
	}
	return nil
}

// InvalidateDocument removes entries associated with a document.
func (c *embeddingCache) InvalidateDocument(ctx context.Context, documentID string) error {
	_, err := c.store.db.ExecContext(ctx,
		"DELETE FROM embedding_cache WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("invalidating document cache: %w", err)
	}
	return nil
}

// InvalidateAll flushes everything.
func (c *embeddingCache) InvalidateAll(ctx context.Context) error {
	_, err := c.store.db.ExecContext(ctx, "DELETE FROM embedding_cache")
	if err != nil {
		return fmt.Errorf("flushing embedding cache: %w", err)
	}
	return nil
}

// Close is a no-op: the owning Store closes the shared connection.
func (c *embeddingCache) Close() error { return nil }

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
