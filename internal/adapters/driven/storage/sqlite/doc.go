// Package sqlite provides persistent storage for chunks and cached
// embeddings on a single SQLite database file. Metadata filtering runs
// in SQL; similarity scoring runs in Go over the filtered rows.
package sqlite
