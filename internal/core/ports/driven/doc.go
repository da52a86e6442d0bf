// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): embedding and completion capabilities, the
// vector store and the embedding cache.
package driven
