// Package domain contains the core entities of the scorpius retrieval
// system: chunks, queries, indexing reports and the errors shared across
// services and adapters. It has no dependencies on infrastructure.
package domain
