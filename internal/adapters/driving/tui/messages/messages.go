// Package messages defines the Bubbletea message types that flow through
// the interactive query session.
package messages

import (
	"github.com/cisbeo/scorpius-rag/internal/core/domain"
)

// QueryCompleted carries the outcome of an asked question back to the
// model.
type QueryCompleted struct {
	Result *domain.QueryResult
	Err    error
}

// SettingsReloaded carries fresh query options after the config file
// changed on disk.
type SettingsReloaded struct {
	Options domain.QueryOptions
}
