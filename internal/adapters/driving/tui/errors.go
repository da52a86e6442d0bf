package tui

import "errors"

// ErrNoQueryService is returned when a question is asked without a query
// service wired in.
var ErrNoQueryService = errors.New("no query service provided")
