package search

import (
	"context"
	"errors"
)

// Searcher is the web-search capability consumed by the weather resolver.
// Results are free text with no schema guarantee; callers parse
// heuristically and must tolerate anything.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

var (
	// ErrEmptyQuery is returned when the query is empty after trimming.
	ErrEmptyQuery = errors.New("search query is empty")
	// ErrNoResults is returned when the results page yielded no usable text.
	ErrNoResults = errors.New("no search results")
	// ErrUpstream is returned on non-2xx responses from the search endpoint.
	ErrUpstream = errors.New("search upstream failure")
)
