package engine

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrRequirementMissing is returned when a fetched document lacks the node
// the caller asked for.
var ErrRequirementMissing = errors.New("required node missing from document")

// Engine is the interface that all fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier ("http" or "rod").
	Name() string

	// Fetch retrieves the page document for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL     string
	Headers map[string]string
	Cookies []http.Cookie

	// Require is a CSS selector the document must contain. Engines that
	// cannot wait for it fail fast; browser engines wait up to Timeout.
	Require string

	Timeout time.Duration

	// Only restricts dispatch to the named engine. Empty means all.
	Only string
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	HTML       string
	StatusCode int
	FinalURL   string
	EngineName string
}
