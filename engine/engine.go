// Package engine implements the fetch collaborators: the layer that turns a
// URL into raw bytes. Engines report transport failures as errors; any
// HTTP response, whatever its status, is a result.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrBrowserUnavailable wraps failures to obtain a browser page, usually
// because Chrome crashed or was shut down.
var ErrBrowserUnavailable = errors.New("browser unavailable")

// Engine is the interface that all fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier (e.g. "http", "rod", "rod-stealth").
	Name() string

	// Fetch retrieves the resource for the given request. A non-nil error
	// means no response was obtained.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
	Stealth bool

	// Logger receives engine progress. Nil means slog.Default().
	Logger *slog.Logger
}

func (r *FetchRequest) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// FetchResult is the output of an engine fetch that obtained a response.
type FetchResult struct {
	Body        []byte
	ContentType string
	StatusCode  int
	FinalURL    string
	EngineName  string

	// NeedsRendering marks an HTML response that looks like a JavaScript
	// shell. The dispatcher keeps it as a fallback while heavier engines
	// try to render the page.
	NeedsRendering bool
}
