package models

import (
	"log/slog"
	"time"
)

// FetchOutcome is what the fetch collaborator produced for one request.
// TransportError is set only when the exchange could not complete; a
// response with any HTTP status is not a transport error.
type FetchOutcome struct {
	ContentType    string
	Body           []byte
	StatusCode     int
	FinalURL       string
	EngineName     string
	TransportError error
}

// PageMetadata holds page-level information extracted during scraping.
type PageMetadata struct {
	Title             string   `json:"title,omitempty"`
	Description       string   `json:"description,omitempty"`
	Keywords          string   `json:"keywords,omitempty"`
	Robots            string   `json:"robots,omitempty"`
	Language          string   `json:"language,omitempty"`
	OGTitle           string   `json:"ogTitle,omitempty"`
	OGDescription     string   `json:"ogDescription,omitempty"`
	OGURL             string   `json:"ogUrl,omitempty"`
	OGImage           string   `json:"ogImage,omitempty"`
	OGType            string   `json:"ogType,omitempty"`
	OGLocale          string   `json:"ogLocale,omitempty"`
	OGLocaleAlternate []string `json:"ogLocaleAlternate"`
	OGSiteName        string   `json:"ogSiteName,omitempty"`

	// SourceURL is the URL the caller asked for, verbatim.
	SourceURL string `json:"sourceURL"`

	// StatusCode is the origin's HTTP status, including error statuses.
	StatusCode int `json:"statusCode"`

	// Error describes a soft, document-level degradation. Empty on a clean
	// extraction.
	Error string `json:"error,omitempty"`
}

// ScrapeDocument carries one payload per requested format plus metadata.
// A nil format field was either not requested or not reached.
type ScrapeDocument struct {
	Markdown *string      `json:"markdown,omitempty"`
	HTML     *string      `json:"html,omitempty"`
	RawHTML  *string      `json:"rawHtml,omitempty"`
	Metadata PageMetadata `json:"metadata"`
}

// Set stores content under format f.
func (d *ScrapeDocument) Set(f Format, content string) {
	switch f {
	case FormatMarkdown:
		d.Markdown = &content
	case FormatHTML:
		d.HTML = &content
	case FormatRawHTML:
		d.RawHTML = &content
	}
}

// Get returns the content for format f and whether it is present.
func (d *ScrapeDocument) Get(f Format) (string, bool) {
	var p *string
	switch f {
	case FormatMarkdown:
		p = d.Markdown
	case FormatHTML:
		p = d.HTML
	case FormatRawHTML:
		p = d.RawHTML
	}
	if p == nil {
		return "", false
	}
	return *p, true
}

// LogEntry is one diagnostic record attributed to a scrape.
type LogEntry struct {
	ScrapeID  string     `json:"scrapeId"`
	Level     slog.Level `json:"level"`
	Stage     string     `json:"stage,omitempty"`
	Message   string     `json:"message"`
	Timestamp time.Time  `json:"timestamp"`
}

// ScrapeResult is the immutable outcome of one scrape.
type ScrapeResult struct {
	// ID is the correlation key the caller supplied.
	ID string `json:"id"`

	// Success is false only for hard failures (nothing retrievable).
	Success bool `json:"success"`

	// Document is present iff Success.
	Document *ScrapeDocument `json:"document,omitempty"`

	// Logs holds every entry recorded for ID, in emission order.
	Logs []LogEntry `json:"logs"`

	// Error is present iff !Success.
	Error string `json:"error,omitempty"`

	// Err carries the typed failure for transport layers.
	Err *ScrapeError `json:"-"`
}

// HealthResponse is the response for GET /v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}
