package models

// ScrapeRequest is the payload for POST /v1/scrape.
type ScrapeRequest struct {
	// URL is the target page to scrape. Required.
	URL string `json:"url" binding:"required,url"`

	RawScrapeOptions

	// MaxAge enables the result cache: a cached document younger than
	// MaxAge milliseconds is returned instead of fetching again.
	MaxAge int `json:"maxAge,omitempty" binding:"omitempty,min=0"`
}
