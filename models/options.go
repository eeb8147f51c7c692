package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/andybalholm/cascadia"
)

// Format is an output format kind a caller can request.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatRawHTML  Format = "rawHtml"
)

// supportedFormats lists every format in canonical order.
var supportedFormats = []Format{FormatMarkdown, FormatHTML, FormatRawHTML}

// ExtractMode selects the main-content strategy used when onlyMainContent
// is enabled.
type ExtractMode string

const (
	// ExtractSelectors removes known page chrome (nav, header, footer,
	// sidebars, ads) by selector.
	ExtractSelectors ExtractMode = "selectors"
	// ExtractPruning scores top-level body blocks and drops boilerplate.
	ExtractPruning ExtractMode = "pruning"
	// ExtractReadability replaces the body with the readability article.
	ExtractReadability ExtractMode = "readability"
)

const (
	// DefaultTimeout is applied when the caller does not set one.
	DefaultTimeout = 30 * time.Second
	// MaxTimeout bounds any caller-supplied timeout.
	MaxTimeout = 5 * time.Minute
)

// RawScrapeOptions is the wire form of the scrape options as sent by
// callers. Every field is optional.
type RawScrapeOptions struct {
	// Formats lists the requested outputs: "markdown", "html", "rawHtml".
	// Default: ["markdown"].
	Formats []string `json:"formats,omitempty"`

	// OnlyMainContent strips page chrome (navigation, footer, sidebars).
	// Default: true.
	OnlyMainContent *bool `json:"onlyMainContent,omitempty"`

	// ExcludeTags is a list of CSS selectors whose matches are removed
	// from the content before conversion.
	ExcludeTags []string `json:"excludeTags,omitempty"`

	// Timeout is the per-request deadline in milliseconds. Default: 30000.
	Timeout int `json:"timeout,omitempty"`

	// ExtractMode picks the main-content strategy. Default: "selectors".
	ExtractMode string `json:"extractMode,omitempty"`
}

// ScrapeOptions is the validated, immutable option set consumed by the
// pipeline. The only ways to obtain a usable value are ParseOptions and
// DefaultScrapeOptions; the zero value is rejected by the scraper.
type ScrapeOptions struct {
	formats         []Format
	onlyMainContent bool
	excludeTags     []string
	timeout         time.Duration
	extractMode     ExtractMode
}

// DefaultScrapeOptions returns the options used when a caller sends none.
func DefaultScrapeOptions() ScrapeOptions {
	opts, _ := ParseOptions(RawScrapeOptions{})
	return opts
}

// ParseOptions validates raw options and applies defaults. Unknown
// formats, unknown extract modes, out-of-range timeouts and selectors
// that do not compile are rejected here so the pipeline never has to.
func ParseOptions(raw RawScrapeOptions) (ScrapeOptions, error) {
	opts := ScrapeOptions{
		onlyMainContent: true,
		timeout:         DefaultTimeout,
		extractMode:     ExtractSelectors,
	}

	if len(raw.Formats) == 0 {
		opts.formats = []Format{FormatMarkdown}
	} else {
		seen := make(map[Format]struct{}, len(raw.Formats))
		for _, f := range raw.Formats {
			format := Format(f)
			if !slices.Contains(supportedFormats, format) {
				return ScrapeOptions{}, NewScrapeError(ErrCodeInvalidInput,
					fmt.Sprintf("unsupported format %q", f), nil)
			}
			seen[format] = struct{}{}
		}
		for _, f := range supportedFormats {
			if _, ok := seen[f]; ok {
				opts.formats = append(opts.formats, f)
			}
		}
	}

	if raw.OnlyMainContent != nil {
		opts.onlyMainContent = *raw.OnlyMainContent
	}

	for _, sel := range raw.ExcludeTags {
		if _, err := cascadia.ParseGroup(sel); err != nil {
			return ScrapeOptions{}, NewScrapeError(ErrCodeInvalidInput,
				fmt.Sprintf("invalid excludeTags selector %q", sel), err)
		}
	}
	opts.excludeTags = slices.Clone(raw.ExcludeTags)

	if raw.Timeout < 0 {
		return ScrapeOptions{}, NewScrapeError(ErrCodeInvalidInput, "timeout must not be negative", nil)
	}
	if int64(raw.Timeout) > MaxTimeout.Milliseconds() {
		return ScrapeOptions{}, NewScrapeError(ErrCodeInvalidInput,
			fmt.Sprintf("timeout exceeds maximum of %d ms", MaxTimeout.Milliseconds()), nil)
	}
	if raw.Timeout > 0 {
		opts.timeout = time.Duration(raw.Timeout) * time.Millisecond
	}

	switch mode := ExtractMode(raw.ExtractMode); mode {
	case "":
	case ExtractSelectors, ExtractPruning, ExtractReadability:
		opts.extractMode = mode
	default:
		return ScrapeOptions{}, NewScrapeError(ErrCodeInvalidInput,
			fmt.Sprintf("unsupported extractMode %q", raw.ExtractMode), nil)
	}

	return opts, nil
}

// Valid reports whether the options came out of ParseOptions.
func (o ScrapeOptions) Valid() bool { return len(o.formats) > 0 }

// Formats returns the requested formats in canonical order.
func (o ScrapeOptions) Formats() []Format { return slices.Clone(o.formats) }

// Wants reports whether format f was requested.
func (o ScrapeOptions) Wants(f Format) bool { return slices.Contains(o.formats, f) }

func (o ScrapeOptions) OnlyMainContent() bool { return o.onlyMainContent }

// ExcludeTags returns the exclusion selectors in caller order.
func (o ScrapeOptions) ExcludeTags() []string { return slices.Clone(o.excludeTags) }

func (o ScrapeOptions) Timeout() time.Duration { return o.timeout }

func (o ScrapeOptions) ExtractMode() ExtractMode { return o.extractMode }

// Raw converts the options back to their wire form.
func (o ScrapeOptions) Raw() RawScrapeOptions {
	formats := make([]string, len(o.formats))
	for i, f := range o.formats {
		formats[i] = string(f)
	}
	only := o.onlyMainContent
	return RawScrapeOptions{
		Formats:         formats,
		OnlyMainContent: &only,
		ExcludeTags:     slices.Clone(o.excludeTags),
		Timeout:         int(o.timeout.Milliseconds()),
		ExtractMode:     string(o.extractMode),
	}
}
