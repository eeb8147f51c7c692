package cleaner

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/microcosm-cc/bluemonday"
	"github.com/use-agent/scrapeurl/models"
)

// Cleaner turns a selected Tree into output formats. It is created once
// and shared by every scrape; both the Markdown converter and the HTML
// policy are goroutine-safe.
type Cleaner struct {
	mdConverter *converter.Converter
	sanitizer   *bluemonday.Policy
}

// NewCleaner initialises the Cleaner with a pre-configured Markdown
// converter and HTML sanitizer.
func NewCleaner() *Cleaner {
	return &Cleaner{
		mdConverter: newMarkdownConverter(),
		sanitizer:   newSanitizer(),
	}
}

// Convert renders t as format. The tree is only read: it is serialised once
// and every format works from that string, so converting the same tree to
// several formats yields the same results in any order.
//
// FormatRawHTML is not derived from a tree; callers take it from the fetched
// payload.
func (c *Cleaner) Convert(t *Tree, format models.Format) (string, error) {
	body, err := t.BodyHTML()
	if err != nil {
		return "", err
	}

	switch format {
	case models.FormatMarkdown:
		md, err := ToMarkdown(c.mdConverter, body)
		if err != nil {
			return "", models.NewScrapeError(models.ErrCodeReadability, "markdown conversion failed", err)
		}
		return strings.TrimSpace(md), nil
	case models.FormatHTML:
		return strings.TrimSpace(c.sanitizer.Sanitize(body)), nil
	default:
		return "", fmt.Errorf("cleaner: format %q is not derived from the document tree", format)
	}
}
