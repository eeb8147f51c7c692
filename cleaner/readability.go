package cleaner

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the minimum TextContent length (in characters) for
// readability output to be considered valid.
const minContentLength = 50

// readablePage is the wrapper readability puts around its article.
const readablePage = "#readability-page-1"

// extractReadable replaces the body with the readability article. It
// returns false when readability could not find an article, leaving the
// document unchanged. A body that already holds an article is kept as is.
func extractReadable(log *slog.Logger, doc *goquery.Document) bool {
	body := doc.Find("body")
	if body.Find(readablePage).Length() > 0 {
		return true
	}

	html, err := doc.Html()
	if err != nil {
		return false
	}

	article, err := readability.FromReader(strings.NewReader(html), doc.Url)
	if err != nil {
		log.Warn("readability: extraction failed, falling back to selectors", "error", err)
		return false
	}
	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		log.Warn("readability: extracted content too short, falling back to selectors",
			"length", len(article.TextContent),
		)
		return false
	}

	body.SetHtml(article.Content)
	return true
}
