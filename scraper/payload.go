package scraper

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/use-agent/scrapeurl/models"
)

// payload is the content-type variant of a classified outcome. The branch
// is chosen once, right after classification.
type payload interface {
	branch() string
}

type pdfPayload struct{ data []byte }

type htmlPayload struct{ data []byte }

func (pdfPayload) branch() string  { return "pdf" }
func (htmlPayload) branch() string { return "html" }

// detectPayload trusts a PDF Content-Type and otherwise sniffs the bytes,
// since origins often serve PDFs as application/octet-stream. Everything
// that is not a PDF takes the HTML branch.
func detectPayload(o models.FetchOutcome) payload {
	if isPDF(o.ContentType, o.Body) {
		return pdfPayload{data: o.Body}
	}
	return htmlPayload{data: o.Body}
}

func isPDF(contentType string, body []byte) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && strings.EqualFold(mt, "application/pdf") {
		return true
	}
	if len(body) == 0 {
		return false
	}
	return mimetype.Detect(body).Is("application/pdf")
}
