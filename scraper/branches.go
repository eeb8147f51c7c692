package scraper

import (
	"errors"
	"html"
	"strings"

	"github.com/use-agent/scrapeurl/cleaner"
	"github.com/use-agent/scrapeurl/models"
	"github.com/use-agent/scrapeurl/pdf"
)

// htmlBranch parses the payload, selects content from a copy of the tree,
// converts every requested format from that one selected tree and reads
// metadata from the unfiltered original.
func (r *run) htmlBranch(p htmlPayload, status int) (*models.ScrapeDocument, *models.ScrapeError) {
	doc := newDocument(r.url, status)
	r.doc = doc
	var softErrs []string

	if r.opts.Wants(models.FormatRawHTML) {
		doc.Set(models.FormatRawHTML, string(p.data))
	}

	log := r.stage("parse")
	tree, err := cleaner.ParseHTML(p.data, r.url)
	if err != nil {
		log.Error("html parse failed", "error", err)
		if !hasOutput(doc) {
			return nil, models.NewScrapeError(models.ErrCodeReadability, "could not parse document", err)
		}
		doc.Metadata.Error = "html parse failed: " + err.Error()
		return doc, nil
	}

	selected := cleaner.Select(r.stage("select"), tree, cleaner.SelectOptions{
		OnlyMainContent: r.opts.OnlyMainContent(),
		ExcludeTags:     r.opts.ExcludeTags(),
		Mode:            r.opts.ExtractMode(),
	})

	log = r.stage("convert")
	var convErrs []error
	for _, f := range r.opts.Formats() {
		if f == models.FormatRawHTML {
			continue
		}
		out, err := r.s.cleaner.Convert(selected, f)
		if err != nil {
			log.Error("conversion failed", "format", string(f), "error", err)
			convErrs = append(convErrs, err)
			softErrs = append(softErrs, string(f)+" conversion failed: "+err.Error())
			continue
		}
		doc.Set(f, out)
		log.Debug("converted", "format", string(f), "chars", len(out), "tokens", cleaner.EstimateTokens(out))
	}

	log = r.stage("metadata")
	meta, err := cleaner.ExtractMetadata(tree, r.url, status)
	if err != nil {
		log.Warn("metadata extraction degraded", "error", err)
		softErrs = append(softErrs, "metadata extraction failed: "+err.Error())
	} else {
		log.Debug("metadata extracted", "title", meta.Title)
	}
	doc.Metadata = meta

	if !hasOutput(doc) {
		return nil, models.NewScrapeError(models.ErrCodeReadability, "no requested format could be produced", errors.Join(convErrs...))
	}
	doc.Metadata.Error = strings.Join(softErrs, "; ")
	return doc, nil
}

// pdfBranch extracts text straight from the payload. A PDF that cannot be
// read is a soft error: the document is still returned with whatever text
// was recovered.
func (r *run) pdfBranch(p pdfPayload, status int) (*models.ScrapeDocument, *models.ScrapeError) {
	log := r.stage("pdf")
	doc := newDocument(r.url, status)
	r.doc = doc

	res, err := pdf.Extract(p.data)
	if err != nil {
		log.Warn("pdf extraction degraded", "error", err)
		doc.Metadata.Error = "pdf extraction failed: " + err.Error()
	} else {
		log.Info("pdf extracted", "pages", res.Pages, "tokens", cleaner.EstimateTokens(res.Markdown))
	}
	doc.Metadata.Title = res.Title

	for _, f := range r.opts.Formats() {
		switch f {
		case models.FormatMarkdown:
			doc.Set(f, res.Markdown)
		case models.FormatHTML:
			doc.Set(f, paragraphsToHTML(res.Markdown))
		case models.FormatRawHTML:
			log.Warn("rawHtml is not available for PDF documents")
		}
	}
	return doc, nil
}

// newDocument starts a document whose metadata already carries the
// request's source URL and status, so a document salvaged after a fault
// still reports them.
func newDocument(sourceURL string, status int) *models.ScrapeDocument {
	return &models.ScrapeDocument{
		Metadata: models.PageMetadata{
			SourceURL:         sourceURL,
			StatusCode:        status,
			OGLocaleAlternate: []string{},
		},
	}
}

// paragraphsToHTML renders blank-line separated text as escaped paragraphs.
func paragraphsToHTML(text string) string {
	var b strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(para), "\n", "<br>"))
		b.WriteString("</p>\n")
	}
	return strings.TrimSpace(b.String())
}
