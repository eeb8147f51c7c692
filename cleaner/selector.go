package cleaner

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/scrapeurl/models"
)

// alwaysRemoved never carries readable content.
const alwaysRemoved = "head, script, style, noscript, template"

// nonMainSelectors match page chrome dropped when only the main content is
// wanted.
var nonMainSelectors = []string{
	"header", "footer", "nav", "aside",
	".header", ".top", ".navbar", "#header",
	".footer", ".bottom", "#footer",
	".sidebar", ".side", ".aside", "#sidebar",
	".modal", ".popup", "#modal", ".overlay",
	".ad", ".ads", ".advert", "#ad",
	".lang-selector", ".language", "#language-selector",
	".social", ".social-media", ".social-links", "#social",
	".menu", ".nav", ".navigation", "#nav",
	".breadcrumbs", "#breadcrumbs",
	".share", "#share",
	".widget", "#widget",
	".cookie", "#cookie",
}

// mainMarkers identify the main region; chrome selectors never remove an
// element that is or contains one of them.
const mainMarkers = "main, [role=main], #main"

// SelectOptions controls content selection.
type SelectOptions struct {
	OnlyMainContent bool
	ExcludeTags     []string
	Mode            models.ExtractMode
}

// Select returns a filtered copy of t; t itself is not modified.
//
// Processing order:
//  1. Drop non-content elements (head, script, style, ...).
//  2. Remove elements matching ExcludeTags.
//  3. When OnlyMainContent is set, restrict to the main region using Mode.
//  4. Remove ExcludeTags again, since a strategy may rebuild the body.
//
// Selecting an already selected tree with the same options yields the same
// tree.
func Select(log *slog.Logger, t *Tree, opts SelectOptions) *Tree {
	out := t.Clone()
	doc := out.doc

	doc.Find(alwaysRemoved).Remove()
	removeExcluded(doc, opts.ExcludeTags)

	if opts.OnlyMainContent {
		switch opts.Mode {
		case models.ExtractPruning:
			pruneBody(doc)
		case models.ExtractReadability:
			if !extractReadable(log, doc) {
				removeChrome(doc)
			}
		default:
			removeChrome(doc)
		}
		removeExcluded(doc, opts.ExcludeTags)
	}

	log.Debug("content selected",
		"onlyMainContent", opts.OnlyMainContent,
		"mode", string(opts.Mode),
		"excludeTags", len(opts.ExcludeTags))
	return out
}

func removeExcluded(doc *goquery.Document, selectors []string) {
	for _, sel := range selectors {
		if strings.TrimSpace(sel) == "" {
			continue
		}
		doc.Find(sel).Remove()
	}
}

// removeChrome deletes navigation, footers and similar page furniture.
func removeChrome(doc *goquery.Document) {
	for _, sel := range nonMainSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			switch goquery.NodeName(s) {
			case "html", "body":
				return
			}
			if s.Is(mainMarkers) || s.Find(mainMarkers).Length() > 0 {
				return
			}
			s.Remove()
		})
	}
}
