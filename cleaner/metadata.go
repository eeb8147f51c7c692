package cleaner

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/scrapeurl/models"
)

// ExtractMetadata reads page metadata from the unfiltered tree.
//
// Singleton tags take the first match; og:locale:alternate collects every
// match in document order. sourceURL and statusCode are copied verbatim.
// The returned metadata is always usable: on error it still carries
// SourceURL, StatusCode and whatever was read before the failure.
func ExtractMetadata(t *Tree, sourceURL string, statusCode int) (meta models.PageMetadata, err error) {
	meta = models.PageMetadata{
		SourceURL:         sourceURL,
		StatusCode:        statusCode,
		OGLocaleAlternate: []string{},
	}
	if t == nil || t.doc == nil {
		return meta, errNilTree
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cleaner: metadata extraction: %v", r)
		}
	}()

	doc := t.doc
	title := doc.Find("head title").First()
	if title.Length() == 0 {
		title = doc.Find("title").First()
	}
	meta.Title = collapseSpace(title.Text())

	if lang, ok := doc.Find("html").First().Attr("lang"); ok {
		meta.Language = strings.TrimSpace(lang)
	}

	seen := make(map[string]bool)
	first := func(key string, dst *string, v string) {
		if seen[key] {
			return
		}
		seen[key] = true
		*dst = v
	}

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content, ok := s.Attr("content")
		if !ok {
			return
		}
		content = strings.TrimSpace(content)

		if name, ok := s.Attr("name"); ok {
			switch strings.ToLower(strings.TrimSpace(name)) {
			case "description":
				first("Description", &meta.Description, content)
			case "keywords":
				first("Keywords", &meta.Keywords, content)
			case "robots":
				first("Robots", &meta.Robots, content)
			}
		}

		prop, ok := s.Attr("property")
		if !ok {
			return
		}
		switch strings.ToLower(strings.TrimSpace(prop)) {
		case "og:title":
			first("OGTitle", &meta.OGTitle, content)
		case "og:description":
			first("OGDescription", &meta.OGDescription, content)
		case "og:url":
			first("OGURL", &meta.OGURL, content)
		case "og:image":
			first("OGImage", &meta.OGImage, content)
		case "og:type":
			first("OGType", &meta.OGType, content)
		case "og:locale":
			first("OGLocale", &meta.OGLocale, content)
		case "og:site_name":
			first("OGSiteName", &meta.OGSiteName, content)
		case "og:locale:alternate":
			if content != "" {
				meta.OGLocaleAlternate = append(meta.OGLocaleAlternate, content)
			}
		}
	})

	return meta, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
