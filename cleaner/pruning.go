package cleaner

import (
	"math"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// blockSignals are the measurements taken on one top-level body block.
type blockSignals struct {
	textLen     int
	markupLen   int
	linkTextLen int
	tag         float64
	hint        float64
}

// score weighs the signals; a block is kept when the result is positive.
func (s blockSignals) score() float64 {
	var density, linkRatio float64
	if s.markupLen > 0 {
		density = float64(s.textLen) / float64(s.markupLen)
	}
	if s.textLen > 0 {
		linkRatio = float64(s.linkTextLen) / float64(s.textLen)
	}
	return 3*density -
		2*linkRatio +
		1.5*s.tag +
		s.hint +
		0.5*math.Log10(float64(s.textLen)+1)
}

var tagScores = map[string]float64{
	"article": 5, "main": 5, "section": 5,
	"nav": -5, "footer": -5, "aside": -5, "header": -5,
}

// Class and id words. Matching is per word, so "ad" does not hit "header"
// or "shadow".
var (
	contentWords = wordSet("content", "article", "post", "entry", "body", "main", "text", "story")
	chromeWords  = wordSet("sidebar", "ad", "ads", "advert", "widget", "nav", "navbar", "menu",
		"comment", "comments", "footer", "header", "banner", "popup", "modal", "cookie",
		"social", "share", "related", "recommend", "promo", "breadcrumb")
)

func wordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// pruneBody drops top-level body blocks that score as boilerplate. A block's
// score depends only on its own subtree, so pruning twice removes nothing
// more. When no block qualifies the body is left as is.
func pruneBody(doc *goquery.Document) {
	blocks := doc.Find("body").Children()
	if blocks.Length() == 0 {
		return
	}

	var drop []*goquery.Selection
	blocks.Each(func(_ int, el *goquery.Selection) {
		if measure(el).score() <= 0 {
			drop = append(drop, el)
		}
	})
	if len(drop) == blocks.Length() {
		return
	}
	for _, el := range drop {
		el.Remove()
	}
}

func measure(el *goquery.Selection) blockSignals {
	markup, _ := goquery.OuterHtml(el)
	s := blockSignals{
		textLen:   len(strings.TrimSpace(el.Text())),
		markupLen: len(markup),
		tag:       tagScores[goquery.NodeName(el)],
		hint:      classHint(el),
	}
	el.Find("a").Each(func(_ int, a *goquery.Selection) {
		s.linkTextLen += len(strings.TrimSpace(a.Text()))
	})
	return s
}

// classHint is +3 when a class or id word suggests content, -3 when one
// suggests chrome, and their sum when both do.
func classHint(el *goquery.Selection) float64 {
	class, _ := el.Attr("class")
	id, _ := el.Attr("id")
	words := strings.FieldsFunc(strings.ToLower(class+" "+id), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var positive, negative bool
	for _, w := range words {
		if _, ok := contentWords[w]; ok {
			positive = true
		}
		if _, ok := chromeWords[w]; ok {
			negative = true
		}
	}
	var hint float64
	if positive {
		hint += 3
	}
	if negative {
		hint -= 3
	}
	return hint
}
