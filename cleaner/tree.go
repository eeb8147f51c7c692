package cleaner

import (
	"bytes"
	"errors"
	nurl "net/url"

	"github.com/PuerkitoBio/goquery"
)

// Tree is a parsed HTML document owned by a single scrape. Stages that need
// to modify it work on a Clone so the original stays available for
// metadata extraction.
type Tree struct {
	doc *goquery.Document
}

// ParseHTML parses raw into a Tree. sourceURL is recorded on the document
// so strategies that resolve relative references can use it; it may be
// empty.
func ParseHTML(raw []byte, sourceURL string) (*Tree, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if sourceURL != "" {
		if u, err := nurl.Parse(sourceURL); err == nil {
			doc.Url = u
		}
	}
	return &Tree{doc: doc}, nil
}

// Clone returns a deep copy of t.
func (t *Tree) Clone() *Tree {
	root := t.doc.Selection.Clone()
	doc := goquery.NewDocumentFromNode(root.Nodes[0])
	doc.Url = t.doc.Url
	return &Tree{doc: doc}
}

// Document exposes the underlying goquery document for read access.
func (t *Tree) Document() *goquery.Document { return t.doc }

// BodyHTML renders the inner HTML of <body>.
func (t *Tree) BodyHTML() (string, error) {
	if t == nil || t.doc == nil {
		return "", errNilTree
	}
	body := t.doc.Find("body")
	if body.Length() == 0 {
		return t.doc.Html()
	}
	return body.Html()
}

// Text returns the trimmed visible text of <body>.
func (t *Tree) Text() string {
	return collapseSpace(t.doc.Find("body").Text())
}

var errNilTree = errors.New("cleaner: nil document tree")
