// Package pdf turns PDF payloads into Markdown text.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Result is what could be recovered from a PDF.
type Result struct {
	// Markdown holds the page text in reading order, pages separated by a
	// blank line.
	Markdown string

	// Title comes from the document information dictionary when present.
	Title string

	// Pages is the page count reported by the cross-reference table.
	Pages int
}

// ErrEmpty is returned when the payload has no bytes.
var ErrEmpty = errors.New("pdf: empty payload")

// Extract reads every page of raw. When some pages fail the text of the
// others is still returned together with an error describing the first
// failure, so callers can keep partial output.
func Extract(raw []byte) (res Result, err error) {
	if len(raw) == 0 {
		return Result{}, ErrEmpty
	}

	defer func() {
		// The reader panics on some malformed cross-reference tables.
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf: malformed document: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return Result{}, fmt.Errorf("pdf: open: %w", err)
	}

	res.Pages = reader.NumPage()
	res.Title = documentTitle(reader)

	var (
		parts    []string
		firstErr error
	)
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= res.Pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		text, perr := page.GetPlainText(fonts)
		if perr != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("pdf: page %d: %w", i, perr)
			}
			continue
		}
		if md := toMarkdown(text); md != "" {
			parts = append(parts, md)
		}
	}

	res.Markdown = strings.Join(parts, "\n\n")
	if firstErr == nil && res.Markdown == "" && res.Pages > 0 {
		firstErr = errors.New("pdf: no extractable text")
	}
	return res, firstErr
}

func documentTitle(r *pdf.Reader) string {
	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return ""
	}
	return strings.TrimSpace(info.Key("Title").Text())
}

// toMarkdown normalises page text into paragraphs: runs of blank lines
// become one paragraph break and trailing spaces are dropped.
func toMarkdown(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var (
		b     strings.Builder
		blank bool
	)
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			blank = b.Len() > 0
			continue
		}
		if b.Len() > 0 {
			if blank {
				b.WriteString("\n\n")
			} else {
				b.WriteByte('\n')
			}
		}
		blank = false
		b.WriteString(line)
	}
	return b.String()
}
