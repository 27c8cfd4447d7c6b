// Package panel reads business fields out of a rendered detail panel.
// Extraction is written against the Panel capability rather than a live
// browser, so the same fallback chains run over HTML captured from a
// tab and over fixture documents in tests.
package panel

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Panel is the minimal read surface the extractor needs from a loaded
// detail panel. Lookups that miss return the zero value, never an
// error.
type Panel interface {
	// Text returns the trimmed text of the first element matching the
	// selector, or "" when nothing matches.
	Text(selector string) string
	// Attr returns the named attribute of the first element matching
	// the selector, or "" when the element or attribute is absent.
	Attr(selector, name string) string
	// EachText returns the trimmed text of every element matching the
	// selector, in document order.
	EachText(selector string) []string
}

// Document is a Panel over a static HTML snapshot.
type Document struct {
	doc *goquery.Document
}

// FromHTML parses a detail-panel snapshot into a Document.
func FromHTML(html string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return &Document{doc: doc}, nil
}

func (d *Document) Text(selector string) string {
	return strings.TrimSpace(d.doc.Find(selector).First().Text())
}

func (d *Document) Attr(selector, name string) string {
	val, _ := d.doc.Find(selector).First().Attr(name)
	return val
}

func (d *Document) EachText(selector string) []string {
	var out []string
	d.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, strings.TrimSpace(sel.Text()))
	})
	return out
}
