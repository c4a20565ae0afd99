// Package extract prepares a raw HTML page for chunking.
// It isolates the main content by:
//  1. Removing noise elements (scripts, forms, nav, footer, media)
//  2. Finding the best content container (<main>, <article>, or <body>)
package extract

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"

	"github.com/gaurav-prasanna/docpipe/core"
	"github.com/gaurav-prasanna/docpipe/core/normalize"
)

// noiseSelectors are HTML elements removed before extraction.
// Headers are kept since they often hold the page's top heading.
var noiseSelectors = []string{
	"script", "style", "noscript", "template",
	"nav", "footer",
	"img", "picture", "figure", "figcaption",
	"iframe", "video", "audio",
	"svg", "canvas",
	"form", "button", "input", "select", "textarea",
	".sidebar", ".menu", ".navigation", ".ads", ".advertisement",
}

// Page is a sanitized HTML document.
type Page struct {
	Doc     *goquery.Document
	Content *goquery.Selection
	Title   *string
}

// HTMLExtractor strips noise from HTML and selects the main content.
type HTMLExtractor struct{}

// New creates an HTMLExtractor.
func New() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Extract parses r and returns the cleaned page. The title comes from
// <title> and is nil when absent or blank.
func (e *HTMLExtractor) Extract(r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing HTML: %v", core.ErrFormat, err)
	}

	var title *string
	if t := normalize.Clean(doc.Find("title").First().Text()); t != "" {
		title = &t
	}

	// Remove noise elements first (operates on the whole document).
	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	// <main> is the most semantically correct, then <article>, then <body>.
	var content *goquery.Selection
	for _, tag := range []string{"main", "article", "body"} {
		sel := doc.Find(tag)
		if sel.Length() > 0 {
			content = sel.First()
			break
		}
	}
	if content == nil {
		content = doc.Selection
	}

	return &Page{Doc: doc, Content: content, Title: title}, nil
}
