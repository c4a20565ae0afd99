package parse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/gaurav-prasanna/docpipe/core"
	"github.com/gaurav-prasanna/docpipe/core/chunk"
	"github.com/gaurav-prasanna/docpipe/core/extract"
	"github.com/gaurav-prasanna/docpipe/core/normalize"
)

var (
	headingMatcher = cascadia.MustCompile("h1, h2, h3, h4, h5, h6")
	blockMatcher   = cascadia.MustCompile("p, ul, ol, table")
	linearMatcher  = cascadia.MustCompile("h1, h2, h3, h4, h5, h6, p, ul, ol, table")
)

// Boilerplate recognizes site chrome such as navigation and copyright lines.
type Boilerplate struct {
	patterns []*regexp.Regexp
}

// NewBoilerplate compiles patterns case-insensitively.
func NewBoilerplate(patterns []string) (*Boilerplate, error) {
	b := &Boilerplate{}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("%w: boilerplate pattern %q: %v", core.ErrInvalidConfig, p, err)
		}
		b.patterns = append(b.patterns, re)
	}
	return b, nil
}

// Match reports whether text matches any pattern. A nil Boilerplate matches nothing.
func (b *Boilerplate) Match(text string) bool {
	if b == nil {
		return false
	}
	for _, re := range b.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Strategy proposes chunk candidates for a sanitized page.
type Strategy interface {
	Name() string
	Candidates(page *extract.Page) []chunk.Candidate
}

// HeadingStrategy builds one candidate per heading: the heading path from
// the top level down, then the sibling content up to the next heading of
// equal or higher rank.
type HeadingStrategy struct {
	Boilerplate *Boilerplate
}

// Name identifies the strategy in logs.
func (s HeadingStrategy) Name() string { return "heading-hierarchy" }

type pathEntry struct {
	level int
	text  string
}

// Candidates returns nil when the page has no headings.
func (s HeadingStrategy) Candidates(page *extract.Page) []chunk.Candidate {
	headings := page.Content.FindMatcher(headingMatcher)
	if headings.Length() == 0 {
		return nil
	}

	var out []chunk.Candidate
	if preamble := s.preamble(page); preamble != "" {
		out = append(out, chunk.Candidate{
			Header: strPtr("Preamble"),
			Text:   "Preamble\n" + preamble,
		})
	}

	var path []pathEntry
	headings.Each(func(_ int, h *goquery.Selection) {
		node := h.Nodes[0]
		level := headingLevel(node)
		text := normalize.Clean(h.Text())

		for len(path) > 0 && path[len(path)-1].level >= level {
			path = path[:len(path)-1]
		}
		if text == "" {
			return
		}
		path = append(path, pathEntry{level: level, text: text})

		content := siblingContent(page.Doc, node, level)
		if content == "" {
			return
		}
		titles := make([]string, len(path))
		for i, p := range path {
			titles[i] = p.text
		}
		out = append(out, chunk.Candidate{
			Header: strPtr(text),
			Text:   strings.Join(titles, "\n") + "\n" + content,
		})
	})
	return out
}

// preamble collects block text appearing before the first heading.
func (s HeadingStrategy) preamble(page *extract.Page) string {
	var blocks []string
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if headingLevel(c) > 0 {
				return true
			}
			if blockMatcher.Match(c) {
				if text := blockText(page.Doc, c); text != "" && !s.Boilerplate.Match(text) {
					blocks = append(blocks, text)
				}
				continue
			}
			if walk(c) {
				return true
			}
		}
		return false
	}
	for _, n := range page.Content.Nodes {
		if walk(n) {
			break
		}
	}
	return strings.Join(blocks, "\n")
}

// siblingContent gathers the text of the siblings following a heading until
// a heading of rank level or higher. Deeper headings are included.
func siblingContent(doc *goquery.Document, heading *html.Node, level int) string {
	var parts []string
	for n := heading.NextSibling; n != nil; n = n.NextSibling {
		switch n.Type {
		case html.TextNode:
			if text := normalize.Clean(n.Data); text != "" {
				parts = append(parts, text)
			}
		case html.ElementNode:
			if l := headingLevel(n); l > 0 && l <= level {
				return strings.Join(parts, "\n")
			}
			if text := blockText(doc, n); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, "\n")
}

// BackupStrategy makes one linear pass over headings, paragraphs, lists and
// tables. Every heading opens a new chunk; other blocks append to the open one.
type BackupStrategy struct {
	Boilerplate *Boilerplate
}

// Name identifies the strategy in logs.
func (s BackupStrategy) Name() string { return "backup" }

type openChunk struct {
	header string
	lines  []string
}

// Candidates falls back to a single "Content" candidate when no heading is found.
func (s BackupStrategy) Candidates(page *extract.Page) []chunk.Candidate {
	var (
		out      []chunk.Candidate
		current  *openChunk
		preamble []string
		headings bool
	)
	flush := func() {
		if current != nil && len(current.lines) > 0 {
			out = append(out, chunk.Candidate{
				Header: strPtr(current.header),
				Text:   current.header + "\n" + strings.Join(current.lines, "\n"),
			})
		}
		current = nil
	}

	page.Content.FindMatcher(linearMatcher).Each(func(_ int, sel *goquery.Selection) {
		node := sel.Nodes[0]
		if nestedBlock(node) {
			return
		}
		if headingLevel(node) > 0 {
			text := normalize.Clean(sel.Text())
			if text == "" || s.Boilerplate.Match(text) {
				return
			}
			if !headings && len(preamble) > 0 {
				out = append(out, chunk.Candidate{
					Header: strPtr("Preamble"),
					Text:   "Preamble\n" + strings.Join(preamble, "\n"),
				})
			}
			headings = true
			flush()
			current = &openChunk{header: text}
			return
		}

		text := blockText(page.Doc, node)
		if text == "" || s.Boilerplate.Match(text) {
			return
		}
		if current != nil {
			current.lines = append(current.lines, text)
		} else if !headings {
			preamble = append(preamble, text)
		}
	})
	flush()

	if !headings && len(preamble) > 0 {
		out = append(out, chunk.Candidate{
			Header: strPtr("Content"),
			Text:   strings.Join(preamble, "\n"),
		})
	}
	return out
}

// blockText renders a node as cleaned text. Tables and lists go through
// Markdown so cells and items stay separated; everything else is flattened
// to one line.
func blockText(doc *goquery.Document, n *html.Node) string {
	sel := doc.FindNodes(n)
	switch n.DataAtom {
	case atom.Table, atom.Ul, atom.Ol:
		if outer, err := goquery.OuterHtml(sel); err == nil {
			if md, err := normalize.Markdown(outer); err == nil {
				return normalize.CleanLines(md)
			}
		}
	}
	return normalize.Clean(sel.Text())
}

// nestedBlock reports whether n sits inside another p, ul, ol or table.
func nestedBlock(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && blockMatcher.Match(p) {
			return true
		}
	}
	return false
}

func headingLevel(n *html.Node) int {
	if n == nil || n.Type != html.ElementNode {
		return 0
	}
	switch n.DataAtom {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

func strPtr(s string) *string { return &s }
