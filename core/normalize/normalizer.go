// Package normalize holds the text cleaning rules shared by every parser,
// and the hashing normalization used for content-addressed chunk ids.
package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// punctuation maps smart punctuation and invisible characters to plain text.
var punctuation = strings.NewReplacer(
	"\u200B", " ", // zero-width space
	"\u00A0", " ",
	"\u200E", "", "\u200F", "",
	"\u202A", "", "\u202B", "", "\u202C", "", "\u202D", "", "\u202E", "",
	"\uFEFF", "",
	"\u201C", `"`, "\u201D", `"`, "\u201E", `"`,
	"\u2018", "'", "\u2019", "'", "\u201A", "'",
	"\u2013", "-", "\u2014", "-",
	"\u2026", "...",
)

// markdown renders tables as pipe rows. Header promotion keeps a table
// without <th> cells from gaining an empty header line.
var markdown = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(
			table.WithHeaderPromotion(true),
			table.WithSkipEmptyRows(true),
		),
	),
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	nonWord    = regexp.MustCompile(`[^\p{L}\p{N}_]+`)
)

// Clean strips invisible characters, normalizes smart punctuation and
// collapses all newlines and whitespace runs to single spaces.
func Clean(text string) string {
	text = punctuation.Replace(text)
	text = whitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// CleanLines applies Clean to each line and drops the empty ones, keeping
// line breaks between heading paths and body text.
func CleanLines(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = Clean(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// ForHash case-folds text and replaces every non-word run with a single
// space. Two texts that differ only by case or punctuation normalize equal.
func ForHash(text string) string {
	text = strings.ToLower(Clean(text))
	text = nonWord.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// Markdown converts an HTML fragment to Markdown. Tables and lists keep
// their cell and item boundaries, which plain text extraction loses.
func Markdown(html string) (string, error) {
	md, err := markdown.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}
	return md, nil
}
