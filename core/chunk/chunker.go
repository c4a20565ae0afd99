// Package chunk turns candidate text blocks into emitted ContentChunks.
// Word count stands in for token count when splitting oversized blocks.
package chunk

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gaurav-prasanna/docpipe/core"
	"github.com/gaurav-prasanna/docpipe/core/dedup"
	"github.com/gaurav-prasanna/docpipe/core/logger"
	"github.com/gaurav-prasanna/docpipe/core/normalize"
)

// Splitter splits text into windows of at most MaxWords words.
type Splitter struct {
	MaxWords int
}

// NewSplitter creates a Splitter. Defaults to 512 if maxWords <= 0.
func NewSplitter(maxWords int) Splitter {
	if maxWords <= 0 {
		maxWords = 512
	}
	return Splitter{MaxWords: maxWords}
}

// Split returns text unchanged when it fits in one window. Otherwise each
// window is a contiguous block of words joined by spaces, and every window
// after the first starts with header (when non-empty) on its own line.
func (s Splitter) Split(text, header string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= s.MaxWords {
		return []string{text}
	}

	var windows []string
	for i := 0; i < len(words); i += s.MaxWords {
		end := i + s.MaxWords
		if end > len(words) {
			end = len(words)
		}
		window := strings.Join(words[i:end], " ")
		if i > 0 && header != "" {
			window = header + "\n" + window
		}
		windows = append(windows, window)
	}
	return windows
}

// Document carries the provenance shared by every chunk of one source file.
type Document struct {
	Path  string
	Title *string
}

// SourceFile is the file name without directory or extension.
func (d Document) SourceFile() string {
	base := filepath.Base(d.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Extension is the lower-case extension without the dot.
func (d Document) Extension() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(d.Path), "."))
}

// Candidate is a block of text a parser proposes as a chunk.
type Candidate struct {
	Header *string
	Page   int
	Text   string
}

// Emitter applies the length, size and duplicate rules shared by every parser.
type Emitter struct {
	MinLength int
	Splitter  Splitter
	Filter    dedup.Filter
	Seen      *dedup.Set
	Logger    *logger.Logger
}

// NewEmitter creates an Emitter sharing seen across every document it handles.
func NewEmitter(minLength int, splitter Splitter, filter dedup.Filter, seen *dedup.Set, log *logger.Logger) *Emitter {
	if seen == nil {
		seen = dedup.NewSet()
	}
	return &Emitter{
		MinLength: minLength,
		Splitter:  splitter,
		Filter:    filter,
		Seen:      seen,
		Logger:    logger.OrNop(log),
	}
}

// Emit cleans c, drops it when shorter than MinLength, splits it and returns
// the pieces that pass the duplicate filter. Candidates with no page get 1.
func (e *Emitter) Emit(doc Document, c Candidate) []core.ContentChunk {
	text := normalize.CleanLines(c.Text)
	if utf8.RuneCountInString(text) < e.MinLength {
		e.Logger.Debug("chunk rejected", "file", doc.Path, "reason", "too short", "length", utf8.RuneCountInString(text))
		return nil
	}

	page := c.Page
	if page <= 0 {
		page = 1
	}
	header := ""
	if c.Header != nil {
		header = *c.Header
	}

	var out []core.ContentChunk
	for _, piece := range e.Splitter.Split(text, header) {
		id, ok, reason := e.Filter.ShouldKeep(piece, e.Seen)
		if !ok {
			e.Logger.Debug("chunk rejected", "file", doc.Path, "chunk_id", id, "reason", reason.String())
			continue
		}
		out = append(out, core.ContentChunk{
			ChunkID:       id,
			SourceFile:    doc.SourceFile(),
			FileExtension: doc.Extension(),
			PageNumber:    page,
			SectionHeader: c.Header,
			DocumentTitle: doc.Title,
			TextContent:   piece,
			Tags:          []string{},
		})
	}
	return out
}

// EmitAll emits every candidate in order.
func (e *Emitter) EmitAll(doc Document, candidates []Candidate) []core.ContentChunk {
	out := []core.ContentChunk{}
	for _, c := range candidates {
		out = append(out, e.Emit(doc, c)...)
	}
	return out
}
