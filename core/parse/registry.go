// Package parse turns sorted source documents into ContentChunks.
// One Parser is registered per file extension; every parser hands its
// candidate blocks to a shared chunk.Emitter.
package parse

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gaurav-prasanna/docpipe/core"
	"github.com/gaurav-prasanna/docpipe/core/chunk"
	"github.com/gaurav-prasanna/docpipe/core/logger"
)

// Parser extracts chunks from one file.
type Parser interface {
	Parse(path string, e *chunk.Emitter) ([]core.ContentChunk, error)
}

// Registry dispatches files to parsers by extension.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Default registers the HTML, PDF and DOCX parsers.
func Default(boilerplate *Boilerplate, log *logger.Logger) *Registry {
	r := NewRegistry()
	html := NewHTMLParser(boilerplate, log)
	r.Register("html", html)
	r.Register("htm", html)
	r.Register("pdf", NewPDFParser(log))
	r.Register("docx", NewDOCXParser(log))
	return r
}

// Register binds p to ext. The extension is case-insensitive and the
// leading dot is optional.
func (r *Registry) Register(ext string, p Parser) {
	r.parsers[normalizeExt(ext)] = p
}

// Supports reports whether a parser is registered for path's extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.parsers[normalizeExt(filepath.Ext(path))]
	return ok
}

// Extensions lists registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Parse dispatches path to its parser. An unregistered extension fails with
// ErrUnsupportedFormat and a missing or unreadable file with ErrIO.
func (r *Registry) Parse(path string, e *chunk.Emitter) ([]core.ContentChunk, error) {
	ext := normalizeExt(filepath.Ext(path))
	p, ok := r.parsers[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q (%s)", core.ErrUnsupportedFormat, ext, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrIO, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", core.ErrIO, path)
	}

	chunks, err := p.Parse(path, e)
	if err != nil {
		if errors.Is(err, core.ErrIO) || errors.Is(err, core.ErrFormat) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", core.ErrFormat, path, err)
	}
	if chunks == nil {
		chunks = []core.ContentChunk{}
	}
	return chunks, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
