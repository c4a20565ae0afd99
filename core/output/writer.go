// Package output handles file naming and writing for DocPipe stage outputs.
// Crawled pages get flat names derived from their URL; parse results mirror
// the relative path of their source document.
package output

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gaurav-prasanna/docpipe/core"
	"github.com/gaurav-prasanna/docpipe/core/render"
)

// Writer writes parse-stage JSON documents to disk.
type Writer struct {
	renderer *render.JSONRenderer
}

// New creates a Writer.
func New() *Writer {
	return &Writer{renderer: render.NewJSONRenderer()}
}

// MirrorPath maps a file under inputRoot to its JSON output under outputRoot.
// The source extension is kept so manual.html and manual.htm stay distinct.
// Example: <in>/html/manual.html -> <out>/html/manual.html.json
func (w *Writer) MirrorPath(inputRoot, file, outputRoot string) (string, error) {
	rel, err := filepath.Rel(inputRoot, file)
	if err != nil {
		return "", fmt.Errorf("relative path of %s: %w", file, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", file, inputRoot)
	}
	rel += w.renderer.Extension()
	return filepath.Join(outputRoot, rel), nil
}

// WriteChunks writes chunks as a JSON array at path, creating parents.
func (w *Writer) WriteChunks(path string, chunks []core.ContentChunk) error {
	data, err := w.renderer.RenderChunks(chunks)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// WriteError writes an error sidecar at path, creating parents.
func (w *Writer) WriteError(path, message string) error {
	data, err := w.renderer.RenderError(message)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// ReadChunks reads a parse-stage document. ok is false for an error sidecar.
func (w *Writer) ReadChunks(path string) ([]core.ContentChunk, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", core.ErrIO, err)
	}
	chunks, _, ok, err := w.renderer.Decode(data)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", path, err)
	}
	return chunks, ok, nil
}

func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing file %s: %w", path, err)
	}
	return nil
}

// FilenameFromURL converts a URL into a flat .html filename.
// Example: https://example.com/docs/intro -> example.com_docs_intro.html
// An empty path becomes "index"; a query string is appended sanitized.
func FilenameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		// Fallback: sanitize the raw string.
		return withHTML(sanitize(rawURL))
	}

	parts := []string{sanitize(parsed.Host)}
	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		parts = append(parts, "index")
	} else {
		for _, seg := range strings.Split(path, "/") {
			if seg != "" {
				parts = append(parts, sanitize(seg))
			}
		}
	}
	if parsed.RawQuery != "" {
		parts = append(parts, sanitize(parsed.RawQuery))
	}
	return withHTML(strings.Join(parts, "_"))
}

func withHTML(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".html") {
		return name
	}
	return name + ".html"
}

// sanitize replaces characters outside [A-Za-z0-9.-] with underscores.
func sanitize(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '.' || ch == '-' {
			b.WriteRune(ch)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
