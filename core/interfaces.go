// Package core defines the shared types and pipeline interfaces for DocPipe.
// Each stage of the pipeline is a small, testable interface.
package core

import "context"

// FetchResult holds the raw HTML and response metadata from a fetch.
type FetchResult struct {
	URL         string
	StatusCode  int
	ContentType string
	HTML        string
}

// ContentChunk is the unit of parse output handed to the embedding stage.
// Chunks are immutable once emitted.
type ContentChunk struct {
	ChunkID       string   `json:"chunk_id"`
	SourceFile    string   `json:"source_file"`
	FileExtension string   `json:"file_extension"`
	PageNumber    int      `json:"page_number"`
	SectionHeader *string  `json:"section_header"`
	DocumentTitle *string  `json:"document_title"`
	TextContent   string   `json:"text_content"`
	Tags          []string `json:"tags"`
}

// Metadata flattens the provenance fields for the embedding collaborator.
func (c ContentChunk) Metadata() map[string]any {
	meta := map[string]any{
		"source_file":    c.SourceFile,
		"file_extension": c.FileExtension,
		"page_number":    c.PageNumber,
	}
	if c.SectionHeader != nil {
		meta["section_header"] = *c.SectionHeader
	}
	if c.DocumentTitle != nil {
		meta["document_title"] = *c.DocumentTitle
	}
	if len(c.Tags) > 0 {
		meta["tags"] = append([]string(nil), c.Tags...)
	}
	return meta
}

// ErrorRecord describes one item that failed inside a stage.
type ErrorRecord struct {
	Stage   string `json:"stage,omitempty"`
	Item    string `json:"item"`
	Message string `json:"message"`
}

// StageRun is the transient result of one stage transition.
type StageRun struct {
	Outputs []string
	Errors  []ErrorRecord
}

// Degraded reports whether the run recorded item-level failures.
func (r StageRun) Degraded() bool {
	return len(r.Errors) > 0
}

// EmbedRecord is what the embedding collaborator receives per chunk.
type EmbedRecord struct {
	ID       string
	Text     string
	Metadata map[string]any
}

// Fetcher retrieves raw HTML from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// SourceExtractor pulls raw documents from a source into outputDir.
// Item-level failures are returned as records, not as the error.
type SourceExtractor interface {
	Extract(ctx context.Context, input string, outputDir string) ([]string, []ErrorRecord, error)
}

// Embedder ingests a batch of chunks into a named collection.
type Embedder interface {
	Ingest(ctx context.Context, collection string, records []EmbedRecord) error
}
