// Package render encodes parse-stage results as JSON documents.
// A source file produces either an array of chunks or an error sidecar
// object; both are written with two-space indentation.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gaurav-prasanna/docpipe/core"
)

// ErrorSidecar is written in place of the chunk array when a file fails.
type ErrorSidecar struct {
	Error string `json:"error"`
}

// JSONRenderer produces the parse-stage JSON documents.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// RenderChunks encodes chunks as an array. A nil slice encodes as [].
func (r *JSONRenderer) RenderChunks(chunks []core.ContentChunk) ([]byte, error) {
	if chunks == nil {
		chunks = []core.ContentChunk{}
	}
	for i := range chunks {
		if chunks[i].Tags == nil {
			chunks[i].Tags = []string{}
		}
	}
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

// RenderError encodes an error sidecar.
func (r *JSONRenderer) RenderError(message string) ([]byte, error) {
	data, err := json.MarshalIndent(ErrorSidecar{Error: message}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

// Decode reads a parse-stage document. ok is false when data holds an
// error sidecar, in which case message carries its text.
func (r *JSONRenderer) Decode(data []byte) (chunks []core.ContentChunk, message string, ok bool, err error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var sidecar ErrorSidecar
		if err := json.Unmarshal(trimmed, &sidecar); err != nil {
			return nil, "", false, fmt.Errorf("%w: decoding error sidecar: %v", core.ErrFormat, err)
		}
		return nil, sidecar.Error, false, nil
	}
	if err := json.Unmarshal(trimmed, &chunks); err != nil {
		return nil, "", false, fmt.Errorf("%w: decoding chunks: %v", core.ErrFormat, err)
	}
	if chunks == nil {
		chunks = []core.ContentChunk{}
	}
	return chunks, "", true, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}
