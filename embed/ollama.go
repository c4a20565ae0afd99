// Package embed is the embedding-stage collaborator: it vectorizes chunks
// through an Ollama-compatible API and stores them in a local badger
// database under the stage directory.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gaurav-prasanna/docpipe/core"
)

const (
	defaultOllamaURL = "http://localhost:11434"
	embeddingTimeout = 60 * time.Second
)

// OllamaClient calls the Ollama embeddings endpoint.
type OllamaClient struct {
	URL    string
	Model  string
	client *http.Client
}

// NewOllamaClient creates an OllamaClient. An empty baseURL selects the
// local default.
func NewOllamaClient(baseURL, model string) *OllamaClient {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	return &OllamaClient{
		URL:    strings.TrimSuffix(baseURL, "/") + "/api/embeddings",
		Model:  model,
		client: &http.Client{Timeout: embeddingTimeout},
	}
}

// ollamaRequest is the request body for the Ollama embeddings API.
type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// ollamaResponse is the response body from the Ollama embeddings API.
type ollamaResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed calls the Ollama embedding API for a single text input. A transport
// failure means the service is unreachable and wraps ErrEmbedderUnavailable.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float64, error) {
	reqBody := ollamaRequest{
		Model:  c.Model,
		Prompt: text,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: calling Ollama API: %v", core.ErrEmbedderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("Ollama API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var ollamaResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, fmt.Errorf("decoding Ollama response: %w", err)
	}
	if len(ollamaResp.Embedding) == 0 {
		return nil, fmt.Errorf("Ollama API returned an empty embedding")
	}

	return ollamaResp.Embedding, nil
}
