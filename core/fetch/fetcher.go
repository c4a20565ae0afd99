// Package fetch implements the Fetcher interface.
// It performs HTTP GET requests with sensible defaults for web scraping.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gaurav-prasanna/docpipe/core"
	"github.com/gaurav-prasanna/docpipe/core/logger"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "docpipe/0.1 (https://github.com/gaurav-prasanna/docpipe)"
	maxBodyBytes     = 20 << 20
)

// HTTPFetcher fetches web pages via HTTP.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	// maxBody is the largest body accepted, in bytes.
	maxBody int64
	logger  *logger.Logger
}

// New creates an HTTPFetcher. Zero values select the defaults.
func New(timeout time.Duration, userAgent string, log *logger.Logger) *HTTPFetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		maxBody:   maxBodyBytes,
		logger:    logger.OrNop(log),
	}
}

// Fetch retrieves the HTML content of the given URL. Non-2xx responses are
// errors, and so are bodies that are not HTML or exceed the size limit
// (both wrapped in ErrFormat).
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*core.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTML(contentType) {
		return nil, fmt.Errorf("%w: %s has content type %q", core.ErrFormat, url, contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(body)) > f.maxBody {
		return nil, fmt.Errorf("%w: %s body exceeds %d bytes", core.ErrFormat, url, f.maxBody)
	}
	f.logger.Debug("fetched", "url", url, "status", resp.StatusCode, "bytes", len(body))

	return &core.FetchResult{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		HTML:        string(body),
	}, nil
}

// isHTML accepts HTML and XHTML. A missing content type is accepted.
func isHTML(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
