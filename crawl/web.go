package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"golang.org/x/time/rate"

	"github.com/gaurav-prasanna/docpipe/core"
	"github.com/gaurav-prasanna/docpipe/core/logger"
	"github.com/gaurav-prasanna/docpipe/core/output"
)

// WebOptions tunes a crawl.
type WebOptions struct {
	// AllowedDomains limits link following. Empty means the root URL's host.
	AllowedDomains []string
	// MaxPages caps the number of saved pages. Zero means unlimited.
	MaxPages int
	// Sitemap seeds the queue from /sitemap.xml after the root URL.
	Sitemap   bool
	UserAgent string
}

// WebExtractor crawls a site breadth-first and saves each page's raw HTML
// under <outputDir>/html.
type WebExtractor struct {
	fetcher core.Fetcher
	client  *http.Client
	limiter *rate.Limiter
	opts    WebOptions
	logger  *logger.Logger
}

// NewWebExtractor creates a WebExtractor. A nil limiter does not throttle.
func NewWebExtractor(fetcher core.Fetcher, limiter *rate.Limiter, opts WebOptions, log *logger.Logger) *WebExtractor {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &WebExtractor{
		fetcher: fetcher,
		client:  &http.Client{Timeout: defaultSitemapTimeout},
		limiter: limiter,
		opts:    opts,
		logger:  logger.OrNop(log),
	}
}

// Extract crawls from input. A per-page failure becomes an ErrorRecord and
// the crawl continues; only an invalid root URL, a failure to prepare
// outputDir or context cancellation is returned as an error.
func (w *WebExtractor) Extract(ctx context.Context, input string, outputDir string) ([]string, []core.ErrorRecord, error) {
	if !IsWebURL(input) {
		return nil, nil, fmt.Errorf("%w: %q is not an http(s) URL", core.ErrInvalidConfig, input)
	}
	root, err := url.Parse(input)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", core.ErrInvalidConfig, err)
	}

	htmlDir := filepath.Join(outputDir, "html")
	if err := resetDir(outputDir); err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(htmlDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", htmlDir, err)
	}

	domains := w.opts.AllowedDomains
	if len(domains) == 0 {
		domains = []string{root.Host}
	}

	queue := NewQueue()
	queue.Add(NormalizeURL(input))
	if w.opts.Sitemap {
		w.seedFromSitemap(ctx, queue, root, domains)
	}

	var (
		saved   []string
		records []core.ErrorRecord
		used    = make(map[string]bool)
	)
	w.logger.Info("crawl started", "url", input, "domains", domains, "max_pages", w.opts.MaxPages)

	for w.opts.MaxPages <= 0 || len(saved) < w.opts.MaxPages {
		current, ok := queue.Next()
		if !ok {
			break
		}
		if err := w.limiter.Wait(ctx); err != nil {
			return saved, records, fmt.Errorf("crawl interrupted: %w", err)
		}

		result, err := w.fetcher.Fetch(ctx, current)
		if err != nil {
			if ctx.Err() != nil {
				return saved, records, fmt.Errorf("crawl interrupted: %w", ctx.Err())
			}
			w.logger.Warn("skipping page", "url", current, "error", err)
			records = append(records, core.ErrorRecord{Item: current, Message: err.Error()})
			continue
		}

		// Distinct URLs can flatten to one name, e.g. /a/b and /a_b.
		path := uniqueName(htmlDir, output.FilenameFromURL(current), used)
		if err := os.WriteFile(path, []byte(result.HTML), 0644); err != nil {
			w.logger.Warn("saving page failed", "url", current, "error", err)
			records = append(records, core.ErrorRecord{Item: current, Message: err.Error()})
			continue
		}
		saved = append(saved, path)
		w.logger.Debug("saved page", "url", current, "path", path)

		base := result.URL
		if base == "" {
			base = current
		}
		links, err := extractLinks(result.HTML, base)
		if err != nil {
			w.logger.Warn("link extraction failed", "url", current, "error", err)
			continue
		}
		for _, link := range links {
			if IsAllowedDomain(link, domains) && !IsStaticAsset(link) {
				queue.Add(NormalizeURL(link))
			}
		}
	}

	w.logger.Info("crawl finished", "saved", len(saved), "errors", len(records), "pending", queue.Pending())
	return saved, records, nil
}

func (w *WebExtractor) seedFromSitemap(ctx context.Context, queue *Queue, root *url.URL, domains []string) {
	loc := sitemapLocation(root)
	urls, err := discoverFromSitemap(ctx, w.client, w.opts.UserAgent, loc, domains)
	if err != nil {
		w.logger.Debug("no usable sitemap", "url", loc, "error", err)
		return
	}
	added := 0
	for _, u := range urls {
		if queue.Add(u) {
			added++
		}
	}
	w.logger.Info("seeded from sitemap", "url", loc, "added", added)
}

// resetDir removes dir and recreates it empty.
func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clearing %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}
