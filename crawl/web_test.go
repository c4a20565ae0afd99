package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/docpipe/core"
	"github.com/gaurav-prasanna/docpipe/core/fetch"
	"github.com/gaurav-prasanna/docpipe/core/output"
)

// newSite serves page bodies by path; unknown paths are 404.
func newSite(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if filepath.Ext(r.URL.Path) == ".xml" {
			w.Header().Set("Content-Type", "application/xml")
		} else {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newWebExtractor(opts WebOptions) *WebExtractor {
	return NewWebExtractor(fetch.New(5*time.Second, "docpipe-test", nil), nil, opts, nil)
}

func twoPageSite(t *testing.T) *httptest.Server {
	return newSite(t, map[string]string{
		"/": `<html><body><h1>A</h1>
<a href="/b">Page B</a>
<a href="/b#section">Page B again</a>
<a href="mailto:someone@example.com">Mail</a>
<a href="/logo.png">Logo</a>
<a href="https://elsewhere.invalid/x">Off site</a>
</body></html>`,
		"/b": `<html><body><h1>B</h1><p>No links here.</p></body></html>`,
	})
}

func TestWebExtractor_TwoPageSite(t *testing.T) {
	srv := twoPageSite(t)
	out := t.TempDir()

	paths, records, err := newWebExtractor(WebOptions{}).Extract(context.Background(), srv.URL, out)
	require.NoError(t, err)
	assert.Empty(t, records)
	require.Len(t, paths, 2)

	sort.Strings(paths)
	assert.Equal(t, filepath.Join(out, "html", output.FilenameFromURL(srv.URL+"/b")), paths[0])
	assert.Equal(t, filepath.Join(out, "html", output.FilenameFromURL(srv.URL)), paths[1])

	raw, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), "No links here.")
}

func TestWebExtractor_FlattenedNameClash(t *testing.T) {
	srv := newSite(t, map[string]string{
		"/":    `<html><body><a href="/a/b">One</a><a href="/a_b">Two</a></body></html>`,
		"/a/b": `<html><body><p>PAGE ONE</p></body></html>`,
		"/a_b": `<html><body><p>PAGE TWO</p></body></html>`,
	})
	out := t.TempDir()
	require.Equal(t, output.FilenameFromURL(srv.URL+"/a/b"), output.FilenameFromURL(srv.URL+"/a_b"))

	paths, records, err := newWebExtractor(WebOptions{}).Extract(context.Background(), srv.URL, out)
	require.NoError(t, err)
	assert.Empty(t, records)
	require.Len(t, paths, 3)

	var bodies string
	seen := make(map[string]bool)
	for _, path := range paths {
		assert.False(t, seen[path], path)
		seen[path] = true
		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		bodies += string(raw)
	}
	assert.Contains(t, bodies, "PAGE ONE")
	assert.Contains(t, bodies, "PAGE TWO")
}

func TestWebExtractor_MaxPages(t *testing.T) {
	srv := twoPageSite(t)

	paths, records, err := newWebExtractor(WebOptions{MaxPages: 1}).Extract(context.Background(), srv.URL, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, records)
	require.Len(t, paths, 1)
	assert.Contains(t, paths[0], "_index.html")
}

func TestWebExtractor_BrokenLinkRecorded(t *testing.T) {
	srv := newSite(t, map[string]string{
		"/":   `<a href="/ok">ok</a><a href="/missing">missing</a>`,
		"/ok": `<p>fine</p>`,
	})

	paths, records, err := newWebExtractor(WebOptions{}).Extract(context.Background(), srv.URL, t.TempDir())
	require.NoError(t, err)
	assert.Len(t, paths, 2)
	require.Len(t, records, 1)
	assert.Equal(t, srv.URL+"/missing", records[0].Item)
	assert.Contains(t, records[0].Message, "404")
}

func TestWebExtractor_ClearsOutputFirst(t *testing.T) {
	srv := twoPageSite(t)
	out := t.TempDir()
	stale := filepath.Join(out, "html", "stale.html")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	_, _, err := newWebExtractor(WebOptions{MaxPages: 1}).Extract(context.Background(), srv.URL, out)
	require.NoError(t, err)
	assert.NoFileExists(t, stale)
}

func TestWebExtractor_SitemapSeeding(t *testing.T) {
	var srv *httptest.Server
	pages := map[string]string{
		"/":       `<p>root without links</p>`,
		"/hidden": `<p>only listed in the sitemap</p>`,
	}
	srv = newSite(t, pages)
	pages["/sitemap.xml"] = fmt.Sprintf(`<?xml version="1.0"?>
<urlset><url><loc>%s/hidden</loc></url><url><loc>https://elsewhere.invalid/x</loc></url></urlset>`, srv.URL)

	without, _, err := newWebExtractor(WebOptions{}).Extract(context.Background(), srv.URL, t.TempDir())
	require.NoError(t, err)
	assert.Len(t, without, 1)

	with, records, err := newWebExtractor(WebOptions{Sitemap: true}).Extract(context.Background(), srv.URL, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Len(t, with, 2)
}

func TestWebExtractor_InvalidURL(t *testing.T) {
	out := filepath.Join(t.TempDir(), "keep")
	require.NoError(t, os.MkdirAll(out, 0755))
	marker := filepath.Join(out, "marker")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0644))

	for _, input := range []string{"ftp://example.com", "example.com/page", "https://"} {
		_, _, err := newWebExtractor(WebOptions{}).Extract(context.Background(), input, out)
		assert.ErrorIs(t, err, core.ErrInvalidConfig, input)
	}
	assert.FileExists(t, marker)
}

func TestWebExtractor_CanceledContext(t *testing.T) {
	srv := twoPageSite(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newWebExtractor(WebOptions{}).Extract(ctx, srv.URL, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}
