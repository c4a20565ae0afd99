package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/docpipe/core"
)

func TestFetch_HTML(t *testing.T) {
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.UserAgent()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><p>hi</p></body></html>")
	}))
	defer srv.Close()

	res, err := New(time.Second, "test-agent", nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "test-agent", gotAgent)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.HTML, "<p>hi</p>")
	assert.Equal(t, "text/html; charset=utf-8", res.ContentType)
}

func TestFetch_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/image":
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte{0x89, 'P', 'N', 'G'})
		}
	}))
	defer srv.Close()

	f := New(0, "", nil)

	_, err := f.Fetch(context.Background(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "unexpected status 404")

	_, err = f.Fetch(context.Background(), srv.URL+"/image")
	assert.ErrorIs(t, err, core.ErrFormat)
}

func TestFetch_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, strings.Repeat("x", 64))
	}))
	defer srv.Close()

	f := New(time.Second, "", nil)
	f.maxBody = 64
	res, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, res.HTML, 64)

	f.maxBody = 63
	_, err = f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, core.ErrFormat)
	assert.ErrorContains(t, err, "exceeds 63 bytes")
}

func TestIsHTML(t *testing.T) {
	assert.True(t, isHTML(""))
	assert.True(t, isHTML("text/html"))
	assert.True(t, isHTML("application/xhtml+xml; charset=utf-8"))
	assert.False(t, isHTML("application/pdf"))
	assert.False(t, isHTML(";;;"))
}
