package crawl

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/docpipe/core"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLocalExtractor_GroupsByExtension(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "sorted")
	writeFile(t, filepath.Join(in, "manual.html"), "<p>a</p>")
	writeFile(t, filepath.Join(in, "docs", "Guide.PDF"), "%PDF")
	writeFile(t, filepath.Join(in, "docs", "deep", "notes.docx"), "PK")
	writeFile(t, filepath.Join(in, "readme.txt"), "skip me")

	paths, records, err := NewLocalExtractor(SortedExtensions, nil).Extract(context.Background(), in, out)
	require.NoError(t, err)
	assert.Empty(t, records)

	sort.Strings(paths)
	assert.Equal(t, []string{
		filepath.Join(out, "docx", "notes.docx"),
		filepath.Join(out, "html", "manual.html"),
		filepath.Join(out, "pdf", "Guide.PDF"),
	}, paths)
	assert.NoFileExists(t, filepath.Join(out, "txt", "readme.txt"))
}

func TestLocalExtractor_NameClashes(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "sorted")
	writeFile(t, filepath.Join(in, "a", "index.html"), "first")
	writeFile(t, filepath.Join(in, "b", "index.html"), "second")
	writeFile(t, filepath.Join(in, "c", "index.html"), "third")

	paths, _, err := NewLocalExtractor([]string{"html"}, nil).Extract(context.Background(), in, out)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(out, "html", "index.html"),
		filepath.Join(out, "html", "index-1.html"),
		filepath.Join(out, "html", "index-2.html"),
	}, paths)

	raw, err := os.ReadFile(paths[2])
	require.NoError(t, err)
	assert.Equal(t, "third", string(raw))
}

func TestLocalExtractor_ClearsDestination(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "sorted")
	writeFile(t, filepath.Join(out, "pdf", "stale.pdf"), "old")
	writeFile(t, filepath.Join(in, "new.pdf"), "new")

	for i := 0; i < 2; i++ {
		paths, _, err := NewLocalExtractor([]string{".pdf"}, nil).Extract(context.Background(), in, out)
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(out, "pdf", "new.pdf")}, paths)
	}
	assert.NoFileExists(t, filepath.Join(out, "pdf", "stale.pdf"))
}

func TestLocalExtractor_SkipsOutputInsideInput(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(in, "sorted")
	writeFile(t, filepath.Join(in, "a.html"), "a")

	for i := 0; i < 2; i++ {
		paths, _, err := NewLocalExtractor([]string{".html"}, nil).Extract(context.Background(), in, out)
		require.NoError(t, err)
		assert.Len(t, paths, 1)
	}
}

func TestLocalExtractor_InvalidInput(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.html")
	writeFile(t, file, "x")

	ex := NewLocalExtractor(SortedExtensions, nil)

	_, _, err := ex.Extract(context.Background(), filepath.Join(dir, "missing"), filepath.Join(dir, "out"))
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	_, _, err = ex.Extract(context.Background(), file, filepath.Join(dir, "out"))
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	_, _, err = ex.Extract(context.Background(), dir, dir)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
	assert.FileExists(t, file)
}

func TestLocalExtractor_UnreadableFileRecorded(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission-based failure injection does not apply to root")
	}
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "sorted")
	writeFile(t, filepath.Join(in, "ok.html"), "ok")
	locked := filepath.Join(in, "locked.html")
	writeFile(t, locked, "secret")
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0644) })

	paths, records, err := NewLocalExtractor([]string{".html"}, nil).Extract(context.Background(), in, out)
	require.NoError(t, err)
	assert.Len(t, paths, 1)
	require.Len(t, records, 1)
	assert.Equal(t, locked, records[0].Item)
}
