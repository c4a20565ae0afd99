package parse

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/docpipe/core/chunk"
	"github.com/gaurav-prasanna/docpipe/core/config"
	"github.com/gaurav-prasanna/docpipe/core/dedup"
	"github.com/gaurav-prasanna/docpipe/core/extract"
)

func newTestEmitter() *chunk.Emitter {
	return chunk.NewEmitter(20, chunk.NewSplitter(512), dedup.DefaultFilter(), dedup.NewSet(), nil)
}

func defaultBoilerplate(t *testing.T) *Boilerplate {
	t.Helper()
	b, err := NewBoilerplate(config.DefaultBoilerplatePatterns)
	require.NoError(t, err)
	return b
}

func loadPage(t *testing.T, html string) *extract.Page {
	t.Helper()
	page, err := extract.New().Extract(strings.NewReader(html))
	require.NoError(t, err)
	return page
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// writeDOCX assembles a minimal .docx archive. Empty parts are omitted.
func writeDOCX(t *testing.T, name, documentXML, coreXML string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`,
		"word/document.xml": documentXML,
		"docProps/core.xml": coreXML,
	}
	for name, body := range parts {
		if body == "" {
			continue
		}
		part, err := w.Create(name)
		require.NoError(t, err)
		_, err = part.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

func ptrValue(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}
