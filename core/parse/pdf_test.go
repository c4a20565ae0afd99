package parse

import (
	"path/filepath"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePDF(t *testing.T, name, title string, pages ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)

	doc := gofpdf.New("P", "mm", "A4", "")
	if title != "" {
		doc.SetTitle(title, false)
	}
	for _, text := range pages {
		doc.AddPage()
		doc.SetFont("Helvetica", "", 12)
		doc.Cell(0, 10, text)
	}
	require.NoError(t, doc.OutputFileAndClose(path))
	return path
}

func TestPDFParser_OneChunkPerPage(t *testing.T) {
	path := writePDF(t, "pump.pdf", "Pump Station Manual",
		"The intake pump must be primed before every start.",
		"Check the discharge pressure gauge after ten minutes.",
	)

	chunks, err := NewPDFParser(nil).Parse(path, newTestEmitter())
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, 1, chunks[0].PageNumber)
	assert.Contains(t, chunks[0].TextContent, "intake pump")
	assert.Equal(t, 2, chunks[1].PageNumber)
	assert.Contains(t, chunks[1].TextContent, "pressure gauge")

	for _, c := range chunks {
		assert.Equal(t, "pump", c.SourceFile)
		assert.Equal(t, "pdf", c.FileExtension)
		assert.Equal(t, "Pump Station Manual", ptrValue(c.DocumentTitle))
		assert.Nil(t, c.SectionHeader)
	}
}

func TestPDFParser_ShortPagesDropped(t *testing.T) {
	path := writePDF(t, "notes.pdf", "",
		"Page one.",
		"This second page carries enough words to be kept.",
	)

	chunks, err := NewPDFParser(nil).Parse(path, newTestEmitter())
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 2, chunks[0].PageNumber)
}
