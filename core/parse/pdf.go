package parse

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"

	"github.com/gaurav-prasanna/docpipe/core"
	"github.com/gaurav-prasanna/docpipe/core/chunk"
	"github.com/gaurav-prasanna/docpipe/core/logger"
	"github.com/gaurav-prasanna/docpipe/core/normalize"
)

// PDFParser emits one candidate per page.
type PDFParser struct {
	logger *logger.Logger
}

// NewPDFParser creates a PDFParser.
func NewPDFParser(log *logger.Logger) *PDFParser {
	return &PDFParser{logger: logger.OrNop(log)}
}

// Parse reads every page's plain text. The decoder panics on some malformed
// input; that is reported as ErrFormat like any other decode failure.
func (p *PDFParser) Parse(path string, e *chunk.Emitter) (chunks []core.ContentChunk, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrIO, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrIO, err)
	}

	defer func() {
		if r := recover(); r != nil {
			chunks = nil
			err = fmt.Errorf("%w: decoding %s: %v", core.ErrFormat, path, r)
		}
	}()

	r, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: pdf reader: %v", core.ErrFormat, err)
	}

	doc := chunk.Document{Path: path, Title: pdfTitle(r)}
	chunks = []core.ContentChunk{}
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			p.logger.Warn("skipping unreadable page", "file", path, "page", i, "error", err)
			continue
		}
		chunks = append(chunks, e.Emit(doc, chunk.Candidate{Page: i, Text: normalize.Clean(text)})...)
	}
	return chunks, nil
}

func pdfTitle(r *pdf.Reader) *string {
	title := normalize.Clean(r.Trailer().Key("Info").Key("Title").Text())
	if title == "" {
		return nil
	}
	return &title
}
