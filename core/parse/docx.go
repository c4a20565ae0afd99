package parse

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gaurav-prasanna/docpipe/core"
	"github.com/gaurav-prasanna/docpipe/core/chunk"
	"github.com/gaurav-prasanna/docpipe/core/logger"
	"github.com/gaurav-prasanna/docpipe/core/normalize"
)

// DOCXParser reads word/document.xml. Heading-styled paragraphs become the
// section header of the next body paragraph; tables are emitted whole.
type DOCXParser struct {
	logger *logger.Logger
}

// NewDOCXParser creates a DOCXParser.
func NewDOCXParser(log *logger.Logger) *DOCXParser {
	return &DOCXParser{logger: logger.OrNop(log)}
}

// Parse emits body paragraphs and tables in document order. A broken
// archive or malformed XML is ErrFormat.
func (p *DOCXParser) Parse(path string, e *chunk.Emitter) ([]core.ContentChunk, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening docx %s: %v", core.ErrFormat, path, err)
	}
	defer reader.Close()

	body, err := readZipFile(&reader.Reader, "word/document.xml")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrFormat, path, err)
	}
	blocks, err := parseDocumentXML(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrFormat, path, err)
	}

	doc := chunk.Document{Path: path, Title: docxTitle(&reader.Reader, path)}
	chunks := []core.ContentChunk{}
	var header *string
	tables := 0
	for _, b := range blocks {
		if b.table != nil {
			tables++
			rows := make([]string, 0, len(b.table))
			for _, row := range b.table {
				rows = append(rows, strings.Join(row, " | "))
			}
			name := fmt.Sprintf("Table %d", tables)
			chunks = append(chunks, e.Emit(doc, chunk.Candidate{
				Header: strPtr(name),
				Text:   name + ":\n" + strings.Join(rows, "\n"),
			})...)
			continue
		}

		text := normalize.Clean(b.text)
		if text == "" {
			continue
		}
		if isHeadingStyle(b.style) {
			header = strPtr(text)
			continue
		}
		if utf8.RuneCountInString(text) < e.MinLength {
			p.logger.Debug("skipping short paragraph", "file", path, "length", utf8.RuneCountInString(text))
			continue
		}
		c := chunk.Candidate{Text: text}
		if header != nil {
			c.Header = header
			c.Text = *header + "\n" + text
			header = nil
		}
		chunks = append(chunks, e.Emit(doc, c)...)
	}
	return chunks, nil
}

func isHeadingStyle(style string) bool {
	return strings.HasPrefix(style, "Heading") || style == "Title"
}

// docxBlock is a body paragraph or a table, in document order.
type docxBlock struct {
	style string
	text  string
	table [][]string
}

func parseDocumentXML(data []byte) ([]docxBlock, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var blocks []docxBlock
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return blocks, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decoding document.xml: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "p":
			style, text, err := readParagraph(dec)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, docxBlock{style: style, text: text})
		case "tbl":
			table, err := readTable(dec)
			if err != nil {
				return nil, err
			}
			if len(table) > 0 {
				blocks = append(blocks, docxBlock{table: table})
			}
		}
	}
}

// readParagraph consumes tokens up to the end of the current w:p.
func readParagraph(dec *xml.Decoder) (style, text string, err error) {
	var sb strings.Builder
	inText := false
	for depth := 1; depth > 0; {
		tok, err := dec.Token()
		if err != nil {
			return "", "", fmt.Errorf("decoding paragraph: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "pStyle":
				for _, a := range t.Attr {
					if a.Name.Local == "val" {
						style = a.Value
					}
				}
			case "t":
				inText = true
			case "tab":
				sb.WriteString(" ")
			case "br":
				sb.WriteString("\n")
			}
		case xml.EndElement:
			depth--
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return style, sb.String(), nil
}

// readTable consumes tokens up to the end of the current w:tbl. Nested
// tables are flattened into the enclosing cell.
func readTable(dec *xml.Decoder) ([][]string, error) {
	var rows [][]string
	var row []string
	var cell []string
	nested := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decoding table: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				nested++
			case "tr":
				if nested == 0 {
					row = nil
				}
			case "tc":
				if nested == 0 {
					cell = nil
				}
			case "p":
				_, text, err := readParagraph(dec)
				if err != nil {
					return nil, err
				}
				if text = normalize.Clean(text); text != "" {
					cell = append(cell, text)
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				if nested == 0 {
					return rows, nil
				}
				nested--
			case "tr":
				if nested == 0 {
					rows = append(rows, row)
				}
			case "tc":
				if nested == 0 {
					row = append(row, strings.Join(cell, " "))
				}
			}
		}
	}
}

func readZipFile(r *zip.Reader, name string) ([]byte, error) {
	for _, file := range r.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("missing %s", name)
}

type coreXML struct {
	Title string `xml:"title"`
}

// docxTitle reads docProps/core.xml, falling back to the file name stem.
func docxTitle(r *zip.Reader, path string) *string {
	if data, err := readZipFile(r, "docProps/core.xml"); err == nil {
		var props coreXML
		if err := xml.Unmarshal(data, &props); err == nil {
			if title := normalize.Clean(props.Title); title != "" {
				return &title
			}
		}
	}
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return &stem
}
