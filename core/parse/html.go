package parse

import (
	"fmt"
	"os"

	"github.com/gaurav-prasanna/docpipe/core"
	"github.com/gaurav-prasanna/docpipe/core/chunk"
	"github.com/gaurav-prasanna/docpipe/core/extract"
	"github.com/gaurav-prasanna/docpipe/core/logger"
)

// HTMLParser sanitizes a page and tries its strategies in order, keeping the
// candidates of the first one that proposes any.
type HTMLParser struct {
	extractor  *extract.HTMLExtractor
	strategies []Strategy
	logger     *logger.Logger
}

// NewHTMLParser creates a parser with the heading-hierarchy strategy first
// and the backup strategy second.
func NewHTMLParser(boilerplate *Boilerplate, log *logger.Logger) *HTMLParser {
	return NewHTMLParserWithStrategies(log,
		HeadingStrategy{Boilerplate: boilerplate},
		BackupStrategy{Boilerplate: boilerplate},
	)
}

// NewHTMLParserWithStrategies creates a parser with an explicit strategy order.
func NewHTMLParserWithStrategies(log *logger.Logger, strategies ...Strategy) *HTMLParser {
	return &HTMLParser{
		extractor:  extract.New(),
		strategies: strategies,
		logger:     logger.OrNop(log),
	}
}

// Parse tries each strategy in order and emits the first non-empty result.
func (p *HTMLParser) Parse(path string, e *chunk.Emitter) ([]core.ContentChunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrIO, err)
	}
	defer f.Close()

	page, err := p.extractor.Extract(f)
	if err != nil {
		return nil, err
	}

	doc := chunk.Document{Path: path, Title: page.Title}
	for _, s := range p.strategies {
		candidates := s.Candidates(page)
		if len(candidates) == 0 {
			p.logger.Debug("strategy found nothing", "file", path, "strategy", s.Name())
			continue
		}
		chunks := e.EmitAll(doc, candidates)
		p.logger.Debug("strategy succeeded", "file", path, "strategy", s.Name(),
			"candidates", len(candidates), "chunks", len(chunks))
		return chunks, nil
	}

	p.logger.Info("no content found", "file", path)
	return []core.ContentChunk{}, nil
}
