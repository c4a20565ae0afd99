package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/time/rate"

	"github.com/gaurav-prasanna/docpipe/core"
	"github.com/gaurav-prasanna/docpipe/core/chunk"
	"github.com/gaurav-prasanna/docpipe/core/dedup"
	"github.com/gaurav-prasanna/docpipe/core/fetch"
	"github.com/gaurav-prasanna/docpipe/core/stage"
	"github.com/gaurav-prasanna/docpipe/crawl"
	"github.com/gaurav-prasanna/docpipe/embed"
)

// extractorFor classifies source: an http(s) URL is crawled, an existing
// directory is scanned. Anything else is ErrInvalidConfig.
func (p *Pipeline) extractorFor(source string, st stage.Stage) (core.SourceExtractor, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("%w: source is empty", core.ErrInvalidConfig)
	}
	if crawl.IsWebURL(source) {
		cfg := p.opts.Config.Crawl
		fetcher := p.opts.Fetcher
		if fetcher == nil {
			fetcher = fetch.New(cfg.Timeout(), cfg.UserAgent, p.logger)
		}
		limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
		return crawl.NewWebExtractor(fetcher, limiter, crawl.WebOptions{
			AllowedDomains: cfg.AllowedDomains,
			MaxPages:       cfg.MaxPages,
			Sitemap:        cfg.Sitemap,
			UserAgent:      cfg.UserAgent,
		}, p.logger), nil
	}
	if strings.Contains(source, "://") {
		return nil, fmt.Errorf("%w: %q is not an http(s) URL", core.ErrInvalidConfig, source)
	}
	if err := p.checkInputDir(st, source); err != nil {
		return nil, err
	}
	return crawl.NewLocalExtractor(p.registry.Extensions(), p.logger), nil
}

// Crawl pulls raw documents from source into the crawl directory.
func (p *Pipeline) Crawl(ctx context.Context, source string) (core.StageRun, error) {
	extractor, err := p.extractorFor(source, stage.Crawl)
	if err != nil {
		return p.finish(stage.Crawl, core.StageRun{}, err)
	}
	if err := p.clean(stage.Crawl); err != nil {
		return p.finish(stage.Crawl, core.StageRun{}, err)
	}
	outputs, records, err := extractor.Extract(ctx, source, p.Dir(stage.Crawl))
	p.logger.Info("crawl stage finished", "source", source, "saved", len(outputs), "errors", len(records))
	return p.finish(stage.Crawl, core.StageRun{Outputs: outputs, Errors: records}, err)
}

// Sort groups documents by extension, dropping types no parser handles.
func (p *Pipeline) Sort(ctx context.Context, input string) (core.StageRun, error) {
	if input == "" {
		input = p.Dir(stage.Crawl)
	}
	if err := p.begin(stage.Sort, input); err != nil {
		return p.finish(stage.Sort, core.StageRun{}, err)
	}
	outputs, records, err := crawl.NewLocalExtractor(crawl.SortedExtensions, p.logger).
		Extract(ctx, input, p.Dir(stage.Sort))
	p.logger.Info("sort stage finished", "input", input, "sorted", len(outputs), "errors", len(records))
	return p.finish(stage.Sort, core.StageRun{Outputs: outputs, Errors: records}, err)
}

type parseResult struct {
	output string
	record *core.ErrorRecord
}

// Parse turns every supported file under input into a JSON chunk document
// mirrored under the parse directory. A file that fails gets an error
// sidecar at the same path and an ErrorRecord. One duplicate set spans the
// whole call.
func (p *Pipeline) Parse(ctx context.Context, input string) (core.StageRun, error) {
	run, err := p.parse(ctx, input)
	return p.finish(stage.Parse, run, err)
}

func (p *Pipeline) parse(ctx context.Context, input string) (core.StageRun, error) {
	if input == "" {
		input = p.Dir(stage.Sort)
	}
	if err := p.begin(stage.Parse, input); err != nil {
		return core.StageRun{}, err
	}

	files, records, err := collect(input, p.registry.Supports)
	if err != nil {
		return core.StageRun{Errors: records}, err
	}
	files = p.limit(files)

	cfg := p.opts.Config.Parse
	emitter := chunk.NewEmitter(
		cfg.MinLength,
		chunk.NewSplitter(cfg.MaxWords),
		dedup.Filter{MinUniqueWords: cfg.MinUniqueWords, MaxRepetition: cfg.MaxRepetition},
		dedup.NewSet(),
		p.logger,
	)

	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return core.StageRun{Errors: records}, fmt.Errorf("creating parse pool: %w", err)
	}
	defer pool.Release()

	outDir := p.Dir(stage.Parse)
	results := make([]parseResult, len(files))
	var wg sync.WaitGroup
	for i, file := range files {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			results[i] = p.parseFile(input, file, outDir, emitter)
		}); err != nil {
			wg.Done()
			results[i] = parseResult{record: &core.ErrorRecord{Item: file, Message: err.Error()}}
		}
	}
	wg.Wait()

	run := core.StageRun{Errors: records}
	for _, r := range results {
		if r.output != "" {
			run.Outputs = append(run.Outputs, r.output)
		}
		if r.record != nil {
			run.Errors = append(run.Errors, *r.record)
		}
	}
	p.logger.Info("parse stage finished", "input", input, "files", len(files), "written", len(run.Outputs),
		"errors", len(run.Errors), "unique_chunks", emitter.Seen.Len())
	if err := ctx.Err(); err != nil {
		return run, fmt.Errorf("parse interrupted: %w", err)
	}
	return run, nil
}

func (p *Pipeline) parseFile(inputRoot, file, outDir string, e *chunk.Emitter) parseResult {
	dest, err := p.writer.MirrorPath(inputRoot, file, outDir)
	if err != nil {
		return parseResult{record: &core.ErrorRecord{Item: file, Message: err.Error()}}
	}

	chunks, err := p.registry.Parse(file, e)
	if err != nil {
		p.logger.Warn("parse failed", "file", file, "error", err)
		if werr := p.writer.WriteError(dest, err.Error()); werr != nil {
			p.logger.Error("writing error sidecar failed", "path", dest, "error", werr)
		}
		return parseResult{record: &core.ErrorRecord{Item: file, Message: err.Error()}}
	}

	if err := p.writer.WriteChunks(dest, chunks); err != nil {
		p.logger.Warn("writing chunks failed", "file", file, "error", err)
		return parseResult{record: &core.ErrorRecord{Item: file, Message: err.Error()}}
	}
	p.logger.Debug("parsed file", "file", file, "chunks", len(chunks), "output", dest)
	return parseResult{output: dest}
}

// batch accumulates embed records along with the files they came from.
type batch struct {
	records []core.EmbedRecord
	files   []string
}

func (b *batch) add(file string, c core.ContentChunk) {
	if n := len(b.files); n == 0 || b.files[n-1] != file {
		b.files = append(b.files, file)
	}
	b.records = append(b.records, core.EmbedRecord{ID: c.ChunkID, Text: c.TextContent, Metadata: c.Metadata()})
}

func (b *batch) reset() {
	b.records = nil
	b.files = nil
}

// Embed hands every chunk under input to the embedder in batches. The
// outputs are the ids of the chunks ingested. A batch the embedder rejects
// becomes an ErrorRecord; an unreachable embedder aborts the stage.
func (p *Pipeline) Embed(ctx context.Context, input string) (run core.StageRun, err error) {
	defer func() { run, err = p.finish(stage.Embed, run, err) }()
	if input == "" {
		input = p.Dir(stage.Parse)
	}
	if err := embed.ValidateCollection(p.opts.Collection); err != nil {
		return run, err
	}
	if err := p.begin(stage.Embed, input); err != nil {
		return run, err
	}

	files, records, err := collect(input, func(path string) bool {
		return strings.EqualFold(filepath.Ext(path), ".json")
	})
	run.Errors = records
	if err != nil {
		return run, err
	}
	files = p.limit(files)

	sink, err := p.opts.Embedder(p.Dir(stage.Embed))
	if err != nil {
		return run, fmt.Errorf("opening embedder: %w", err)
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing embedder: %w", cerr)
		}
	}()

	size := p.opts.Config.Embed.BatchSize
	var pending batch
	flush := func() error {
		if len(pending.records) == 0 {
			return nil
		}
		defer pending.reset()
		if err := sink.Ingest(ctx, p.opts.Collection, pending.records); err != nil {
			if errors.Is(err, core.ErrEmbedderUnavailable) || ctx.Err() != nil {
				return err
			}
			p.logger.Warn("batch rejected", "files", pending.files, "records", len(pending.records), "error", err)
			run.Errors = append(run.Errors, core.ErrorRecord{
				Item:    strings.Join(pending.files, ", "),
				Message: err.Error(),
			})
			return nil
		}
		for _, r := range pending.records {
			run.Outputs = append(run.Outputs, r.ID)
		}
		return nil
	}

	for _, file := range files {
		chunks, ok, err := p.writer.ReadChunks(file)
		if err != nil {
			p.logger.Warn("unreadable chunk file", "file", file, "error", err)
			run.Errors = append(run.Errors, core.ErrorRecord{Item: file, Message: err.Error()})
			continue
		}
		if !ok {
			p.logger.Debug("skipping error sidecar", "file", file)
			continue
		}
		for _, c := range chunks {
			pending.add(file, c)
			if len(pending.records) >= size {
				if err := flush(); err != nil {
					return run, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return run, err
	}

	p.logger.Info("embed stage finished", "collection", p.opts.Collection, "files", len(files),
		"embedded", len(run.Outputs), "errors", len(run.Errors))
	return run, nil
}

// collect lists the files under dir accepted by keep, in lexical order.
// Unreadable subdirectories become ErrorRecords.
func collect(dir string, keep func(string) bool) ([]string, []core.ErrorRecord, error) {
	var (
		files   []string
		records []core.ErrorRecord
	)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			records = append(records, core.ErrorRecord{Item: path, Message: err.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && keep(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, records, fmt.Errorf("%w: listing %s: %v", core.ErrIO, dir, err)
	}
	sort.Strings(files)
	return files, records, nil
}
