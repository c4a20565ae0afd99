// Package pipeline sequences the crawl, sort, parse and embed stages over
// the directory layout owned by package stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gaurav-prasanna/docpipe/core"
	"github.com/gaurav-prasanna/docpipe/core/config"
	"github.com/gaurav-prasanna/docpipe/core/logger"
	"github.com/gaurav-prasanna/docpipe/core/output"
	"github.com/gaurav-prasanna/docpipe/core/parse"
	"github.com/gaurav-prasanna/docpipe/core/stage"
	"github.com/gaurav-prasanna/docpipe/embed"
)

// State is the last transition a Pipeline completed.
type State int

const (
	NotStarted State = iota
	Crawled
	Sorted
	Parsed
	Embedded
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Crawled:
		return "crawled"
	case Sorted:
		return "sorted"
	case Parsed:
		return "parsed"
	case Embedded:
		return "embedded"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// reached maps a stage to the state its transition leads to.
var reached = map[stage.Stage]State{
	stage.Crawl: Crawled,
	stage.Sort:  Sorted,
	stage.Parse: Parsed,
	stage.Embed: Embedded,
}

// EmbedSink is an Embedder that holds resources until closed.
type EmbedSink interface {
	core.Embedder
	Close() error
}

// EmbedderFactory opens an EmbedSink backed by the embed stage directory.
type EmbedderFactory func(dir string) (EmbedSink, error)

// Options configures a Pipeline.
type Options struct {
	// Root is the directory holding the dev and prod layouts.
	Root       string
	Production bool
	// Collection names the embedder collection.
	Collection string
	// NLimit caps the files handled by parse and embed. Zero means no cap.
	NLimit int
	Config config.Config
	// Fetcher overrides the HTTP fetcher used for web sources.
	Fetcher core.Fetcher
	// Embedder overrides the badger-backed embedder.
	Embedder EmbedderFactory
	Logger   *logger.Logger
}

// Pipeline runs stage transitions. It is not safe for concurrent use.
type Pipeline struct {
	opts     Options
	registry *parse.Registry
	writer   *output.Writer
	logger   *logger.Logger
	state    State
}

// New validates opts and builds a Pipeline. Nothing on disk is touched.
func New(opts Options) (*Pipeline, error) {
	if strings.TrimSpace(opts.Root) == "" {
		return nil, fmt.Errorf("%w: output root is empty", core.ErrInvalidConfig)
	}
	if opts.NLimit < 0 {
		return nil, fmt.Errorf("%w: n-limit must not be negative", core.ErrInvalidConfig)
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	boilerplate, err := parse.NewBoilerplate(opts.Config.Parse.BoilerplatePatterns)
	if err != nil {
		return nil, err
	}

	log := logger.OrNop(opts.Logger).With("env", stage.Env(opts.Production))
	if opts.Embedder == nil {
		embedCfg := opts.Config.Embed
		opts.Embedder = func(dir string) (EmbedSink, error) {
			ing, err := embed.Open(dir, embedCfg.URL, embedCfg.Model, log)
			if err != nil {
				return nil, err
			}
			return ing, nil
		}
	}

	return &Pipeline{
		opts:     opts,
		registry: parse.Default(boilerplate, log),
		writer:   output.New(),
		logger:   log,
	}, nil
}

// State returns the last completed transition.
func (p *Pipeline) State() State {
	return p.state
}

// Dir returns the directory of s for this pipeline's environment.
func (p *Pipeline) Dir(s stage.Stage) string {
	return stage.Dir(p.opts.Root, s, p.opts.Production)
}

// Summary aggregates the stages a run went through.
type Summary struct {
	State  State
	Counts map[stage.Stage]int
	Errors []core.ErrorRecord
	// Degraded is set when any item failed.
	Degraded bool
}

func newSummary() *Summary {
	return &Summary{Counts: make(map[stage.Stage]int)}
}

func (s *Summary) add(st stage.Stage, run core.StageRun) {
	s.Counts[st] = len(run.Outputs)
	s.Errors = append(s.Errors, run.Errors...)
	s.Degraded = len(s.Errors) > 0
}

// Run drives every transition in order, starting from source. A stage-level
// error halts the run; the summary gathered so far is still returned.
func (p *Pipeline) Run(ctx context.Context, source string) (Summary, error) {
	summary := newSummary()
	if _, err := p.extractorFor(source, stage.Crawl); err != nil {
		return *summary, err
	}
	if err := embed.ValidateCollection(p.opts.Collection); err != nil {
		return *summary, err
	}

	for _, st := range stage.All {
		input := ""
		if st == stage.Crawl {
			input = source
		}
		run, err := p.Step(ctx, st, input)
		summary.add(st, run)
		summary.State = p.state
		if err != nil {
			p.logger.Error("pipeline halted", "stage", st.String(), "error", err)
			return *summary, fmt.Errorf("%s stage: %w", st, err)
		}
	}
	p.logger.Info("pipeline finished", "state", p.state.String(), "errors", len(summary.Errors))
	return *summary, nil
}

// RunStep runs a single transition and summarizes it.
func (p *Pipeline) RunStep(ctx context.Context, st stage.Stage, input string) (Summary, error) {
	summary := newSummary()
	run, err := p.Step(ctx, st, input)
	summary.add(st, run)
	summary.State = p.state
	if err != nil {
		return *summary, fmt.Errorf("%s stage: %w", st, err)
	}
	return *summary, nil
}

// Step dispatches to the transition for st. An empty input means the
// previous stage's directory; crawl requires an explicit source.
func (p *Pipeline) Step(ctx context.Context, st stage.Stage, input string) (core.StageRun, error) {
	switch st {
	case stage.Crawl:
		return p.Crawl(ctx, input)
	case stage.Sort:
		return p.Sort(ctx, input)
	case stage.Parse:
		return p.Parse(ctx, input)
	case stage.Embed:
		return p.Embed(ctx, input)
	}
	return core.StageRun{}, fmt.Errorf("%w: %s", core.ErrUnknownStage, st)
}

// finish tags every record of run with st and, when err is nil, moves the
// pipeline to the state st leads to.
func (p *Pipeline) finish(st stage.Stage, run core.StageRun, err error) (core.StageRun, error) {
	for i := range run.Errors {
		run.Errors[i].Stage = st.String()
	}
	if err == nil {
		p.state = reached[st]
	}
	return run, err
}

// begin checks that input is a usable directory outside every directory the
// transition is about to clean, then cleans st and its downstream stages.
func (p *Pipeline) begin(st stage.Stage, input string) error {
	if err := p.checkInputDir(st, input); err != nil {
		return err
	}
	return p.clean(st)
}

func (p *Pipeline) clean(st stage.Stage) error {
	err := stage.CleanFrom(p.opts.Root, st, p.opts.Production)
	var trash *stage.TrashError
	if errors.As(err, &trash) {
		p.logger.Warn("stage reset left trash behind", "stage", st.String(), "error", err)
		return nil
	}
	return err
}

func (p *Pipeline) checkInputDir(st stage.Stage, input string) error {
	info, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("%w: input %s: %v", core.ErrInvalidConfig, input, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: input %s is not a directory", core.ErrInvalidConfig, input)
	}
	for _, down := range stage.Downstream(st) {
		if within(input, p.Dir(down)) {
			return fmt.Errorf("%w: input %s lies inside the %s stage directory", core.ErrInvalidConfig, input, down)
		}
	}
	return nil
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	return absPath == absDir || strings.HasPrefix(absPath, absDir+string(filepath.Separator))
}

// limit truncates items to NLimit when set.
func (p *Pipeline) limit(items []string) []string {
	if p.opts.NLimit > 0 && len(items) > p.opts.NLimit {
		return items[:p.opts.NLimit]
	}
	return items
}
