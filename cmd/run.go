package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gaurav-prasanna/docpipe/core"
	"github.com/gaurav-prasanna/docpipe/core/config"
	"github.com/gaurav-prasanna/docpipe/core/logger"
	"github.com/gaurav-prasanna/docpipe/core/pipeline"
	"github.com/gaurav-prasanna/docpipe/core/stage"
)

// runFlags holds the run command's flags. Tunables only override the
// config file when set explicitly.
type runFlags struct {
	step       string
	input      string
	output     string
	collection string
	production bool
	nLimit     int
	configPath string
	verbose    bool

	maxPages       int
	allowedDomains []string
	sitemap        bool
	workers        int
	embedURL       string
	embedModel     string
	batchSize      int
}

var flags runFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one pipeline stage or all of them",
	Long: `Run executes a pipeline stage. Every stage first empties its own directory
and those of later stages, so a re-run never mixes stale output.

Per-item failures are recorded and reported but do not change the exit code.

Examples:
  docpipe run --input https://example.com --collection manuals
  docpipe run --step crawl --input ./documents --output ./data
  docpipe run --step parse --n-limit 10 --verbose
  docpipe run --step embed --collection manuals --embed-model nomic-embed-text`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	flags.register(runCmd.Flags())
}

func (f *runFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.step, "step", "all", "Stage to run: crawl, sort, parse, embed or all")
	fs.StringVar(&f.input, "input", "", "URL or directory to crawl; for later stages defaults to the previous stage's directory")
	fs.StringVar(&f.output, "output", "data", "Root directory for stage output")
	fs.StringVar(&f.collection, "collection", "documents", "Collection name passed to the embedder")
	fs.BoolVar(&f.production, "production", false, "Use the prod layout instead of dev")
	fs.IntVar(&f.nLimit, "n-limit", 0, "Process at most N files in parse and embed (0 = all)")
	fs.StringVar(&f.configPath, "config", "", "TOML config file")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Enable debug logging")

	fs.IntVar(&f.maxPages, "max-pages", 0, "Stop crawling after N saved pages (0 = unlimited)")
	fs.StringSliceVar(&f.allowedDomains, "allowed-domains", nil, "Domains the crawler may follow (default: the start URL's host)")
	fs.BoolVar(&f.sitemap, "sitemap", false, "Seed the crawl from /sitemap.xml")
	fs.IntVar(&f.workers, "workers", 1, "Parallel parse workers")
	fs.StringVar(&f.embedURL, "embed-url", "", "Ollama base URL")
	fs.StringVar(&f.embedModel, "embed-model", "", "Embedding model; empty stores chunks without vectors")
	fs.IntVar(&f.batchSize, "batch-size", 0, "Chunks per embedder call")
}

// apply copies explicitly set tunables over cfg.
func (f *runFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("max-pages") {
		cfg.Crawl.MaxPages = f.maxPages
	}
	if fs.Changed("allowed-domains") {
		cfg.Crawl.AllowedDomains = f.allowedDomains
	}
	if fs.Changed("sitemap") {
		cfg.Crawl.Sitemap = f.sitemap
	}
	if fs.Changed("workers") {
		cfg.Parse.Workers = f.workers
	}
	if fs.Changed("embed-url") {
		cfg.Embed.URL = f.embedURL
	}
	if fs.Changed("embed-model") {
		cfg.Embed.Model = f.embedModel
	}
	if fs.Changed("batch-size") {
		cfg.Embed.BatchSize = f.batchSize
	}
}

// parseStep resolves --step. The zero-length result means every stage.
func parseStep(name string) ([]stage.Stage, error) {
	if strings.EqualFold(strings.TrimSpace(name), "all") {
		return nil, nil
	}
	s, err := stage.ParseStage(name)
	if err != nil {
		return nil, err
	}
	return []stage.Stage{s}, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	// --- Validate flags ---
	steps, err := parseStep(flags.step)
	if err != nil {
		return err
	}
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	flags.apply(cmd.Flags(), &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if flags.input == "" && (len(steps) == 0 || steps[0] == stage.Crawl) {
		return fmt.Errorf("%w: --input is required when crawling", core.ErrInvalidConfig)
	}

	log, err := logger.New(flags.production, flags.verbose)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer log.Sync()

	p, err := pipeline.New(pipeline.Options{
		Root:       flags.output,
		Production: flags.production,
		Collection: flags.collection,
		NLimit:     flags.nLimit,
		Config:     cfg,
		Logger:     log,
	})
	if err != nil {
		return err
	}

	var summary pipeline.Summary
	if len(steps) == 0 {
		summary, err = p.Run(cmd.Context(), flags.input)
	} else {
		summary, err = p.RunStep(cmd.Context(), steps[0], flags.input)
	}
	printSummary(cmd.OutOrStdout(), summary)
	return err
}

// printSummary writes one line per stage that ran, then every item error.
func printSummary(w io.Writer, s pipeline.Summary) {
	for _, st := range stage.All {
		n, ok := s.Counts[st]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "✓ %-5s %d\n", st, n)
	}
	for _, rec := range s.Errors {
		fmt.Fprintf(w, "  ✗ [%s] %s: %s\n", rec.Stage, rec.Item, rec.Message)
	}
	status := s.State.String()
	if s.Degraded {
		status += fmt.Sprintf(" (degraded, %d errors)", len(s.Errors))
	}
	fmt.Fprintf(w, "State: %s\n", status)
}
