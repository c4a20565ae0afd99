// Package config holds the tunables for a pipeline run and loads them from
// an optional TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/gaurav-prasanna/docpipe/core"
)

// Config is the full set of pipeline tunables.
type Config struct {
	Parse ParseConfig `toml:"parse"`
	Crawl CrawlConfig `toml:"crawl"`
	Embed EmbedConfig `toml:"embed"`
}

// ParseConfig controls chunk emission and quality filtering.
type ParseConfig struct {
	MinLength           int      `toml:"min_length"`
	MinUniqueWords      int      `toml:"min_unique_words"`
	MaxRepetition       float64  `toml:"max_repetition"`
	MaxWords            int      `toml:"max_words"`
	Workers             int      `toml:"workers"`
	BoilerplatePatterns []string `toml:"boilerplate_patterns"`
}

// CrawlConfig controls the web extractor.
type CrawlConfig struct {
	MaxPages          int      `toml:"max_pages"` // 0 means unlimited
	AllowedDomains    []string `toml:"allowed_domains"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Burst             int      `toml:"burst"`
	TimeoutSeconds    int      `toml:"timeout_seconds"`
	UserAgent         string   `toml:"user_agent"`
	Sitemap           bool     `toml:"sitemap"`
}

// EmbedConfig controls the embedding collaborator.
type EmbedConfig struct {
	URL       string `toml:"url"`
	Model     string `toml:"model"` // empty stores chunks without vectors
	BatchSize int    `toml:"batch_size"`
}

// DefaultBoilerplatePatterns match navigation, footer and site-chrome text.
var DefaultBoilerplatePatterns = []string{
	`\bSearch this site\b`,
	`\bEmbedded Files\b`,
	`\bGoogle Sites\b.*\bReport abuse\b`,
	`\bContact Webmaster\b`,
	`\bCopyright\s+(©\s*)?\d{4}`,
	`\bNavigation\b`,
	`\bFooter\b`,
	`\bHeader\b`,
	`\bMenu\b`,
	`\bSidebar\b`,
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Parse: ParseConfig{
			MinLength:           20,
			MinUniqueWords:      5,
			MaxRepetition:       0.3,
			MaxWords:            512,
			Workers:             1,
			BoilerplatePatterns: append([]string(nil), DefaultBoilerplatePatterns...),
		},
		Crawl: CrawlConfig{
			RequestsPerSecond: 2,
			Burst:             1,
			TimeoutSeconds:    30,
			UserAgent:         "docpipe/0.1",
		},
		Embed: EmbedConfig{
			URL:       "http://localhost:11434",
			BatchSize: 100,
		},
	}
}

// Load reads a TOML file over the defaults. An empty path returns Default().
// Keys absent from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: reading config %s: %v", core.ErrInvalidConfig, path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: decoding config %s: %v", core.ErrInvalidConfig, path, err)
	}
	return cfg, cfg.Validate()
}

// Validate reports every out-of-range tunable, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	if c.Parse.MinLength < 0 {
		errs = append(errs, errors.New("parse.min_length must not be negative"))
	}
	if c.Parse.MinUniqueWords < 1 {
		errs = append(errs, errors.New("parse.min_unique_words must be positive"))
	}
	if c.Parse.MaxRepetition <= 0 || c.Parse.MaxRepetition > 1 {
		errs = append(errs, errors.New("parse.max_repetition must be in (0, 1]"))
	}
	if c.Parse.MaxWords < 1 {
		errs = append(errs, errors.New("parse.max_words must be positive"))
	}
	if c.Parse.Workers < 1 {
		errs = append(errs, errors.New("parse.workers must be positive"))
	}
	for _, p := range c.Parse.BoilerplatePatterns {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("parse.boilerplate_patterns: %w", err))
		}
	}
	if c.Crawl.MaxPages < 0 {
		errs = append(errs, errors.New("crawl.max_pages must not be negative"))
	}
	if c.Crawl.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("crawl.requests_per_second must be positive"))
	}
	if c.Crawl.Burst < 1 {
		errs = append(errs, errors.New("crawl.burst must be positive"))
	}
	if c.Crawl.TimeoutSeconds < 1 {
		errs = append(errs, errors.New("crawl.timeout_seconds must be positive"))
	}
	if c.Embed.BatchSize < 1 {
		errs = append(errs, errors.New("embed.batch_size must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", core.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Timeout returns the crawl HTTP timeout as a duration.
func (c CrawlConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
