package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/docpipe/core"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 20, cfg.Parse.MinLength)
	assert.Equal(t, 5, cfg.Parse.MinUniqueWords)
	assert.InDelta(t, 0.3, cfg.Parse.MaxRepetition, 1e-9)
	assert.Equal(t, 512, cfg.Parse.MaxWords)
	assert.Equal(t, 1, cfg.Parse.Workers)
	assert.Equal(t, 30*time.Second, cfg.Crawl.Timeout())
	assert.Equal(t, 100, cfg.Embed.BatchSize)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesOnlyGivenKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docpipe.toml")
	content := `
[parse]
min_length = 40
workers = 4

[crawl]
max_pages = 10
allowed_domains = ["example.com", "docs.example.com"]

[embed]
model = "nomic-embed-text"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 40, cfg.Parse.MinLength)
	assert.Equal(t, 4, cfg.Parse.Workers)
	assert.Equal(t, 512, cfg.Parse.MaxWords)
	assert.Equal(t, 10, cfg.Crawl.MaxPages)
	assert.Equal(t, []string{"example.com", "docs.example.com"}, cfg.Crawl.AllowedDomains)
	assert.Equal(t, "nomic-embed-text", cfg.Embed.Model)
	assert.Equal(t, 100, cfg.Embed.BatchSize)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[parse\nmin_length = "), 0644))
	_, err = Load(bad)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	invalid := filepath.Join(dir, "invalid.toml")
	require.NoError(t, os.WriteFile(invalid, []byte("[parse]\nworkers = 0\n"), 0644))
	_, err = Load(invalid)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative min length", func(c *Config) { c.Parse.MinLength = -1 }},
		{"zero unique words", func(c *Config) { c.Parse.MinUniqueWords = 0 }},
		{"repetition above one", func(c *Config) { c.Parse.MaxRepetition = 1.5 }},
		{"zero max words", func(c *Config) { c.Parse.MaxWords = 0 }},
		{"bad boilerplate regex", func(c *Config) { c.Parse.BoilerplatePatterns = []string{"("} }},
		{"negative max pages", func(c *Config) { c.Crawl.MaxPages = -3 }},
		{"zero rate", func(c *Config) { c.Crawl.RequestsPerSecond = 0 }},
		{"zero timeout", func(c *Config) { c.Crawl.TimeoutSeconds = 0 }},
		{"zero batch size", func(c *Config) { c.Embed.BatchSize = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), core.ErrInvalidConfig)
		})
	}
}
