package crawl

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gaurav-prasanna/docpipe/core"
	"github.com/gaurav-prasanna/docpipe/core/logger"
)

// SortedExtensions are the document types the sort stage keeps.
var SortedExtensions = []string{".html", ".htm", ".pdf", ".docx"}

// LocalExtractor copies matching files from a directory tree into
// <outputDir>/<ext>/, flattening the source layout.
type LocalExtractor struct {
	extensions map[string]bool
	logger     *logger.Logger
}

// NewLocalExtractor creates a LocalExtractor for the given extensions.
// Matching is case-insensitive and the leading dot is optional.
func NewLocalExtractor(extensions []string, log *logger.Logger) *LocalExtractor {
	set := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = true
	}
	return &LocalExtractor{extensions: set, logger: logger.OrNop(log)}
}

// Extract walks input and copies every allowed file. Name clashes inside an
// extension directory get -1, -2, ... suffixes. Per-file failures become
// ErrorRecords; a missing input directory is ErrInvalidConfig.
func (l *LocalExtractor) Extract(ctx context.Context, input string, outputDir string) ([]string, []core.ErrorRecord, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: input directory: %v", core.ErrInvalidConfig, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s is not a directory", core.ErrInvalidConfig, input)
	}
	absIn, _ := filepath.Abs(input)
	absOut, _ := filepath.Abs(outputDir)
	if absIn == absOut || strings.HasPrefix(absIn, absOut+string(filepath.Separator)) {
		return nil, nil, fmt.Errorf("%w: input %s lies inside output %s", core.ErrInvalidConfig, input, outputDir)
	}
	if err := resetDir(outputDir); err != nil {
		return nil, nil, err
	}

	var (
		copied  []string
		records []core.ErrorRecord
		used    = make(map[string]bool)
	)

	walkErr := filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			l.logger.Warn("skipping unreadable entry", "path", path, "error", err)
			records = append(records, core.ErrorRecord{Item: path, Message: err.Error()})
			if d != nil && d.IsDir() && path != input {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if abs, _ := filepath.Abs(path); abs == absOut {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !l.extensions[ext] || !d.Type().IsRegular() {
			return nil
		}

		dest := uniqueName(filepath.Join(outputDir, strings.TrimPrefix(ext, ".")), filepath.Base(path), used)
		if err := copyFile(path, dest); err != nil {
			l.logger.Warn("copy failed", "path", path, "error", err)
			records = append(records, core.ErrorRecord{Item: path, Message: err.Error()})
			return nil
		}
		copied = append(copied, dest)
		return nil
	})
	if walkErr != nil {
		return copied, records, fmt.Errorf("walking %s: %w", input, walkErr)
	}

	l.logger.Info("local extraction finished", "input", input, "copied", len(copied), "errors", len(records))
	return copied, records, nil
}

// uniqueName returns dir/name, or dir/<stem>-N<ext> when that was already used.
func uniqueName(dir, name string, used map[string]bool) string {
	candidate := filepath.Join(dir, name)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; used[strings.ToLower(candidate)]; i++ {
		candidate = filepath.Join(dir, stem+"-"+strconv.Itoa(i)+ext)
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
