// Package stage owns the on-disk layout of pipeline state.
// Paths are recomputed from (root, environment, stage) on every call;
// nothing is cached.
package stage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/gaurav-prasanna/docpipe/core"
)

// Stage is one phase of the pipeline. Stages are totally ordered.
type Stage int

const (
	Crawl Stage = iota
	Sort
	Parse
	Embed
)

// All lists every stage in pipeline order.
var All = []Stage{Crawl, Sort, Parse, Embed}

var names = map[Stage]string{
	Crawl: "crawl",
	Sort:  "sort",
	Parse: "parse",
	Embed: "embed",
}

var dirNames = map[Stage]string{
	Crawl: "local_input_source",
	Sort:  "sorted_documents",
	Parse: "json_chunks",
	Embed: "chroma_db",
}

func (s Stage) String() string {
	if n, ok := names[s]; ok {
		return n
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// DirName returns the directory name used for the stage under an environment.
func (s Stage) DirName() string {
	return dirNames[s]
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := names[s]
	return ok
}

// ParseStage converts a step name (crawl, sort, parse, embed) into a Stage.
func ParseStage(name string) (Stage, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s, n := range names {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", core.ErrUnknownStage, name)
}

// Downstream returns s and every stage ordered after it.
func Downstream(s Stage) []Stage {
	var out []Stage
	for _, st := range All {
		if st >= s {
			out = append(out, st)
		}
	}
	return out
}

// Env returns the environment name for the production flag.
func Env(production bool) string {
	if production {
		return "prod"
	}
	return "dev"
}

// EnvDir returns <root>/<env>.
func EnvDir(root string, production bool) string {
	return filepath.Join(root, Env(production))
}

// Dir returns the directory for a stage. It has no side effects.
func Dir(root string, s Stage, production bool) string {
	return filepath.Join(EnvDir(root, production), s.DirName())
}

// Ensure creates every stage directory that does not exist yet.
func Ensure(root string, production bool) error {
	for _, s := range All {
		if err := os.MkdirAll(Dir(root, s, production), 0755); err != nil {
			return fmt.Errorf("creating %s directory: %w", s, err)
		}
	}
	return nil
}

// CleanFrom empties the directory of s and of every downstream stage.
//
// Existing directories are first moved aside, then recreated empty, and only
// then is the moved-aside content deleted. If a move or create fails, the
// moves already made are undone, so the tree is either fully reset or left
// as it was.
func CleanFrom(root string, s Stage, production bool) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %d", core.ErrUnknownStage, int(s))
	}
	envDir := EnvDir(root, production)
	if err := os.MkdirAll(envDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", envDir, err)
	}

	type move struct{ from, to string }
	var moved []move
	restore := func() error {
		var errs []error
		for i := len(moved) - 1; i >= 0; i-- {
			m := moved[i]
			if err := os.RemoveAll(m.from); err != nil {
				errs = append(errs, err)
				continue
			}
			if err := os.Rename(m.to, m.from); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	targets := Downstream(s)
	for _, st := range targets {
		dir := Dir(root, st, production)
		if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
			continue
		} else if err != nil {
			return errors.Join(fmt.Errorf("inspecting %s: %w", dir, err), restore())
		}
		trash := filepath.Join(envDir, ".trash-"+st.DirName()+"-"+uuid.NewString())
		if err := os.Rename(dir, trash); err != nil {
			return errors.Join(fmt.Errorf("moving %s aside: %w", dir, err), restore())
		}
		moved = append(moved, move{from: dir, to: trash})
	}

	for _, st := range targets {
		dir := Dir(root, st, production)
		if err := mkdirAll(dir, 0755); err != nil {
			errs := []error{fmt.Errorf("creating %s: %w", dir, err)}
			for _, created := range targets {
				if rerr := removeAll(Dir(root, created, production)); rerr != nil {
					errs = append(errs, fmt.Errorf("rolling back %s: %w", created, rerr))
				}
			}
			return errors.Join(append(errs, restore())...)
		}
	}

	var errs []error
	for _, m := range moved {
		if err := os.RemoveAll(m.to); err != nil {
			errs = append(errs, fmt.Errorf("removing %s: %w", m.to, err))
		}
	}
	// Leftover trash does not affect the stage directories themselves.
	if len(errs) > 0 {
		return &TrashError{Err: errors.Join(errs...)}
	}
	return nil
}

// Replaced in tests to inject failures while stage directories are rebuilt.
var (
	mkdirAll  = os.MkdirAll
	removeAll = os.RemoveAll
)

// TrashError reports that stage directories were reset but some moved-aside
// content could not be deleted.
type TrashError struct {
	Err error
}

func (e *TrashError) Error() string {
	return "stage directories reset, trash not removed: " + e.Err.Error()
}

func (e *TrashError) Unwrap() error {
	return e.Err
}
