// Package dedup decides whether a chunk of text is worth keeping.
// Identity is content-addressed: two texts that normalize equal share an id.
package dedup

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/gaurav-prasanna/docpipe/core/normalize"
)

// ChunkID returns "chunk_" followed by the hex MD5 of the hash-normalized text.
func ChunkID(text string) string {
	return idFor(normalize.ForHash(text))
}

func idFor(normalized string) string {
	sum := md5.Sum([]byte(normalized))
	return "chunk_" + hex.EncodeToString(sum[:])
}

// Set is a concurrency-safe set of chunk ids.
type Set struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{ids: make(map[string]struct{})}
}

// Add inserts id and reports whether it was not already present.
func (s *Set) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Has reports whether id is in the set.
func (s *Set) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of ids held.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Merge adds every id of other to s.
func (s *Set) Merge(other *Set) {
	if other == nil || other == s {
		return
	}
	other.mu.Lock()
	ids := make([]string, 0, len(other.ids))
	for id := range other.ids {
		ids = append(ids, id)
	}
	other.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

// Reason explains why a text was rejected.
type Reason int

const (
	Kept Reason = iota
	TooFewWords
	Repetitive
	Duplicate
)

func (r Reason) String() string {
	switch r {
	case Kept:
		return "kept"
	case TooFewWords:
		return "too few unique words"
	case Repetitive:
		return "repetitive"
	case Duplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Filter holds the quality thresholds applied before a chunk is admitted.
type Filter struct {
	// MinUniqueWords is the smallest number of distinct words a chunk may have.
	MinUniqueWords int
	// MaxRepetition is the largest share of all words the most frequent word may take.
	MaxRepetition float64
}

// DefaultFilter returns the standard thresholds: 5 unique words, 30% repetition.
func DefaultFilter() Filter {
	return Filter{MinUniqueWords: 5, MaxRepetition: 0.3}
}

// ShouldKeep evaluates the normalized form of text against the thresholds
// and, when it passes, records its id in set. The id is returned even for
// rejected text.
func (f Filter) ShouldKeep(text string, set *Set) (string, bool, Reason) {
	normalized := normalize.ForHash(text)
	id := idFor(normalized)

	words := strings.Fields(normalized)
	counts := make(map[string]int, len(words))
	top := 0
	for _, w := range words {
		counts[w]++
		if counts[w] > top {
			top = counts[w]
		}
	}
	if len(counts) < f.MinUniqueWords {
		return id, false, TooFewWords
	}
	if float64(top)/float64(len(words)) > f.MaxRepetition {
		return id, false, Repetitive
	}
	if !set.Add(id) {
		return id, false, Duplicate
	}
	return id, true, Kept
}
