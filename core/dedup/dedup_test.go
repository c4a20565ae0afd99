package dedup

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkID_NormalizesCaseAndPunctuation(t *testing.T) {
	a := ChunkID("Hello, World! This is the intake valve.")
	b := ChunkID("hello world this is the intake valve")

	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "chunk_"))
	assert.Len(t, a, len("chunk_")+32)
	assert.NotEqual(t, a, ChunkID("hello world this is the outlet valve"))
}

func TestFilter_ShouldKeep(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		ok     bool
		reason Reason
	}{
		{"enough unique words", "the pump drives water through the intake valve", true, Kept},
		{"too few unique words", "valve valve pump pump", false, TooFewWords},
		{"four distinct words", "one two three four one two three four", false, TooFewWords},
		{"repetitive", "spam spam spam spam one two three four", false, Repetitive},
		{"empty", "", false, TooFewWords},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, ok, reason := DefaultFilter().ShouldKeep(tc.text, NewSet())
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

func TestFilter_ShouldKeepIDMatchesChunkID(t *testing.T) {
	texts := []string{
		"The pump drives water through the intake valve.",
		"too short",
		"spam spam spam spam one two three four",
	}
	for _, text := range texts {
		id, _, _ := DefaultFilter().ShouldKeep(text, NewSet())
		assert.Equal(t, ChunkID(text), id, text)
	}
}

func TestFilter_RepetitionBoundary(t *testing.T) {
	// Top word at exactly 30% of ten words is kept.
	text := "a a a b c d e f g h"
	_, ok, _ := DefaultFilter().ShouldKeep(text, NewSet())
	assert.True(t, ok)
}

func TestFilter_DuplicateAcrossCase(t *testing.T) {
	set := NewSet()
	f := DefaultFilter()

	id1, ok, _ := f.ShouldKeep("Hello, World! The quick brown fox.", set)
	require.True(t, ok)

	id2, ok, reason := f.ShouldKeep("hello world the quick brown fox", set)
	assert.False(t, ok)
	assert.Equal(t, Duplicate, reason)
	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, set.Len())
}

func TestFilter_RejectedTextNotRecorded(t *testing.T) {
	set := NewSet()
	id, ok, _ := DefaultFilter().ShouldKeep("too short", set)
	assert.False(t, ok)
	assert.False(t, set.Has(id))
}

func TestSet_ConcurrentAddAdmitsOnce(t *testing.T) {
	set := NewSet()
	f := DefaultFilter()
	text := "identical content shared between many parser workers"

	var wg sync.WaitGroup
	var mu sync.Mutex
	kept := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := f.ShouldKeep(text, set); ok {
				mu.Lock()
				kept++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, kept)
}

func TestSet_Merge(t *testing.T) {
	a, b := NewSet(), NewSet()
	for i := 0; i < 3; i++ {
		a.Add(fmt.Sprintf("a%d", i))
		b.Add(fmt.Sprintf("b%d", i))
	}
	b.Add("a0")

	a.Merge(b)
	assert.Equal(t, 6, a.Len())
	assert.True(t, a.Has("b2"))
}
