// BFS queue with deduplication.
// Maintains a visited set to avoid processing the same URL twice. The queue
// is safe for concurrent use so fetch workers can share one visited set.

package crawl

import "sync"

// Queue is a BFS queue with URL deduplication.
type Queue struct {
	mu      sync.Mutex
	items   []string
	visited map[string]bool
	idx     int // current read position
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{
		visited: make(map[string]bool),
	}
}

// Add enqueues a URL if it hasn't been seen before and reports whether it did.
func (q *Queue) Add(url string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.visited[url] {
		return false
	}
	q.visited[url] = true
	q.items = append(q.items, url)
	return true
}

// Next returns the next unprocessed URL and advances the pointer.
// ok is false when the queue is drained.
func (q *Queue) Next() (url string, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.idx >= len(q.items) {
		return "", false
	}
	url = q.items[q.idx]
	q.idx++
	return url, true
}

// Pending returns the number of queued URLs not yet handed out.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.idx
}

// Visited returns the total number of unique URLs seen.
func (q *Queue) Visited() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.visited)
}
