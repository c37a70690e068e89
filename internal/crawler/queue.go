// Package crawler drives a crawl run: it schedules URLs, fetches them with
// bounded concurrency and hands every page to the graph builder and the
// record emitter.
package crawler

import (
	"net/url"
	"sync"

	"github.com/jmylchreest/campuscrawl/internal/sitegraph"
)

// URLQueue is the FIFO of URLs waiting to be fetched. Admission goes through
// the run's VisitedSet, so a URL is queued at most once per run no matter how
// many pages link to it or how many workers discover it at the same time.
type URLQueue struct {
	mu      sync.Mutex
	queue   []queueItem
	visited *sitegraph.VisitedSet
}

type queueItem struct {
	URL   string
	Depth int
}

// NewURLQueue creates a queue gated by visited.
func NewURLQueue(visited *sitegraph.VisitedSet) *URLQueue {
	return &URLQueue{visited: visited}
}

// Add queues rawURL unless it is not an absolute http(s) URL or was seen
// before. It reports whether the URL was queued.
func (q *URLQueue) Add(rawURL string, depth int) bool {
	key := normalizeURL(rawURL)
	if key == "" {
		return false
	}
	if !q.visited.ShouldVisit(key) {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.queue = append(q.queue, queueItem{URL: key, Depth: depth})
	return true
}

// Pop removes and returns the next URL from the queue.
func (q *URLQueue) Pop() (string, int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.queue) == 0 {
		return "", 0, false
	}

	item := q.queue[0]
	q.queue = q.queue[1:]
	return item.URL, item.Depth, true
}

// Len returns the number of items in the queue.
func (q *URLQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// normalizeURL returns the visited-set key for an absolute http(s) URL, or ""
// for anything that cannot be fetched.
func normalizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	if parsed.Host == "" {
		return ""
	}
	return sitegraph.VisitKey(rawURL)
}
