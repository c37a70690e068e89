package sitegraph

import (
	"sort"
	"sync"
)

// VisitedSet records every URL scheduled during a run. Membership only
// grows.
type VisitedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewVisitedSet creates an empty set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: make(map[string]struct{})}
}

// ShouldVisit marks rawURL as visited and reports whether this call was the
// first to do so. The check and the mark happen under one lock, so among
// concurrent callers with the same URL exactly one gets true.
func (v *VisitedSet) ShouldVisit(rawURL string) bool {
	key := VisitKey(rawURL)

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.seen[key]; ok {
		return false
	}
	v.seen[key] = struct{}{}
	return true
}

// Contains reports whether rawURL was already marked.
func (v *VisitedSet) Contains(rawURL string) bool {
	key := VisitKey(rawURL)

	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.seen[key]
	return ok
}

// Len returns the number of distinct URLs marked.
func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}

// Sorted returns the marked URLs in lexical order.
func (v *VisitedSet) Sorted() []string {
	v.mu.Lock()
	out := make([]string, 0, len(v.seen))
	for u := range v.seen {
		out = append(out, u)
	}
	v.mu.Unlock()

	sort.Strings(out)
	return out
}
