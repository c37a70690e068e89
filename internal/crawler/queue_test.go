package crawler

import (
	"fmt"
	"sync"
	"testing"

	"github.com/jmylchreest/campuscrawl/internal/sitegraph"
)

func newQueue() *URLQueue {
	return NewURLQueue(sitegraph.NewVisitedSet())
}

// --- URLQueue Tests ---

func TestURLQueue_Add_NewURL(t *testing.T) {
	q := newQueue()

	if !q.Add("https://example.com/page1", 0) {
		t.Error("Add() should return true for new URL")
	}

	if q.Len() != 1 {
		t.Errorf("expected queue length 1, got %d", q.Len())
	}
}

func TestURLQueue_Add_DuplicateURL(t *testing.T) {
	q := newQueue()

	q.Add("https://example.com/page1", 0)
	if q.Add("https://example.com/page1#staff", 1) {
		t.Error("Add() should return false for duplicate URL")
	}

	if q.Len() != 1 {
		t.Errorf("expected queue length 1, got %d", q.Len())
	}
}

func TestURLQueue_Add_Unfetchable(t *testing.T) {
	q := newQueue()

	for _, raw := range []string{
		"://invalid",
		"/relative",
		"mailto:dean@example.com",
		"javascript:void(0)",
		"ftp://example.com/file",
	} {
		if q.Add(raw, 0) {
			t.Errorf("Add(%q) should return false", raw)
		}
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue, got %d", q.Len())
	}
}

func TestURLQueue_SharesVisitedSet(t *testing.T) {
	visited := sitegraph.NewVisitedSet()
	visited.ShouldVisit("https://example.com/seen")
	q := NewURLQueue(visited)

	if q.Add("https://example.com/seen", 0) {
		t.Error("Add() should refuse a URL already in the visited set")
	}
	if !q.Add("https://example.com/new", 0) {
		t.Error("Add() should accept a new URL")
	}
	if !visited.Contains("https://example.com/new") {
		t.Error("Add() should mark the URL in the visited set")
	}
}

func TestURLQueue_Pop_Empty(t *testing.T) {
	q := newQueue()

	url, depth, ok := q.Pop()
	if ok {
		t.Error("Pop() should return false for empty queue")
	}
	if url != "" || depth != 0 {
		t.Errorf("expected zero values, got %q, %d", url, depth)
	}
}

func TestURLQueue_Pop_FIFO_Order(t *testing.T) {
	q := newQueue()

	urls := []string{
		"https://example.com/1",
		"https://example.com/2",
		"https://example.com/3",
	}

	for i, url := range urls {
		q.Add(url, i)
	}

	for i, expected := range urls {
		url, depth, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop() returned false at index %d", i)
		}
		if url != expected {
			t.Errorf("expected %q, got %q", expected, url)
		}
		if depth != i {
			t.Errorf("expected depth %d, got %d", i, depth)
		}
	}
}

func TestURLQueue_ConcurrentAdd(t *testing.T) {
	q := newQueue()
	var wg sync.WaitGroup
	var mu sync.Mutex
	added := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if q.Add(fmt.Sprintf("https://example.com/page%d", n%10), 1) {
				mu.Lock()
				added++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if added != 10 {
		t.Errorf("expected 10 successful adds, got %d", added)
	}
	if q.Len() != 10 {
		t.Errorf("expected queue length 10, got %d", q.Len())
	}
}

// --- normalizeURL Tests ---

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://example.com/page#section", "https://example.com/page"},
		{"https://example.com/page#", "https://example.com/page"},
		{"HTTPS://Example.COM/Page", "https://example.com/Page"},
		{"https://example.com/page/", "https://example.com/page/"},
		{"https://example.com/list?tab=1", "https://example.com/list?tab=1"},
		{"://invalid", ""},
		{"mailto:x@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := normalizeURL(tt.input)
			if got != tt.expected {
				t.Errorf("normalizeURL(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
