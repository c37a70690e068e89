package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

func newRobotsServer(t *testing.T, body string, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestRobotsGate_Disallow(t *testing.T) {
	srv, _ := newRobotsServer(t, "User-agent: *\nDisallow: /private/\n\nUser-agent: campuscrawl\nDisallow: /staff-only/\n", http.StatusOK)
	gate := NewRobotsGate(srv.Client(), "campuscrawl/1.0 (+https://example.org)")
	ctx := context.Background()

	tests := []struct {
		path string
		want bool
	}{
		{"/", true},
		{"/public/page", true},
		{"/staff-only/list", false},
		// The specific group replaces the * group for this agent.
		{"/private/x", true},
	}

	for _, tt := range tests {
		if got := gate.Allowed(ctx, srv.URL+tt.path); got != tt.want {
			t.Errorf("Allowed(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestRobotsGate_WildcardGroup(t *testing.T) {
	srv, _ := newRobotsServer(t, "User-agent: *\nDisallow: /private/\n", http.StatusOK)
	gate := NewRobotsGate(srv.Client(), "campuscrawl/1.0")

	if gate.Allowed(context.Background(), srv.URL+"/private/x") {
		t.Error("expected /private/ to be disallowed")
	}
	if !gate.Allowed(context.Background(), srv.URL+"/open") {
		t.Error("expected /open to be allowed")
	}
}

func TestRobotsGate_MissingRobotsAllowsAll(t *testing.T) {
	srv, _ := newRobotsServer(t, "", http.StatusNotFound)
	gate := NewRobotsGate(srv.Client(), "campuscrawl")

	if !gate.Allowed(context.Background(), srv.URL+"/anything") {
		t.Error("expected 404 robots.txt to allow everything")
	}
}

func TestRobotsGate_UnreachableAllowsAll(t *testing.T) {
	srv, _ := newRobotsServer(t, "User-agent: *\nDisallow: /\n", http.StatusOK)
	target := srv.URL + "/page"
	srv.Close()

	gate := NewRobotsGate(nil, "campuscrawl")
	if !gate.Allowed(context.Background(), target) {
		t.Error("expected unreachable robots.txt to allow everything")
	}
}

func TestRobotsGate_FetchesOncePerOrigin(t *testing.T) {
	srv, hits := newRobotsServer(t, "User-agent: *\nDisallow: /private/\n", http.StatusOK)
	gate := NewRobotsGate(srv.Client(), "campuscrawl")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gate.Allowed(context.Background(), srv.URL+"/page")
		}()
	}
	wg.Wait()

	if n := hits.Load(); n != 1 {
		t.Errorf("expected robots.txt to be fetched once, got %d", n)
	}
}
