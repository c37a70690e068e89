package sitegraph

import (
	"strings"
	"sync"

	"github.com/jmylchreest/campuscrawl/internal/logger"
)

// Edge links a base path to a page URL found under it.
type Edge struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// EdgeSeparator joins source and target in formatted edges.
const EdgeSeparator = " -> "

// String formats the edge as "source -> target".
func (e Edge) String() string {
	return e.Source + EdgeSeparator + e.Target
}

// ParseEdge reverses Edge.String.
func ParseEdge(s string) (Edge, bool) {
	source, target, ok := strings.Cut(s, EdgeSeparator)
	if !ok || source == "" || target == "" {
		return Edge{}, false
	}
	return Edge{Source: source, Target: target}, true
}

// Update describes the effect of one AddPage call.
type Update struct {
	// Added holds the edges this call inserted for the first time.
	Added []Edge
	// Snapshot holds every edge in the graph once this call's insertions
	// were applied, taken under the same lock.
	Snapshot []Edge
	// Dropped counts links that could not be normalized.
	Dropped int
}

// Graph is a directed graph shared by every page of a crawl run. Edges are
// only ever added; inserting an existing edge is a no-op.
//
// Edges are listed grouped by source, sources in the order their vertex was
// first seen (as either endpoint) and targets in insertion order.
type Graph struct {
	mu      sync.RWMutex
	order   []string            // vertices in first-seen order
	vertex  map[string]struct{} // membership for order
	adj     map[string][]string // source -> targets, insertion order
	edgeSet map[Edge]struct{}
	sources []string // vertices that have at least one outgoing edge
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		vertex:  make(map[string]struct{}),
		adj:     make(map[string][]string),
		edgeSet: make(map[Edge]struct{}),
	}
}

// AddPage inserts an edge from each link's base path to the link itself,
// skipping links whose base path equals the link (no self-loops) and links
// that cannot be normalized. pageURL identifies the page for logging only.
func (g *Graph) AddPage(pageURL string, links []string) Update {
	var upd Update

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, link := range links {
		base, err := BasePath(link)
		if err != nil {
			logger.Debug("dropping link from graph", "page", pageURL, "link", link, "error", err)
			upd.Dropped++
			continue
		}
		if base == link {
			continue
		}
		if e, added := g.addEdgeLocked(base, link); added {
			upd.Added = append(upd.Added, e)
		}
	}

	upd.Snapshot = g.edgesLocked()
	return upd
}

// AddEdge inserts a single edge and reports whether it was new.
func (g *Graph) AddEdge(source, target string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, added := g.addEdgeLocked(source, target)
	return added
}

func (g *Graph) addEdgeLocked(source, target string) (Edge, bool) {
	e := Edge{Source: source, Target: target}
	if _, ok := g.edgeSet[e]; ok {
		return e, false
	}
	g.touchLocked(source)
	g.touchLocked(target)
	if len(g.adj[source]) == 0 {
		g.sources = append(g.sources, source)
	}
	g.adj[source] = append(g.adj[source], target)
	g.edgeSet[e] = struct{}{}
	return e, true
}

func (g *Graph) touchLocked(v string) {
	if _, ok := g.vertex[v]; ok {
		return
	}
	g.vertex[v] = struct{}{}
	g.order = append(g.order, v)
}

func (g *Graph) edgesLocked() []Edge {
	edges := make([]Edge, 0, len(g.edgeSet))
	for _, v := range g.order {
		for _, target := range g.adj[v] {
			edges = append(edges, Edge{Source: v, Target: target})
		}
	}
	return edges
}

// Edges returns a snapshot of every edge.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edgesLocked()
}

// Nodes returns the base paths that have outgoing edges, in the order they
// were first used as a source.
func (g *Graph) Nodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.sources))
	copy(out, g.sources)
	return out
}

// Len returns the number of edges.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edgeSet)
}

// HasEdge reports whether the edge source -> target exists.
func (g *Graph) HasEdge(source, target string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.edgeSet[Edge{Source: source, Target: target}]
	return ok
}

// Formatted renders edges as "source -> target" strings.
func Formatted(edges []Edge) []string {
	out := make([]string, len(edges))
	for i, e := range edges {
		out[i] = e.String()
	}
	return out
}
