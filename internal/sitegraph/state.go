package sitegraph

// State is the crawl-lifetime state of one run. It is created at run start,
// passed explicitly to every component, and dropped (or exported) at the
// end of the run.
type State struct {
	Visited *VisitedSet
	Graph   *Graph
}

// NewState returns empty state for a new run.
func NewState() *State {
	return &State{
		Visited: NewVisitedSet(),
		Graph:   NewGraph(),
	}
}

// Export is the serializable form of the graph.
type Export struct {
	Nodes []string `json:"nodes" yaml:"nodes"`
	Edges []Edge   `json:"edges" yaml:"edges"`
}

// Export returns a snapshot of the graph suitable for writing out.
func (s *State) Export() Export {
	return Export{
		Nodes: s.Graph.Nodes(),
		Edges: s.Graph.Edges(),
	}
}
