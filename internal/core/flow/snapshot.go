package flow

// Snapshot is an immutable view of a flow graph. Validation rules and
// callers outside the store only ever see snapshots.
type Snapshot struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []Edge      `json:"edges"`
}

// Node looks up a card by id
func (s Snapshot) Node(id NodeID) (GraphNode, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return GraphNode{}, false
}

// Incoming returns the connections ending at id
func (s Snapshot) Incoming(id NodeID) []Edge {
	var out []Edge
	for _, e := range s.Edges {
		if e.Target == id {
			out = append(out, e)
		}
	}
	return out
}

// Outgoing returns the connections starting at id
func (s Snapshot) Outgoing(id NodeID) []Edge {
	var out []Edge
	for _, e := range s.Edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// NodesOfType returns the cards of the given type in placement order
func (s Snapshot) NodesOfType(t NodeType) []GraphNode {
	var out []GraphNode
	for _, n := range s.Nodes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}
