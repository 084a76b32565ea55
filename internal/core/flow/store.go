package flow

import "fmt"

// NodeSpec describes a card to place
type NodeSpec struct {
	Ref      CatalogRef
	Position Position
}

// Store owns the placed cards and their connections and applies structural
// mutations atomically. It performs no validation: the caller decides
// whether a mutation is legal before asking for it.
// PRINCIPLES:
// - SRP: Only responsible for graph state
// - Not safe for concurrent use; one store per editing session
type Store struct {
	nodes []*GraphNode
	index map[NodeID]*GraphNode
	edges []Edge
}

// NewStore returns a store holding only the start card
func NewStore() *Store {
	start := newStartNode()
	return &Store{
		nodes: []*GraphNode{start},
		index: map[NodeID]*GraphNode{start.ID: start},
	}
}

// Restore rebuilds a store from previously saved nodes and edges. Node ids
// must ascend in slice order so id allocation continues past the last one.
func Restore(nodes []GraphNode, edges []Edge) (*Store, error) {
	s := &Store{index: make(map[NodeID]*GraphNode, len(nodes))}
	prev := -1
	for i := range nodes {
		n := nodes[i].Clone()
		seq, err := n.ID.Seq()
		if err != nil {
			return nil, err
		}
		if _, dup := s.index[n.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
		}
		if seq <= prev {
			return nil, fmt.Errorf("%w: %s after %s", ErrNodeIDOrder, n.ID, NodeIDFromSeq(prev))
		}
		prev = seq
		if n.Config == nil {
			n.Config = NewConfig(n.Type, n.Label)
		}
		if n.Config.Type() != n.Type {
			return nil, fmt.Errorf("%w: node %s", ErrConfigTypeMismatch, n.ID)
		}
		s.nodes = append(s.nodes, &n)
		s.index[n.ID] = &n
	}
	start, ok := s.index[StartNodeID]
	if !ok || !start.IsStart() {
		return nil, ErrMissingStartNode
	}
	for _, e := range edges {
		if _, err := s.AddEdge(e.Source, e.Target); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// nextID allocates the successor of the last node's id
func (s *Store) nextID() NodeID {
	if len(s.nodes) == 0 {
		return NodeIDFromSeq(0)
	}
	seq, err := s.nodes[len(s.nodes)-1].ID.Seq()
	if err != nil {
		// Restore only accepts ids it can parse back, so this is unreachable
		// unless the store was built by hand.
		panic(err)
	}
	return NodeIDFromSeq(seq + 1)
}

// AddNode places a card with an empty, unsubmitted configuration
func (s *Store) AddNode(spec NodeSpec) (GraphNode, error) {
	t, err := spec.Ref.Module.NodeType()
	if err != nil {
		return GraphNode{}, err
	}
	n := &GraphNode{
		ID:                 s.nextID(),
		Type:               t,
		Label:              spec.Ref.Label,
		Module:             spec.Ref.Module,
		ExternalID:         spec.Ref.ExternalID,
		ParentExperienceID: spec.Ref.ParentExperienceID,
		Position:           spec.Position,
		Config:             NewConfig(t, spec.Ref.Label),
	}
	s.nodes = append(s.nodes, n)
	s.index[n.ID] = n
	return n.Clone(), nil
}

// AddEdge connects source to target
func (s *Store) AddEdge(source, target NodeID) (Edge, error) {
	if _, ok := s.index[source]; !ok {
		return Edge{}, fmt.Errorf("%w: %s", ErrNodeNotFound, source)
	}
	if _, ok := s.index[target]; !ok {
		return Edge{}, fmt.Errorf("%w: %s", ErrNodeNotFound, target)
	}
	e := Edge{ID: EdgeIDFor(source, target), Source: source, Target: target}
	if s.edgeIndex(e.ID) >= 0 {
		return Edge{}, fmt.Errorf("%w: %s", ErrDuplicateEdge, e.ID)
	}
	s.edges = append(s.edges, e)
	return e, nil
}

// RemoveEdge deletes a connection
func (s *Store) RemoveEdge(id EdgeID) error {
	i := s.edgeIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}
	s.edges = append(s.edges[:i], s.edges[i+1:]...)
	return nil
}

// RemoveNode deletes a card, its configuration and every connection
// touching it
func (s *Store) RemoveNode(id NodeID) error {
	n, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if n.IsStart() {
		return ErrStartNodeImmutable
	}
	delete(s.index, id)
	for i, cur := range s.nodes {
		if cur.ID == id {
			s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
			break
		}
	}
	kept := s.edges[:0]
	for _, e := range s.edges {
		if !e.Touches(id) {
			kept = append(kept, e)
		}
	}
	s.edges = kept
	return nil
}

// UpdateNodeConfig replaces a card's configuration, marks it submitted and
// mirrors the label and DTMF digit onto the card
func (s *Store) UpdateNodeConfig(id NodeID, cfg Config) (GraphNode, error) {
	if cfg == nil {
		return GraphNode{}, ErrNilConfig
	}
	n, ok := s.index[id]
	if !ok {
		return GraphNode{}, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if cfg.Type() != n.Type {
		return GraphNode{}, fmt.Errorf("%w: %s is %s, got %s", ErrConfigTypeMismatch, id, n.Type, cfg.Type())
	}
	n.Config = cfg.Clone()
	n.Submitted = true
	if name := cfg.Name(); name != "" {
		n.Label = name
	}
	n.DTMF = cfg.DTMF()
	return n.Clone(), nil
}

// Relabel sets label on every card other than except that was placed from
// the same catalog item, keeping each card's config name in step
func (s *Store) Relabel(module Module, externalID int64, label string, except NodeID) []NodeID {
	if module == ModuleNone {
		return nil
	}
	var changed []NodeID
	for _, n := range s.nodes {
		if n.ID == except || n.Module != module || n.ExternalID != externalID {
			continue
		}
		n.Label = label
		switch c := n.Config.(type) {
		case *ExperienceConfig:
			c.CardName = label
		case *CategoryConfig:
			c.CardName = label
		}
		changed = append(changed, n.ID)
	}
	return changed
}

// Node returns a copy of the card with the given id
func (s *Store) Node(id NodeID) (GraphNode, error) {
	n, ok := s.index[id]
	if !ok {
		return GraphNode{}, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return n.Clone(), nil
}

// Snapshot returns a read-only copy of the current graph
func (s *Store) Snapshot() Snapshot {
	nodes := make([]GraphNode, len(s.nodes))
	for i, n := range s.nodes {
		nodes[i] = n.Clone()
	}
	edges := make([]Edge, len(s.edges))
	copy(edges, s.edges)
	return Snapshot{Nodes: nodes, Edges: edges}
}

func (s *Store) edgeIndex(id EdgeID) int {
	for i, e := range s.edges {
		if e.ID == id {
			return i
		}
	}
	return -1
}
