package validation

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"

	"github.com/flowgraph/ivrflow/internal/core/flow"
)

// ValidateDocument rejects persisted flows that could not have been produced
// by the editor: bad shape, or stored cards and connections the editing
// rules would have refused. A draft with unsaved or unlinked cards is still well formed. Every failure
// wraps ErrMalformedDocument.
func ValidateDocument(doc flow.Document) error {
	if !IsValidFlowName(doc.Name) {
		return malformed("name must be between 1 and %d characters", MaxFlowNameLength)
	}

	nodes := make(map[flow.NodeID]flow.NodeRecord, len(doc.Nodes))
	placed := make(map[catalogKey]flow.NodeID, len(doc.Nodes))
	starts := 0
	prev := -1
	for _, n := range doc.Nodes {
		if !nodeIDPattern.MatchString(string(n.ID)) {
			return malformed("bad node id %q", n.ID)
		}
		if _, dup := nodes[n.ID]; dup {
			return malformed("duplicate node id %s", n.ID)
		}
		// New ids continue from the last node, so stored ids must ascend
		seq, err := n.ID.Seq()
		if err != nil {
			return malformed("%v", err)
		}
		if seq <= prev {
			return malformed("node %s is out of order", n.ID)
		}
		prev = seq
		if !n.Type.Valid() {
			return malformed("node %s has unknown type %q", n.ID, n.Type)
		}
		if n.Module != n.Type.Module() {
			return malformed("node %s of type %s has module %q", n.ID, n.Type, n.Module)
		}
		if n.Type == flow.NodeTypeStart {
			starts++
			if n.ID != flow.StartNodeID {
				return malformed("start node must be %s, got %s", flow.StartNodeID, n.ID)
			}
		} else {
			key := catalogKey{module: n.Module, id: flow.Deref(n.ExternalID)}
			if key.id == 0 {
				return malformed("node %s has no external id", n.ID)
			}
			if other, dup := placed[key]; dup {
				return malformed("nodes %s and %s are both %s %d", other, n.ID, n.Module, key.id)
			}
			placed[key] = n.ID
		}
		nodes[n.ID] = n
	}
	if starts != 1 {
		return malformed("expected exactly one start node, got %d", starts)
	}

	if err := validateConfigRecords(doc, nodes); err != nil {
		return err
	}
	if err := validateDigits(doc); err != nil {
		return err
	}
	return validateEdges(doc.Edges, nodes)
}

type catalogKey struct {
	module flow.Module
	id     int64
}

type digitScope struct {
	typ    flow.NodeType
	parent int64
	digit  int
}

// validateDigits applies the sibling digit rule to every saved card
func validateDigits(doc flow.Document) error {
	submitted := make(map[flow.NodeID]bool, len(doc.NodeConfigs))
	for _, c := range doc.NodeConfigs {
		submitted[c.ID] = c.Submitted
	}
	used := make(map[digitScope]flow.NodeID)
	for _, n := range doc.Nodes {
		digit := flow.Deref(n.DTMF)
		if n.Type == flow.NodeTypeStart || digit == 0 || !submitted[n.ID] {
			continue
		}
		scope := digitScope{typ: n.Type, digit: digit}
		if n.Type == flow.NodeTypeCategory {
			scope.parent = flow.Deref(n.ParentExperienceID)
		}
		if other, dup := used[scope]; dup {
			return malformed("nodes %s and %s share DTMF %d", other, n.ID, digit)
		}
		used[scope] = n.ID
	}
	return nil
}

// recordNode is the card a node record describes, without its config
func recordNode(n flow.NodeRecord) flow.GraphNode {
	return flow.GraphNode{
		ID:                 n.ID,
		Type:               n.Type,
		Label:              n.Label,
		Module:             n.Module,
		ExternalID:         flow.Deref(n.ExternalID),
		ParentExperienceID: flow.Deref(n.ParentExperienceID),
		DTMF:               flow.Deref(n.DTMF),
	}
}

func validateConfigRecords(doc flow.Document, nodes map[flow.NodeID]flow.NodeRecord) error {
	if len(doc.NodeConfigs) != len(doc.Nodes) {
		return malformed("%d nodes but %d node configs", len(doc.Nodes), len(doc.NodeConfigs))
	}
	seen := make(map[flow.NodeID]bool, len(doc.NodeConfigs))
	for _, c := range doc.NodeConfigs {
		n, ok := nodes[c.ID]
		if !ok {
			return malformed("config %s has no node", c.ID)
		}
		if seen[c.ID] {
			return malformed("duplicate config for node %s", c.ID)
		}
		seen[c.ID] = true
		if c.Type != n.Type || c.Module != n.Module {
			return malformed("config %s is %s/%q but node is %s/%q", c.ID, c.Type, c.Module, n.Type, n.Module)
		}
		if flow.Deref(c.ExternalID) != flow.Deref(n.ExternalID) {
			return malformed("config %s refers to a different catalog item than its node", c.ID)
		}
	}
	return nil
}

// validateEdges loads the connections into a directed graph that refuses
// cycles, so a document that loops back on itself is rejected here
func validateEdges(edges []flow.Edge, nodes map[flow.NodeID]flow.NodeRecord) error {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	for id := range nodes {
		if err := g.AddVertex(string(id)); err != nil {
			return malformed("add node %s: %v", id, err)
		}
	}

	parents := make(map[flow.NodeID]flow.NodeID, len(edges))
	for _, e := range edges {
		if e.ID != flow.EdgeIDFor(e.Source, e.Target) {
			return malformed("edge %q does not match %s->%s", e.ID, e.Source, e.Target)
		}
		if _, ok := nodes[e.Source]; !ok {
			return malformed("edge %s has unknown source", e.ID)
		}
		if _, ok := nodes[e.Target]; !ok {
			return malformed("edge %s has unknown target", e.ID)
		}
		if p, ok := parents[e.Target]; ok {
			return malformed("node %s has two parents: %s and %s", e.Target, p, e.Source)
		}
		parents[e.Target] = e.Source
		if err := CheckStructuralCompatibility(recordNode(nodes[e.Source]), recordNode(nodes[e.Target])); err != nil {
			return malformed("edge %s: %v", e.ID, err)
		}

		if err := g.AddEdge(string(e.Source), string(e.Target)); err != nil {
			switch {
			case errors.Is(err, graph.ErrEdgeCreatesCycle):
				return malformed("edge %s creates a cycle", e.ID)
			case errors.Is(err, graph.ErrEdgeAlreadyExists):
				return malformed("duplicate edge %s", e.ID)
			default:
				return malformed("add edge %s: %v", e.ID, err)
			}
		}
	}
	if _, ok := parents[flow.StartNodeID]; ok {
		return malformed("start node cannot have a parent")
	}
	return nil
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedDocument, fmt.Sprintf(format, args...))
}
