// Package flow provides the in-memory IVR flow graph: placed cards, the
// connections between them and the per-card configuration, kept as a single
// entity per card. It has no external dependencies.
package flow

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NodeType is the closed set of card kinds
type NodeType string

const (
	// NodeTypeStart is the fixed root card (the welcome prompt)
	NodeTypeStart NodeType = "start"
	// NodeTypeExperience is a top-level menu item
	NodeTypeExperience NodeType = "experience"
	// NodeTypeCategory is a sub-menu item nested under one experience
	NodeTypeCategory NodeType = "category"
)

// Valid reports whether t is one of the known node types
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeStart, NodeTypeExperience, NodeTypeCategory:
		return true
	}
	return false
}

// Module returns the catalog module a node type is placed from
func (t NodeType) Module() Module {
	switch t {
	case NodeTypeExperience:
		return ModuleExperience
	case NodeTypeCategory:
		return ModuleCategory
	default:
		return ModuleNone
	}
}

// Module names the catalog collection a card was placed from. The zero value
// means "no module" and is only carried by the start node.
type Module string

const (
	ModuleNone       Module = ""
	ModuleExperience Module = "Experience"
	ModuleCategory   Module = "Category"
)

// NodeType derives the card type from the module. ModuleNone is not
// placeable and yields ErrInvalidModule.
func (m Module) NodeType() (NodeType, error) {
	switch m {
	case ModuleExperience:
		return NodeTypeExperience, nil
	case ModuleCategory:
		return NodeTypeCategory, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidModule, string(m))
	}
}

// MarshalJSON encodes ModuleNone as null
func (m Module) MarshalJSON() ([]byte, error) {
	if m == ModuleNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(m))
}

// UnmarshalJSON accepts null for ModuleNone
func (m *Module) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = ModuleNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*m = Module(s)
	return nil
}

// NodeID identifies a card. Ids have the form node_<n>.
type NodeID string

// StartNodeID is the fixed identity of the start card
const StartNodeID NodeID = "node_0"

const nodeIDPrefix = "node_"

// Seq returns the numeric suffix of the id
func (id NodeID) Seq() (int, error) {
	s, ok := strings.CutPrefix(string(id), nodeIDPrefix)
	if !ok {
		return 0, fmt.Errorf("malformed node id %q", string(id))
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("malformed node id %q", string(id))
	}
	return n, nil
}

// NodeIDFromSeq builds the id for a sequence number
func NodeIDFromSeq(n int) NodeID {
	return NodeID(nodeIDPrefix + strconv.Itoa(n))
}

// Position is the canvas coordinate of a card. The core stores it opaquely.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
