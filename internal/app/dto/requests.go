package dto

import (
	"github.com/flowgraph/ivrflow/internal/core/catalog"
	"github.com/flowgraph/ivrflow/internal/core/flow"
)

// CreateSessionRequest opens an editing session, optionally on a saved flow
type CreateSessionRequest struct {
	FlowID  string           `json:"flow_id,omitempty" validate:"omitempty,uuid"`
	Catalog *catalog.Catalog `json:"catalog,omitempty"`
}

// PlaceNodeRequest places a catalog item on the canvas
type PlaceNodeRequest struct {
	Module     flow.Module   `json:"module" validate:"required,module"`
	ExternalID int64         `json:"externalId" validate:"required,gt=0"`
	Position   flow.Position `json:"position"`
}

// ConnectRequest links two cards
type ConnectRequest struct {
	Source flow.NodeID `json:"source" validate:"required,node_id"`
	Target flow.NodeID `json:"target" validate:"required,node_id"`
}

// SaveConfigRequest carries the dialog field bag of one card
type SaveConfigRequest struct {
	Data map[string]interface{} `json:"data" validate:"required"`
}

// FinalizeRequest names and persists the flow
type FinalizeRequest struct {
	Name string `json:"name" validate:"required,flow_name"`
}

// SessionResponse is the state of an editing session
type SessionResponse struct {
	ID       string          `json:"id"`
	FlowID   string          `json:"flow_id,omitempty"`
	Snapshot SnapshotPayload `json:"snapshot"`
}

// SnapshotPayload is a snapshot with each card's configuration inlined
type SnapshotPayload struct {
	Nodes []NodePayload `json:"nodes"`
	Edges []flow.Edge   `json:"edges"`
}

// NodePayload is a card plus its configuration field bag
type NodePayload struct {
	flow.GraphNode
	Config map[string]interface{} `json:"config"`
}

// NewSnapshotPayload inlines every card's configuration
func NewSnapshotPayload(s flow.Snapshot) (SnapshotPayload, error) {
	out := SnapshotPayload{
		Nodes: make([]NodePayload, 0, len(s.Nodes)),
		Edges: s.Edges,
	}
	if out.Edges == nil {
		out.Edges = []flow.Edge{}
	}
	for _, n := range s.Nodes {
		data, err := NewNodePayload(n)
		if err != nil {
			return SnapshotPayload{}, err
		}
		out.Nodes = append(out.Nodes, data)
	}
	return out, nil
}

// NewNodePayload inlines one card's configuration
func NewNodePayload(n flow.GraphNode) (NodePayload, error) {
	data, err := EncodeConfig(n.Config)
	if err != nil {
		return NodePayload{}, err
	}
	return NodePayload{GraphNode: n, Config: data}, nil
}

// FinalizeResponse reports where a finalized flow was stored
type FinalizeResponse struct {
	FlowID   string        `json:"flow_id"`
	Document flow.Document `json:"document"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Kind    string      `json:"kind,omitempty"`
	Rule    string      `json:"rule,omitempty"`
	NodeID  string      `json:"node_id,omitempty"`
	Fields  interface{} `json:"fields,omitempty"`
}
