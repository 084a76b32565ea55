package flow

// CatalogRef identifies the catalog item a card is placed from
type CatalogRef struct {
	Module             Module `json:"module"`
	ExternalID         int64  `json:"externalId"`
	ParentExperienceID int64  `json:"parentExperienceId,omitempty"`
	Label              string `json:"label"`
}

// GraphNode is one placed card: the canvas node and its configuration
// record in a single entity, so the two cannot drift.
// Zero ExternalID, ParentExperienceID and DTMF mean "not set".
type GraphNode struct {
	ID                 NodeID   `json:"id"`
	Type               NodeType `json:"type"`
	Label              string   `json:"label"`
	Module             Module   `json:"module"`
	ExternalID         int64    `json:"externalId,omitempty"`
	ParentExperienceID int64    `json:"parentExperienceId,omitempty"`
	DTMF               int      `json:"dtmf,omitempty"`
	Position           Position `json:"position"`
	Submitted          bool     `json:"submitted"`
	Config             Config   `json:"-"`
}

// IsStart reports whether n is the start card
func (n *GraphNode) IsStart() bool {
	return n.Type == NodeTypeStart
}

// Ref returns the catalog reference of a placed card
func (n *GraphNode) Ref() CatalogRef {
	return CatalogRef{
		Module:             n.Module,
		ExternalID:         n.ExternalID,
		ParentExperienceID: n.ParentExperienceID,
		Label:              n.Label,
	}
}

// Clone returns a copy that shares nothing with n
func (n *GraphNode) Clone() GraphNode {
	out := *n
	if n.Config != nil {
		out.Config = n.Config.Clone()
	}
	return out
}

func newStartNode() *GraphNode {
	return &GraphNode{
		ID:     StartNodeID,
		Type:   NodeTypeStart,
		Label:  "Start",
		Module: ModuleNone,
		Config: NewConfig(NodeTypeStart, ""),
	}
}
