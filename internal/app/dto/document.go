package dto

import (
	"fmt"

	"github.com/flowgraph/ivrflow/internal/core/flow"
)

// EncodeDocument splits a snapshot into the persisted three-collection form
func EncodeDocument(name string, s flow.Snapshot) (flow.Document, error) {
	doc := flow.Document{
		Name:        name,
		Nodes:       make([]flow.NodeRecord, 0, len(s.Nodes)),
		Edges:       make([]flow.Edge, len(s.Edges)),
		NodeConfigs: make([]flow.NodeConfigRecord, 0, len(s.Nodes)),
	}
	copy(doc.Edges, s.Edges)

	for _, n := range s.Nodes {
		doc.Nodes = append(doc.Nodes, flow.NodeRecord{
			ID:                 n.ID,
			Type:               n.Type,
			Label:              n.Label,
			Module:             n.Module,
			ExternalID:         flow.OptionalInt64(n.ExternalID),
			DTMF:               flow.OptionalInt(n.DTMF),
			ParentExperienceID: flow.OptionalInt64(n.ParentExperienceID),
			Position:           n.Position,
		})
		data, err := EncodeConfig(n.Config)
		if err != nil {
			return flow.Document{}, fmt.Errorf("node %s: %w", n.ID, err)
		}
		doc.NodeConfigs = append(doc.NodeConfigs, flow.NodeConfigRecord{
			ID:               n.ID,
			Type:             n.Type,
			Module:           n.Module,
			ExternalID:       flow.OptionalInt64(n.ExternalID),
			ParentExternalID: flow.OptionalInt64(n.ParentExperienceID),
			Submitted:        n.Submitted,
			Data:             data,
		})
	}
	return doc, nil
}

// DecodeDocument joins the persisted collections back into cards. The
// document is expected to have passed validation.ValidateDocument.
func DecodeDocument(doc flow.Document) ([]flow.GraphNode, []flow.Edge, error) {
	configs := make(map[flow.NodeID]flow.NodeConfigRecord, len(doc.NodeConfigs))
	for _, c := range doc.NodeConfigs {
		configs[c.ID] = c
	}

	nodes := make([]flow.GraphNode, 0, len(doc.Nodes))
	for _, rec := range doc.Nodes {
		c, ok := configs[rec.ID]
		if !ok {
			return nil, nil, fmt.Errorf("%w: node %s has no config", ErrInvalidConfig, rec.ID)
		}
		cfg, err := DecodeConfig(rec.Type, c.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("node %s: %w", rec.ID, err)
		}
		nodes = append(nodes, flow.GraphNode{
			ID:                 rec.ID,
			Type:               rec.Type,
			Label:              rec.Label,
			Module:             rec.Module,
			ExternalID:         flow.Deref(rec.ExternalID),
			ParentExperienceID: flow.Deref(rec.ParentExperienceID),
			DTMF:               flow.Deref(rec.DTMF),
			Position:           rec.Position,
			Submitted:          c.Submitted,
			Config:             cfg,
		})
	}
	edges := make([]flow.Edge, len(doc.Edges))
	copy(edges, doc.Edges)
	return nodes, edges, nil
}
