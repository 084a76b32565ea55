package validation

import (
	"fmt"

	"github.com/flowgraph/ivrflow/internal/core/flow"
)

// CheckSingleParent fails when target already has an incoming connection
func CheckSingleParent(s flow.Snapshot, target flow.NodeID) error {
	if len(s.Incoming(target)) > 0 {
		return newViolation(RuleSingleParent, target, "card is already linked")
	}
	return nil
}

// CheckStructuralCompatibility enforces the shape of the menu tree:
// start -> experience -> category. Categories are leaves.
func CheckStructuralCompatibility(source, target flow.GraphNode) error {
	switch {
	case source.IsStart():
		if target.Module != flow.ModuleExperience {
			return newViolation(RuleStructuralCompatibility, target.ID,
				"main menu can have only experience cards under it")
		}
	case source.Module == flow.ModuleExperience:
		if target.Module != flow.ModuleCategory {
			return newViolation(RuleStructuralCompatibility, target.ID,
				"experience card can have only category cards under it")
		}
		if target.ParentExperienceID != source.ExternalID {
			return newViolation(RuleStructuralCompatibility, target.ID,
				"category %q does not belong to experience %q", target.Label, source.Label)
		}
	case source.Module == flow.ModuleCategory:
		return newViolation(RuleStructuralCompatibility, source.ID,
			"category card %q cannot have cards under it", source.Label)
	default:
		return newViolation(RuleStructuralCompatibility, source.ID,
			"card %s of type %q cannot be a parent", source.ID, source.Type)
	}
	return nil
}

// CheckNoDuplicatePlacement fails when a card for the same catalog item is
// already on the canvas
func CheckNoDuplicatePlacement(s flow.Snapshot, ref flow.CatalogRef) error {
	for _, n := range s.Nodes {
		if n.IsStart() {
			continue
		}
		if n.Module == ref.Module && n.ExternalID == ref.ExternalID {
			return newViolation(RuleNoDuplicatePlacement, n.ID, "card %q is already present", n.Label)
		}
	}
	return nil
}

// CheckScopedDTMF enforces digit uniqueness among experiences, and among the
// categories of one experience. The card being saved is not compared with
// itself.
func CheckScopedDTMF(s flow.Snapshot, node flow.GraphNode, digit int) error {
	if digit == 0 {
		return nil
	}
	for _, other := range s.Nodes {
		if other.ID == node.ID || other.Type != node.Type || other.Config == nil {
			continue
		}
		switch node.Type {
		case flow.NodeTypeExperience:
		case flow.NodeTypeCategory:
			if other.ParentExperienceID != node.ParentExperienceID {
				continue
			}
		default:
			return nil
		}
		if other.Config.DTMF() == digit {
			return newViolation(RuleScopedDTMF, node.ID,
				"DTMF %d already in use by %s card %q", digit, other.Type, other.Label)
		}
	}
	return nil
}

// CheckNonEmpty fails when only the start card is placed
func CheckNonEmpty(s flow.Snapshot) error {
	if len(s.Nodes) <= 1 {
		return newViolation(RuleNonEmpty, "", "please configure a proper IVR flow")
	}
	return nil
}

// CheckFullConnectivity fails unless every card but the start card has a
// parent connection
func CheckFullConnectivity(s flow.Snapshot) error {
	if len(s.Edges) != len(s.Nodes)-1 {
		return newViolation(RuleFullConnectivity, "",
			"please link all cards (%d cards, %d links)", len(s.Nodes), len(s.Edges))
	}
	return nil
}

// CheckCompleteness fails on the first card whose configuration was never
// saved, skipping exempt types
func CheckCompleteness(s flow.Snapshot, exempt map[flow.NodeType]bool) error {
	for _, n := range s.Nodes {
		if exempt[n.Type] || n.Submitted {
			continue
		}
		return newViolation(RuleCompleteness, n.ID, "please save %s card having label %q", n.Type, n.Label)
	}
	return nil
}

// CheckExperienceCoverage fails on the first experience with no category
// linked under it
func CheckExperienceCoverage(s flow.Snapshot) error {
	for _, n := range s.NodesOfType(flow.NodeTypeExperience) {
		if len(s.Outgoing(n.ID)) == 0 {
			return newViolation(RuleExperienceCoverage, n.ID,
				"please link %s card having label %q to at least one category card", n.Type, n.Label)
		}
	}
	return nil
}

func lookup(s flow.Snapshot, id flow.NodeID) (flow.GraphNode, error) {
	n, ok := s.Node(id)
	if !ok {
		return flow.GraphNode{}, fmt.Errorf("%w: %s", flow.ErrNodeNotFound, id)
	}
	return n, nil
}
