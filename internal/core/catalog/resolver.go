package catalog

import "github.com/flowgraph/ivrflow/internal/core/flow"

// ResolveLabel returns the catalog name of the item a card was placed from.
// Cards without a module, and items the catalog no longer lists, keep
// current.
func ResolveLabel(module flow.Module, externalID int64, c Catalog, current string) string {
	if externalID == 0 {
		return current
	}
	switch module {
	case flow.ModuleExperience:
		if e, ok := c.Experience(externalID); ok && e.Name != "" {
			return e.Name
		}
	case flow.ModuleCategory:
		if cat, _, ok := c.Category(externalID); ok && cat.Name != "" {
			return cat.Name
		}
	}
	return current
}

// ResolveNodes refreshes the label of every card and its config name from
// the catalog. It is applied once, when a saved flow is loaded.
func ResolveNodes(nodes []flow.GraphNode, c Catalog) []flow.GraphNode {
	out := make([]flow.GraphNode, len(nodes))
	for i := range nodes {
		n := nodes[i].Clone()
		n.Label = ResolveLabel(n.Module, n.ExternalID, c, n.Label)
		switch cfg := n.Config.(type) {
		case *flow.ExperienceConfig:
			cfg.CardName = ResolveLabel(n.Module, n.ExternalID, c, cfg.CardName)
		case *flow.CategoryConfig:
			cfg.CardName = ResolveLabel(n.Module, n.ExternalID, c, cfg.CardName)
		}
		out[i] = n
	}
	return out
}
