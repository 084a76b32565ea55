package catalog

import (
	"testing"

	"github.com/flowgraph/ivrflow/internal/core/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() Catalog {
	return Catalog{
		Experiences: []Experience{
			{ID: 5, Name: "Sales", Categories: []Category{{ID: 9, Name: "Offers"}, {ID: 10, Name: "Plans"}}},
			{ID: 6, Name: "Billing", Categories: []Category{{ID: 11, Name: "Invoices"}}},
		},
		Prompts: []Item{{ID: 1, Name: "welcome"}},
	}
}

func TestResolveLabel(t *testing.T) {
	c := testCatalog()

	tests := []struct {
		name       string
		module     flow.Module
		externalID int64
		current    string
		want       string
	}{
		{name: "experience by id", module: flow.ModuleExperience, externalID: 6, current: "old", want: "Billing"},
		{name: "category in second experience", module: flow.ModuleCategory, externalID: 11, current: "old", want: "Invoices"},
		{name: "unknown experience keeps label", module: flow.ModuleExperience, externalID: 99, current: "old", want: "old"},
		{name: "unknown category keeps label", module: flow.ModuleCategory, externalID: 99, current: "old", want: "old"},
		{name: "no module keeps label", module: flow.ModuleNone, externalID: 5, current: "Start", want: "Start"},
		{name: "no external id keeps label", module: flow.ModuleExperience, externalID: 0, current: "old", want: "old"},
		{name: "category id is not an experience id", module: flow.ModuleExperience, externalID: 9, current: "old", want: "old"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveLabel(tt.module, tt.externalID, c, tt.current))
		})
	}
}

func TestResolveNodes(t *testing.T) {
	c := testCatalog()
	nodes := []flow.GraphNode{
		{ID: flow.StartNodeID, Type: flow.NodeTypeStart, Label: "Start", Config: &flow.StartConfig{}},
		{ID: "node_1", Type: flow.NodeTypeExperience, Module: flow.ModuleExperience, ExternalID: 5, Label: "stale",
			Config: &flow.ExperienceConfig{CardName: "stale", DTMFDigit: 1}},
		{ID: "node_2", Type: flow.NodeTypeCategory, Module: flow.ModuleCategory, ExternalID: 10, ParentExperienceID: 5, Label: "stale",
			Config: &flow.CategoryConfig{ExperienceConfig: flow.ExperienceConfig{CardName: "stale"}}},
	}

	out := ResolveNodes(nodes, c)

	assert.Equal(t, "Start", out[0].Label)
	assert.Equal(t, "Sales", out[1].Label)
	assert.Equal(t, "Sales", out[1].Config.Name())
	assert.Equal(t, 1, out[1].Config.DTMF())
	assert.Equal(t, "Plans", out[2].Label)
	assert.Equal(t, "Plans", out[2].Config.Name())

	// input untouched
	assert.Equal(t, "stale", nodes[1].Label)
	assert.Equal(t, "stale", nodes[1].Config.Name())
}

func TestCatalog_Ref(t *testing.T) {
	c := testCatalog()

	ref, err := c.Ref(flow.ModuleExperience, 5)
	require.NoError(t, err)
	assert.Equal(t, flow.CatalogRef{Module: flow.ModuleExperience, ExternalID: 5, Label: "Sales"}, ref)

	ref, err = c.Ref(flow.ModuleCategory, 11)
	require.NoError(t, err)
	assert.Equal(t, flow.CatalogRef{Module: flow.ModuleCategory, ExternalID: 11, ParentExperienceID: 6, Label: "Invoices"}, ref)

	_, err = c.Ref(flow.ModuleExperience, 42)
	assert.ErrorIs(t, err, ErrExperienceNotFound)
	_, err = c.Ref(flow.ModuleCategory, 42)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
	_, err = c.Ref(flow.ModuleNone, 5)
	assert.ErrorIs(t, err, flow.ErrInvalidModule)
}

func TestCatalog_Rename(t *testing.T) {
	c := testCatalog()

	renamed := c.Rename(flow.ModuleCategory, 9, "Deals")
	cat, _, ok := renamed.Category(9)
	require.True(t, ok)
	assert.Equal(t, "Deals", cat.Name)

	// the original snapshot is read-only
	orig, _, _ := c.Category(9)
	assert.Equal(t, "Offers", orig.Name)

	renamed = renamed.Rename(flow.ModuleExperience, 6, "Payments")
	e, ok := renamed.Experience(6)
	require.True(t, ok)
	assert.Equal(t, "Payments", e.Name)
	e, _ = c.Experience(6)
	assert.Equal(t, "Billing", e.Name)

	assert.Equal(t, c, c.Rename(flow.ModuleExperience, 404, "nobody"))
}
