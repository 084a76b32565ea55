package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/ivrflow/internal/core/flow"
)

type fixture struct {
	t     *testing.T
	store *flow.Store
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, store: flow.NewStore()}
}

func (f *fixture) experience(id int64, label string) flow.GraphNode {
	f.t.Helper()
	n, err := f.store.AddNode(flow.NodeSpec{Ref: flow.CatalogRef{Module: flow.ModuleExperience, ExternalID: id, Label: label}})
	require.NoError(f.t, err)
	return n
}

func (f *fixture) category(id, parent int64, label string) flow.GraphNode {
	f.t.Helper()
	n, err := f.store.AddNode(flow.NodeSpec{Ref: flow.CatalogRef{
		Module: flow.ModuleCategory, ExternalID: id, ParentExperienceID: parent, Label: label,
	}})
	require.NoError(f.t, err)
	return n
}

func (f *fixture) link(source, target flow.NodeID) {
	f.t.Helper()
	_, err := f.store.AddEdge(source, target)
	require.NoError(f.t, err)
}

func (f *fixture) save(id flow.NodeID, cfg flow.Config) {
	f.t.Helper()
	_, err := f.store.UpdateNodeConfig(id, cfg)
	require.NoError(f.t, err)
}

func experienceConfig(name string, digit int) *flow.ExperienceConfig {
	return &flow.ExperienceConfig{CardName: name, DTMFDigit: digit, Prompt: 1}
}

func categoryConfig(name string, digit int) *flow.CategoryConfig {
	return &flow.CategoryConfig{
		ExperienceConfig: flow.ExperienceConfig{CardName: name, DTMFDigit: digit, Prompt: 1},
		Audio:            flow.AudioSource{Source: flow.AudioSourcePlaylist, Playlist: 2},
	}
}

func requireViolation(t *testing.T, err error, rule Rule) *Violation {
	t.Helper()
	v, ok := AsViolation(err)
	require.True(t, ok, "expected %s violation, got %v", rule, err)
	assert.Equal(t, rule, v.Rule)
	assert.ErrorIs(t, err, kindSentinel(rule.Kind()))
	return v
}

func TestEngine_CheckConnect(t *testing.T) {
	f := newFixture(t)
	billing := f.experience(5, "Billing")
	support := f.experience(6, "Support")
	invoices := f.category(9, 5, "Invoices")
	outages := f.category(10, 6, "Outages")
	e := NewEngine()

	t.Run("start to experience", func(t *testing.T) {
		assert.NoError(t, e.CheckConnect(f.store.Snapshot(), flow.StartNodeID, billing.ID))
	})

	t.Run("experience to own category", func(t *testing.T) {
		assert.NoError(t, e.CheckConnect(f.store.Snapshot(), billing.ID, invoices.ID))
	})

	t.Run("start to category", func(t *testing.T) {
		err := e.CheckConnect(f.store.Snapshot(), flow.StartNodeID, invoices.ID)
		assert.ErrorIs(t, err, ErrStructural)
		requireViolation(t, err, RuleStructuralCompatibility)
	})

	t.Run("experience to experience", func(t *testing.T) {
		err := e.CheckConnect(f.store.Snapshot(), billing.ID, support.ID)
		requireViolation(t, err, RuleStructuralCompatibility)
	})

	t.Run("experience to foreign category", func(t *testing.T) {
		err := e.CheckConnect(f.store.Snapshot(), billing.ID, outages.ID)
		v := requireViolation(t, err, RuleStructuralCompatibility)
		assert.Contains(t, v.Message, "does not belong")
	})

	t.Run("category as source", func(t *testing.T) {
		err := e.CheckConnect(f.store.Snapshot(), invoices.ID, outages.ID)
		v := requireViolation(t, err, RuleStructuralCompatibility)
		assert.Equal(t, invoices.ID, v.NodeID)
	})

	t.Run("self loop", func(t *testing.T) {
		err := e.CheckConnect(f.store.Snapshot(), billing.ID, billing.ID)
		requireViolation(t, err, RuleStructuralCompatibility)
	})

	t.Run("anything into start", func(t *testing.T) {
		err := e.CheckConnect(f.store.Snapshot(), billing.ID, flow.StartNodeID)
		assert.ErrorIs(t, err, ErrStructural)
	})

	t.Run("second parent", func(t *testing.T) {
		f.link(flow.StartNodeID, billing.ID)
		err := e.CheckConnect(f.store.Snapshot(), flow.StartNodeID, billing.ID)
		v := requireViolation(t, err, RuleSingleParent)
		assert.Equal(t, billing.ID, v.NodeID)
	})

	t.Run("unknown node", func(t *testing.T) {
		err := e.CheckConnect(f.store.Snapshot(), flow.StartNodeID, "node_99")
		assert.ErrorIs(t, err, flow.ErrNodeNotFound)
		_, ok := AsViolation(err)
		assert.False(t, ok)
	})
}

func TestEngine_CheckPlace(t *testing.T) {
	f := newFixture(t)
	f.experience(5, "Billing")
	f.category(9, 5, "Invoices")
	e := NewEngine()
	s := f.store.Snapshot()

	tests := []struct {
		name     string
		ref      flow.CatalogRef
		wantRule Rule
		wantErr  error
	}{
		{name: "new experience", ref: flow.CatalogRef{Module: flow.ModuleExperience, ExternalID: 6}},
		{name: "same experience", ref: flow.CatalogRef{Module: flow.ModuleExperience, ExternalID: 5}, wantRule: RuleNoDuplicatePlacement},
		{name: "category sharing the experience id", ref: flow.CatalogRef{Module: flow.ModuleCategory, ExternalID: 5, ParentExperienceID: 5}},
		{name: "same category", ref: flow.CatalogRef{Module: flow.ModuleCategory, ExternalID: 9, ParentExperienceID: 5}, wantRule: RuleNoDuplicatePlacement},
		{name: "no module", ref: flow.CatalogRef{}, wantErr: flow.ErrInvalidModule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.CheckPlace(s, tt.ref)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantRule != "":
				assert.ErrorIs(t, err, ErrDuplicate)
				requireViolation(t, err, tt.wantRule)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestEngine_CheckSave(t *testing.T) {
	f := newFixture(t)
	billing := f.experience(5, "Billing")
	support := f.experience(6, "Support")
	invoices := f.category(9, 5, "Invoices")
	refunds := f.category(11, 5, "Refunds")
	outages := f.category(10, 6, "Outages")
	f.save(billing.ID, experienceConfig("Billing", 1))
	f.save(invoices.ID, categoryConfig("Invoices", 3))
	e := NewEngine()

	tests := []struct {
		name     string
		id       flow.NodeID
		cfg      flow.Config
		wantRule Rule
		wantErr  error
	}{
		{name: "experience with free digit", id: support.ID, cfg: experienceConfig("Support", 2)},
		{name: "experience with taken digit", id: support.ID, cfg: experienceConfig("Support", 1), wantRule: RuleScopedDTMF},
		{name: "resave keeps own digit", id: billing.ID, cfg: experienceConfig("Billing desk", 1)},
		{name: "sibling category with taken digit", id: refunds.ID, cfg: categoryConfig("Refunds", 3), wantRule: RuleScopedDTMF},
		{name: "category under other experience reuses digit", id: outages.ID, cfg: categoryConfig("Outages", 3)},
		{name: "category may reuse an experience digit", id: refunds.ID, cfg: categoryConfig("Refunds", 1)},
		{name: "bad shape", id: support.ID, cfg: experienceConfig("", 2), wantRule: RuleConfigShape},
		{name: "start config", id: flow.StartNodeID, cfg: validStart()},
		{name: "wrong variant", id: support.ID, cfg: categoryConfig("Support", 2), wantErr: flow.ErrConfigTypeMismatch},
		{name: "unknown node", id: "node_42", cfg: experienceConfig("Support", 2), wantErr: flow.ErrNodeNotFound},
		{name: "nil config", id: support.ID, wantErr: flow.ErrNilConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.CheckSave(f.store.Snapshot(), tt.id, tt.cfg)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantRule != "":
				v := requireViolation(t, err, tt.wantRule)
				assert.Equal(t, tt.id, v.NodeID)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestEngine_CheckFinalize(t *testing.T) {
	e := NewEngine()

	t.Run("only start", func(t *testing.T) {
		err := e.CheckFinalize(newFixture(t).store.Snapshot())
		assert.ErrorIs(t, err, ErrCompleteness)
		requireViolation(t, err, RuleNonEmpty)
	})

	t.Run("complete tree", func(t *testing.T) {
		f := newFixture(t)
		exp := f.experience(5, "Billing")
		cat := f.category(9, 5, "Invoices")
		f.link(flow.StartNodeID, exp.ID)
		f.link(exp.ID, cat.ID)
		f.save(exp.ID, experienceConfig("Billing", 1))
		f.save(cat.ID, categoryConfig("Invoices", 1))

		assert.NoError(t, e.CheckFinalize(f.store.Snapshot()))
	})

	t.Run("unlinked card", func(t *testing.T) {
		f := newFixture(t)
		exp := f.experience(5, "Billing")
		f.category(9, 5, "Invoices")
		f.link(flow.StartNodeID, exp.ID)

		err := e.CheckFinalize(f.store.Snapshot())
		requireViolation(t, err, RuleFullConnectivity)
	})

	t.Run("unsaved card", func(t *testing.T) {
		f := newFixture(t)
		exp := f.experience(5, "Billing")
		cat := f.category(9, 5, "Invoices")
		f.link(flow.StartNodeID, exp.ID)
		f.link(exp.ID, cat.ID)
		f.save(exp.ID, experienceConfig("Billing", 1))

		err := e.CheckFinalize(f.store.Snapshot())
		v := requireViolation(t, err, RuleCompleteness)
		assert.Equal(t, cat.ID, v.NodeID)
		assert.Contains(t, v.Message, `"Invoices"`)
	})

	t.Run("experience without categories", func(t *testing.T) {
		f := newFixture(t)
		billing := f.experience(5, "Billing")
		support := f.experience(6, "Support")
		cat := f.category(9, 5, "Invoices")
		f.link(flow.StartNodeID, billing.ID)
		f.link(flow.StartNodeID, support.ID)
		f.link(billing.ID, cat.ID)
		f.save(billing.ID, experienceConfig("Billing", 1))
		f.save(support.ID, experienceConfig("Support", 2))
		f.save(cat.ID, categoryConfig("Invoices", 1))

		err := e.CheckFinalize(f.store.Snapshot())
		v := requireViolation(t, err, RuleExperienceCoverage)
		assert.Equal(t, support.ID, v.NodeID)
	})

	t.Run("connectivity is checked before completeness", func(t *testing.T) {
		f := newFixture(t)
		f.experience(5, "Billing")

		err := e.CheckFinalize(f.store.Snapshot())
		requireViolation(t, err, RuleFullConnectivity)
	})

	t.Run("start can be made mandatory", func(t *testing.T) {
		f := newFixture(t)
		exp := f.experience(5, "Billing")
		cat := f.category(9, 5, "Invoices")
		f.link(flow.StartNodeID, exp.ID)
		f.link(exp.ID, cat.ID)
		f.save(exp.ID, experienceConfig("Billing", 1))
		f.save(cat.ID, categoryConfig("Invoices", 1))

		strict := NewEngine(WithCompletenessExempt())
		v := requireViolation(t, strict.CheckFinalize(f.store.Snapshot()), RuleCompleteness)
		assert.Equal(t, flow.StartNodeID, v.NodeID)
	})
}
