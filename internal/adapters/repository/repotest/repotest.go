// Package repotest holds the behaviour every flow repository and draft
// store must share, run against each backend from its own tests
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/ivrflow/internal/app/dto"
	"github.com/flowgraph/ivrflow/internal/app/usecases"
	"github.com/flowgraph/ivrflow/internal/core/flow"
)

// Document returns a small finalized flow
func Document(name string) flow.Document {
	five, nine := int64(5), int64(9)
	one := 1
	return flow.Document{
		Name: name,
		Nodes: []flow.NodeRecord{
			{ID: "node_0", Type: flow.NodeTypeStart, Label: "Start"},
			{ID: "node_1", Type: flow.NodeTypeExperience, Label: "Billing", Module: flow.ModuleExperience, ExternalID: &five, DTMF: &one},
			{ID: "node_2", Type: flow.NodeTypeCategory, Label: "Invoices", Module: flow.ModuleCategory, ExternalID: &nine, DTMF: &one, ParentExperienceID: &five},
		},
		Edges: []flow.Edge{
			{ID: "node_0->node_1", Source: "node_0", Target: "node_1"},
			{ID: "node_1->node_2", Source: "node_1", Target: "node_2"},
		},
		NodeConfigs: []flow.NodeConfigRecord{
			{ID: "node_0", Type: flow.NodeTypeStart, Data: map[string]interface{}{"general_timeout": "3"}},
			{ID: "node_1", Type: flow.NodeTypeExperience, Module: flow.ModuleExperience, ExternalID: &five, Submitted: true, Data: map[string]interface{}{"name": "Billing"}},
			{ID: "node_2", Type: flow.NodeTypeCategory, Module: flow.ModuleCategory, ExternalID: &nine, ParentExternalID: &five, Submitted: true, Data: map[string]interface{}{"name": "Invoices"}},
		},
	}
}

// Record wraps Document in a record with a fresh id
func Record(name string, updated time.Time) *dto.FlowRecord {
	return &dto.FlowRecord{
		ID:        uuid.NewString(),
		Name:      name,
		Document:  Document(name),
		CreatedAt: updated,
		UpdatedAt: updated,
	}
}

// RunFlowRepository exercises Save, Get, List and Delete. repo must start
// empty.
func RunFlowRepository(t *testing.T, repo usecases.FlowRepository) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	older := Record("Older", base)
	newer := Record("Newer", base.Add(time.Hour))

	t.Run("save and get", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, older))
		require.NoError(t, repo.Save(ctx, newer))

		got, err := repo.Get(ctx, older.ID)
		require.NoError(t, err)
		assert.Equal(t, older.ID, got.ID)
		assert.Equal(t, "Older", got.Name)
		assert.True(t, older.UpdatedAt.Equal(got.UpdatedAt))
		assert.Equal(t, older.Document.Name, got.Document.Name)
		assert.Equal(t, older.Document.Edges, got.Document.Edges)
		assert.Equal(t, older.Document.Nodes, got.Document.Nodes)
		require.Len(t, got.Document.NodeConfigs, 3)
		assert.Equal(t, "Invoices", got.Document.NodeConfigs[2].Data["name"])
	})

	t.Run("save replaces", func(t *testing.T) {
		renamed := *older
		renamed.Name = "Older renamed"
		renamed.UpdatedAt = base.Add(2 * time.Hour)
		require.NoError(t, repo.Save(ctx, &renamed))

		got, err := repo.Get(ctx, older.ID)
		require.NoError(t, err)
		assert.Equal(t, "Older renamed", got.Name)
	})

	t.Run("list newest first", func(t *testing.T) {
		list, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, older.ID, list[0].ID)
		assert.Equal(t, newer.ID, list[1].ID)
		assert.Equal(t, 3, list[1].Nodes)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, newer.ID))
		_, err := repo.Get(ctx, newer.ID)
		assert.ErrorIs(t, err, dto.ErrFlowNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, newer.ID), dto.ErrFlowNotFound)
	})

	t.Run("missing id", func(t *testing.T) {
		assert.ErrorIs(t, repo.Save(ctx, &dto.FlowRecord{}), dto.ErrMissingFlowID)
		_, err := repo.Get(ctx, uuid.NewString())
		assert.ErrorIs(t, err, dto.ErrFlowNotFound)
	})
}

// RunDraftStore exercises SaveDraft, LoadDraft and DeleteDraft
func RunDraftStore(t *testing.T, store usecases.DraftStore) {
	ctx := context.Background()
	id := uuid.NewString()

	_, err := store.LoadDraft(ctx, id)
	assert.ErrorIs(t, err, dto.ErrDraftNotFound)

	require.NoError(t, store.SaveDraft(ctx, id, Document("Draft"), time.Minute))
	got, err := store.LoadDraft(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Draft", got.Name)
	assert.Equal(t, Document("Draft").Edges, got.Edges)

	require.NoError(t, store.DeleteDraft(ctx, id))
	_, err = store.LoadDraft(ctx, id)
	assert.ErrorIs(t, err, dto.ErrDraftNotFound)
	assert.NoError(t, store.DeleteDraft(ctx, id))
}
