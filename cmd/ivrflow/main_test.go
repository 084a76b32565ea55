package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/ivrflow/internal/app/usecases"
	"github.com/flowgraph/ivrflow/internal/core/catalog"
	"github.com/flowgraph/ivrflow/internal/core/flow"
	"github.com/flowgraph/ivrflow/pkg/validation"
)

const catalogYAML = `experiences:
  - id: 5
    name: Billing
    categories:
      - id: 9
        name: Invoices
`

func savedFlow(t *testing.T) flow.Document {
	t.Helper()
	c := catalog.Catalog{Experiences: []catalog.Experience{
		{ID: 5, Name: "Billing", Categories: []catalog.Category{{ID: 9, Name: "Invoices"}}},
	}}
	fc := usecases.NewFlowController(c)
	exp, err := fc.PlaceCatalogItem(flow.ModuleExperience, 5, flow.Position{})
	require.NoError(t, err)
	cat, err := fc.PlaceCatalogItem(flow.ModuleCategory, 9, flow.Position{})
	require.NoError(t, err)
	_, err = fc.Connect(flow.StartNodeID, exp.ID)
	require.NoError(t, err)
	_, err = fc.Connect(exp.ID, cat.ID)
	require.NoError(t, err)
	_, err = fc.SaveNodeConfig(exp.ID, map[string]interface{}{"name": "Billing", "dtmf_digit": 1, "prompt": 2})
	require.NoError(t, err)
	_, err = fc.SaveNodeConfig(cat.ID, map[string]interface{}{
		"name": "Invoices", "dtmf_digit": 1, "prompt": 2,
		"audio": map[string]interface{}{"source": "playlist", "playlist": 1},
	})
	require.NoError(t, err)
	doc, err := fc.Finalize("Support line")
	require.NoError(t, err)
	return doc
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func writeDocument(t *testing.T, doc flow.Document) string {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return writeFile(t, "flow.json", data)
}

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute("version")
	require.NoError(t, err)
	assert.Contains(t, out, "ivrflow dev")
}

func TestValidateCommand(t *testing.T) {
	catalogPath := writeFile(t, "catalog.yaml", []byte(catalogYAML))

	t.Run("valid flow", func(t *testing.T) {
		out, err := execute("validate", writeDocument(t, savedFlow(t)), "--catalog", catalogPath)
		require.NoError(t, err)

		var doc flow.Document
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.Equal(t, "Support line", doc.Name)
		assert.Len(t, doc.Nodes, 3)
	})

	t.Run("catalog as json", func(t *testing.T) {
		jsonCatalog := writeFile(t, "catalog.json", []byte(`{"experiences":[{"id":5,"name":"Billing","categories":[{"id":9,"name":"Invoices"}]}]}`))
		_, err := execute("validate", writeDocument(t, savedFlow(t)), "-c", jsonCatalog)
		assert.NoError(t, err)
	})

	t.Run("incomplete flow", func(t *testing.T) {
		doc := savedFlow(t)
		doc.NodeConfigs[2].Submitted = false
		_, err := execute("validate", writeDocument(t, doc), "--catalog", catalogPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "please save")
	})

	t.Run("malformed document", func(t *testing.T) {
		doc := savedFlow(t)
		doc.Edges = append(doc.Edges, flow.Edge{ID: "node_2->node_0", Source: "node_2", Target: "node_0"})
		_, err := execute("validate", writeDocument(t, doc), "--catalog", catalogPath)
		assert.ErrorIs(t, err, validation.ErrMalformedDocument)
	})

	t.Run("start wired to a category", func(t *testing.T) {
		doc := savedFlow(t)
		doc.Edges = []flow.Edge{{ID: "node_0->node_2", Source: "node_0", Target: "node_2"}}
		_, err := execute("validate", writeDocument(t, doc), "--catalog", catalogPath)
		assert.ErrorIs(t, err, validation.ErrMalformedDocument)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := execute("validate", writeFile(t, "flow.json", []byte("{")))
		assert.ErrorIs(t, err, validation.ErrMalformedDocument)
	})

	t.Run("missing argument", func(t *testing.T) {
		_, err := execute("validate")
		assert.Error(t, err)
	})
}
