package catalogfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/ivrflow/internal/core/catalog"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	want := catalog.Catalog{
		Experiences: []catalog.Experience{
			{ID: 5, Name: "Billing", Categories: []catalog.Category{{ID: 9, Name: "Invoices"}}},
		},
		Playlists: []catalog.Item{{ID: 1, Name: "Hold music"}},
	}

	tests := []struct {
		name    string
		file    string
		content string
		wantErr bool
	}{
		{
			name: "yaml",
			file: "catalog.yaml",
			content: `experiences:
  - id: 5
    name: Billing
    categories:
      - id: 9
        name: Invoices
playlists:
  - id: 1
    name: Hold music
`,
		},
		{
			name:    "json",
			file:    "catalog.json",
			content: `{"experiences":[{"id":5,"name":"Billing","categories":[{"id":9,"name":"Invoices"}]}],"playlists":[{"id":1,"name":"Hold music"}]}`,
		},
		{
			name:    "not a catalog",
			file:    "broken.yaml",
			content: "experiences: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(write(t, tt.file, tt.content))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestSource(t *testing.T) {
	path := write(t, "catalog.yaml", "experiences:\n  - id: 5\n    name: Billing\n")
	src := Source{Path: path}

	c, err := src.Catalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Billing", c.Experiences[0].Name)

	require.NoError(t, os.WriteFile(path, []byte("experiences:\n  - id: 5\n    name: Payments\n"), 0o600))
	c, err = src.Catalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Payments", c.Experiences[0].Name)

	_, err = Source{Path: filepath.Join(t.TempDir(), "missing.yaml")}.Catalog(context.Background())
	assert.Error(t, err)
}
