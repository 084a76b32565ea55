// Package catalogfile reads the session catalog from a YAML or JSON file
package catalogfile

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/flowgraph/ivrflow/internal/core/catalog"
)

// Load parses a catalog file. YAML is a superset of JSON so both formats
// are accepted.
func Load(path string) (catalog.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	var c catalog.Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return catalog.Catalog{}, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return c, nil
}

// Source serves the catalog in a file, re-reading it for every new session
// so edits apply without a restart
type Source struct {
	Path string
}

// Catalog loads the file
func (s Source) Catalog(ctx context.Context) (catalog.Catalog, error) {
	return Load(s.Path)
}
