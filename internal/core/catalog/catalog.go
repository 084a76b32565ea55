// Package catalog holds the read-only reference data cards are placed from
// and resolves card labels against it.
package catalog

import (
	"errors"
	"fmt"

	"github.com/flowgraph/ivrflow/internal/core/flow"
)

var (
	ErrExperienceNotFound = errors.New("experience not found in catalog")
	ErrCategoryNotFound   = errors.New("category not found in catalog")
)

// Category is a sub-menu item offered under an experience
type Category struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Experience is a top-level menu item and its categories
type Experience struct {
	ID         int64      `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	Categories []Category `json:"categories" yaml:"categories"`
}

// Item is an opaque selectable reference (playlist or prompt)
type Item struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Catalog is a snapshot of the reference data for one editing session.
// Values are never modified in place; Rename returns a new Catalog.
type Catalog struct {
	Experiences []Experience `json:"experiences" yaml:"experiences"`
	Playlists   []Item       `json:"playlists,omitempty" yaml:"playlists,omitempty"`
	Prompts     []Item       `json:"prompts,omitempty" yaml:"prompts,omitempty"`
}

// Experience looks up an experience by id
func (c Catalog) Experience(id int64) (Experience, bool) {
	for _, e := range c.Experiences {
		if e.ID == id {
			return e, true
		}
	}
	return Experience{}, false
}

// Category scans every experience for a category with the given id and
// returns it with its owning experience
func (c Catalog) Category(id int64) (Category, Experience, bool) {
	for _, e := range c.Experiences {
		for _, cat := range e.Categories {
			if cat.ID == id {
				return cat, e, true
			}
		}
	}
	return Category{}, Experience{}, false
}

// Ref builds the placement reference for a catalog item
func (c Catalog) Ref(module flow.Module, id int64) (flow.CatalogRef, error) {
	switch module {
	case flow.ModuleExperience:
		e, ok := c.Experience(id)
		if !ok {
			return flow.CatalogRef{}, fmt.Errorf("%w: %d", ErrExperienceNotFound, id)
		}
		return flow.CatalogRef{Module: module, ExternalID: e.ID, Label: e.Name}, nil
	case flow.ModuleCategory:
		cat, parent, ok := c.Category(id)
		if !ok {
			return flow.CatalogRef{}, fmt.Errorf("%w: %d", ErrCategoryNotFound, id)
		}
		return flow.CatalogRef{Module: module, ExternalID: cat.ID, ParentExperienceID: parent.ID, Label: cat.Name}, nil
	default:
		return flow.CatalogRef{}, fmt.Errorf("%w: %q", flow.ErrInvalidModule, string(module))
	}
}

// Rename returns a copy of the catalog with the named item renamed. Unknown
// items leave the copy identical to c.
func (c Catalog) Rename(module flow.Module, id int64, name string) Catalog {
	out := c.clone()
	for i := range out.Experiences {
		e := &out.Experiences[i]
		switch module {
		case flow.ModuleExperience:
			if e.ID == id {
				e.Name = name
			}
		case flow.ModuleCategory:
			for j := range e.Categories {
				if e.Categories[j].ID == id {
					e.Categories[j].Name = name
				}
			}
		}
	}
	return out
}

func (c Catalog) clone() Catalog {
	out := Catalog{
		Experiences: make([]Experience, len(c.Experiences)),
		Playlists:   append([]Item(nil), c.Playlists...),
		Prompts:     append([]Item(nil), c.Prompts...),
	}
	for i, e := range c.Experiences {
		e.Categories = append([]Category(nil), e.Categories...)
		out.Experiences[i] = e
	}
	return out
}
