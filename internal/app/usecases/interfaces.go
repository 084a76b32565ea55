package usecases

import (
	"context"
	"time"

	"github.com/flowgraph/ivrflow/internal/app/dto"
	"github.com/flowgraph/ivrflow/internal/core/catalog"
	"github.com/flowgraph/ivrflow/internal/core/flow"
)

// FlowRepository stores finalized flows
// PRINCIPLES:
// - SRP: Only responsible for flow persistence
// - DIP: Used for dependency injection
type FlowRepository interface {
	// Save inserts or replaces the record with rec.ID
	Save(ctx context.Context, rec *dto.FlowRecord) error

	// Get returns dto.ErrFlowNotFound for unknown ids
	Get(ctx context.Context, id string) (*dto.FlowRecord, error)

	// List returns every stored flow, most recently updated first
	List(ctx context.Context) ([]dto.FlowSummary, error)

	// Delete returns dto.ErrFlowNotFound for unknown ids
	Delete(ctx context.Context, id string) error
}

// DraftStore keeps the in-progress document of an editing session so an
// interrupted session can be picked up again
type DraftStore interface {
	SaveDraft(ctx context.Context, sessionID string, doc flow.Document, ttl time.Duration) error

	// LoadDraft returns dto.ErrDraftNotFound when no draft is stored
	LoadDraft(ctx context.Context, sessionID string) (flow.Document, error)

	DeleteDraft(ctx context.Context, sessionID string) error
}

// CatalogSource supplies the reference data a session starts from
type CatalogSource interface {
	Catalog(ctx context.Context) (catalog.Catalog, error)
}

// StaticCatalog serves a fixed catalog
type StaticCatalog catalog.Catalog

// Catalog returns the fixed catalog
func (s StaticCatalog) Catalog(context.Context) (catalog.Catalog, error) {
	return catalog.Catalog(s), nil
}
