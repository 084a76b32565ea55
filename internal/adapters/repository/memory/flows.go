// Package memory provides in-process implementations of the flow repository
// and the draft store, used by tests and single-node deployments
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/flowgraph/ivrflow/internal/app/dto"
	"github.com/flowgraph/ivrflow/internal/core/flow"
	"github.com/flowgraph/ivrflow/internal/infrastructure/metrics"
	"github.com/flowgraph/ivrflow/pkg/serialization"
)

type storedFlow struct {
	name      string
	nodes     int
	document  []byte
	createdAt time.Time
	updatedAt time.Time
}

// FlowRepository keeps finalized flows in a map. Documents are stored
// serialized so callers never share memory with the repository.
// PRINCIPLES:
// - KISS: Simple map-based storage
// - SRP: Only responsible for flow persistence
// - Thread-safe
type FlowRepository struct {
	mu         sync.RWMutex
	flows      map[string]storedFlow
	serializer *serialization.Serializer
}

// NewFlowRepository creates an empty repository. A nil serializer means
// serialization.DefaultSerializer.
func NewFlowRepository(serializer *serialization.Serializer) *FlowRepository {
	if serializer == nil {
		serializer = serialization.DefaultSerializer()
	}
	return &FlowRepository{
		flows:      make(map[string]storedFlow),
		serializer: serializer,
	}
}

// Save inserts or replaces a flow
func (r *FlowRepository) Save(ctx context.Context, rec *dto.FlowRecord) error {
	defer observe("save", time.Now())
	if rec == nil || rec.ID == "" {
		return dto.ErrMissingFlowID
	}
	data, err := r.serializer.Serialize(rec.Document)
	if err != nil {
		return fmt.Errorf("failed to serialize flow document: %w", err)
	}
	metrics.ObserveDocumentSize(r.serializer.Name(), len(data))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.flows[rec.ID] = storedFlow{
		name:      rec.Name,
		nodes:     len(rec.Document.Nodes),
		document:  data,
		createdAt: rec.CreatedAt,
		updatedAt: rec.UpdatedAt,
	}
	return nil
}

// Get returns a flow by id
func (r *FlowRepository) Get(ctx context.Context, id string) (*dto.FlowRecord, error) {
	defer observe("get", time.Now())
	r.mu.RLock()
	stored, ok := r.flows[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", dto.ErrFlowNotFound, id)
	}

	var doc flow.Document
	if err := r.serializer.Deserialize(stored.document, &doc); err != nil {
		return nil, fmt.Errorf("failed to deserialize flow document: %w", err)
	}
	return &dto.FlowRecord{
		ID:        id,
		Name:      stored.name,
		Document:  doc,
		CreatedAt: stored.createdAt,
		UpdatedAt: stored.updatedAt,
	}, nil
}

// List returns every flow, most recently updated first
func (r *FlowRepository) List(ctx context.Context) ([]dto.FlowSummary, error) {
	defer observe("list", time.Now())
	r.mu.RLock()
	out := make([]dto.FlowSummary, 0, len(r.flows))
	for id, f := range r.flows {
		out = append(out, dto.FlowSummary{ID: id, Name: f.name, Nodes: f.nodes, UpdatedAt: f.updatedAt})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Delete removes a flow
func (r *FlowRepository) Delete(ctx context.Context, id string) error {
	defer observe("delete", time.Now())
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.flows[id]; !ok {
		return fmt.Errorf("%w: %s", dto.ErrFlowNotFound, id)
	}
	delete(r.flows, id)
	return nil
}

func observe(method string, start time.Time) {
	metrics.ObserveRepository("memory", method, time.Since(start).Seconds())
}
