package usecases

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/flowgraph/ivrflow/internal/app/dto"
	"github.com/flowgraph/ivrflow/internal/core/catalog"
	"github.com/flowgraph/ivrflow/internal/core/flow"
	"github.com/flowgraph/ivrflow/internal/infrastructure/metrics"
	"github.com/flowgraph/ivrflow/pkg/validation"
)

// FlowController is the entry point for editing one IVR flow. Every
// mutation is checked by the validation engine against a snapshot before
// the store is touched, so a rejected edit leaves the flow unchanged.
// PRINCIPLES:
// - SRP: Composes store, engine and catalog; owns no rules itself
// - Not safe for concurrent use; callers serialize access per flow
type FlowController struct {
	store   *flow.Store
	engine  *validation.Engine
	catalog catalog.Catalog
	logger  *slog.Logger
}

// ControllerOption configures a FlowController
type ControllerOption func(*FlowController)

// WithLogger sets the logger for accepted and rejected edits
func WithLogger(l *slog.Logger) ControllerOption {
	return func(fc *FlowController) {
		if l != nil {
			fc.logger = l
		}
	}
}

// WithEngine replaces the default validation engine
func WithEngine(e *validation.Engine) ControllerOption {
	return func(fc *FlowController) {
		if e != nil {
			fc.engine = e
		}
	}
}

// NewFlowController starts an empty flow holding only the start card
func NewFlowController(c catalog.Catalog, opts ...ControllerOption) *FlowController {
	return newFlowController(flow.NewStore(), c, opts)
}

// HydrateFlowController loads a saved document. The document is validated
// first and rejected if malformed; card labels and config names are then
// refreshed from the catalog.
func HydrateFlowController(doc flow.Document, c catalog.Catalog, opts ...ControllerOption) (*FlowController, error) {
	if err := validation.ValidateDocument(doc); err != nil {
		return nil, err
	}
	nodes, edges, err := dto.DecodeDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", validation.ErrMalformedDocument, err)
	}
	store, err := flow.Restore(catalog.ResolveNodes(nodes, c), edges)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", validation.ErrMalformedDocument, err)
	}
	return newFlowController(store, c, opts), nil
}

func newFlowController(store *flow.Store, c catalog.Catalog, opts []ControllerOption) *FlowController {
	fc := &FlowController{
		store:   store,
		engine:  validation.NewEngine(),
		catalog: c,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(fc)
	}
	return fc
}

// Connect links source to target as parent and child
func (fc *FlowController) Connect(source, target flow.NodeID) (flow.Edge, error) {
	if err := fc.engine.CheckConnect(fc.store.Snapshot(), source, target); err != nil {
		return flow.Edge{}, fc.observe("connect", err)
	}
	e, err := fc.store.AddEdge(source, target)
	if err != nil {
		return flow.Edge{}, fc.observe("connect", err)
	}
	fc.logger.Debug("cards linked", "edge", e.ID)
	return e, fc.observe("connect", nil)
}

// PlaceNode adds a card for ref. The card type follows ref.Module.
func (fc *FlowController) PlaceNode(ref flow.CatalogRef, pos flow.Position) (flow.GraphNode, error) {
	if err := fc.engine.CheckPlace(fc.store.Snapshot(), ref); err != nil {
		return flow.GraphNode{}, fc.observe("place", err)
	}
	n, err := fc.store.AddNode(flow.NodeSpec{Ref: ref, Position: pos})
	if err != nil {
		return flow.GraphNode{}, fc.observe("place", err)
	}
	fc.logger.Debug("card placed", "node", n.ID, "module", n.Module, "external_id", n.ExternalID)
	return n, fc.observe("place", nil)
}

// PlaceCatalogItem places the catalog item with the given id, taking its
// label and parent experience from the session catalog
func (fc *FlowController) PlaceCatalogItem(module flow.Module, externalID int64, pos flow.Position) (flow.GraphNode, error) {
	ref, err := fc.catalog.Ref(module, externalID)
	if err != nil {
		return flow.GraphNode{}, fc.observe("place", err)
	}
	return fc.PlaceNode(ref, pos)
}

// RemoveNode deletes a card and every connection touching it
func (fc *FlowController) RemoveNode(id flow.NodeID) error {
	if err := fc.store.RemoveNode(id); err != nil {
		return fc.observe("remove_node", err)
	}
	fc.logger.Debug("card removed", "node", id)
	return fc.observe("remove_node", nil)
}

// RemoveEdge deletes a connection
func (fc *FlowController) RemoveEdge(id flow.EdgeID) error {
	if err := fc.store.RemoveEdge(id); err != nil {
		return fc.observe("remove_edge", err)
	}
	fc.logger.Debug("link removed", "edge", id)
	return fc.observe("remove_edge", nil)
}

// SaveNodeConfig decodes and saves the dialog fields of a card. A new name
// is carried to every card placed from the same catalog item and to the
// session catalog.
func (fc *FlowController) SaveNodeConfig(id flow.NodeID, data map[string]interface{}) (flow.GraphNode, error) {
	node, err := fc.store.Node(id)
	if err != nil {
		return flow.GraphNode{}, fc.observe("save", err)
	}
	cfg, err := dto.DecodeConfig(node.Type, data)
	if err != nil {
		return flow.GraphNode{}, fc.observe("save", err)
	}
	return fc.SaveConfig(id, cfg)
}

// SaveConfig saves an already typed configuration
func (fc *FlowController) SaveConfig(id flow.NodeID, cfg flow.Config) (flow.GraphNode, error) {
	if err := fc.engine.CheckSave(fc.store.Snapshot(), id, cfg); err != nil {
		return flow.GraphNode{}, fc.observe("save", err)
	}
	n, err := fc.store.UpdateNodeConfig(id, cfg)
	if err != nil {
		return flow.GraphNode{}, fc.observe("save", err)
	}
	if name := cfg.Name(); name != "" && n.Module != flow.ModuleNone {
		if changed := fc.store.Relabel(n.Module, n.ExternalID, name, id); len(changed) > 0 {
			fc.logger.Debug("sibling cards relabelled", "nodes", changed)
		}
		fc.catalog = fc.catalog.Rename(n.Module, n.ExternalID, name)
	}
	fc.logger.Debug("card saved", "node", id, "dtmf", n.DTMF)
	return n, fc.observe("save", nil)
}

// Finalize checks the whole flow and returns the document to persist
func (fc *FlowController) Finalize(name string) (flow.Document, error) {
	if err := validation.ValidateFlowName(name); err != nil {
		return flow.Document{}, fc.observe("finalize", err)
	}
	s := fc.store.Snapshot()
	if err := fc.engine.CheckFinalize(s); err != nil {
		return flow.Document{}, fc.observe("finalize", err)
	}
	doc, err := dto.EncodeDocument(strings.TrimSpace(name), s)
	if err != nil {
		return flow.Document{}, fc.observe("finalize", err)
	}
	fc.logger.Info("flow finalized", "name", doc.Name, "nodes", len(doc.Nodes), "edges", len(doc.Edges))
	return doc, fc.observe("finalize", nil)
}

// Draft returns the current flow as a document without running the
// finalize rules. The name may be empty.
func (fc *FlowController) Draft(name string) (flow.Document, error) {
	return dto.EncodeDocument(name, fc.store.Snapshot())
}

// Snapshot returns a read-only copy of the flow
func (fc *FlowController) Snapshot() flow.Snapshot {
	return fc.store.Snapshot()
}

// Node returns a copy of one card
func (fc *FlowController) Node(id flow.NodeID) (flow.GraphNode, error) {
	return fc.store.Node(id)
}

// Catalog returns the session catalog, including renames made by saves
func (fc *FlowController) Catalog() catalog.Catalog {
	return fc.catalog
}

// observe records the outcome of an operation and passes err through
func (fc *FlowController) observe(op string, err error) error {
	if err == nil {
		metrics.RecordOperation(op, "ok")
		return nil
	}
	if v, ok := validation.AsViolation(err); ok {
		metrics.RecordOperation(op, "violation")
		metrics.RecordViolation(op, string(v.Kind), string(v.Rule))
		fc.logger.Info("edit rejected", "op", op, "kind", v.Kind, "rule", v.Rule, "node", v.NodeID, "reason", v.Message)
		return err
	}
	metrics.RecordOperation(op, "error")
	fc.logger.Warn("edit failed", "op", op, "error", err)
	return err
}
