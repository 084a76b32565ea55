package validation

import (
	"fmt"

	"github.com/flowgraph/ivrflow/internal/core/flow"
)

// Engine runs the rule sets bound to each flow operation
// PRINCIPLES:
// - Pure: reads a snapshot, never mutates it
// - Unknown ids are programming errors, not violations
type Engine struct {
	exempt map[flow.NodeType]bool
}

// Option configures an Engine
type Option func(*Engine)

// WithCompletenessExempt replaces the node types whose configuration does
// not need saving before a flow can be finalized
func WithCompletenessExempt(types ...flow.NodeType) Option {
	return func(e *Engine) {
		e.exempt = make(map[flow.NodeType]bool, len(types))
		for _, t := range types {
			e.exempt[t] = true
		}
	}
}

// NewEngine returns an engine that exempts the start card from the
// completeness check. Earlier editors required the welcome card to be saved
// as well; WithCompletenessExempt() with no types restores that.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{exempt: map[flow.NodeType]bool{flow.NodeTypeStart: true}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CheckConnect decides whether source may be linked to target
func (e *Engine) CheckConnect(s flow.Snapshot, source, target flow.NodeID) error {
	src, err := lookup(s, source)
	if err != nil {
		return err
	}
	tgt, err := lookup(s, target)
	if err != nil {
		return err
	}
	if source == target {
		return newViolation(RuleStructuralCompatibility, source, "card %q cannot be linked to itself", src.Label)
	}
	if err := CheckSingleParent(s, target); err != nil {
		return err
	}
	return CheckStructuralCompatibility(src, tgt)
}

// CheckPlace decides whether a card for ref may be added
func (e *Engine) CheckPlace(s flow.Snapshot, ref flow.CatalogRef) error {
	if _, err := ref.Module.NodeType(); err != nil {
		return err
	}
	return CheckNoDuplicatePlacement(s, ref)
}

// CheckSave decides whether cfg may become the configuration of node id
func (e *Engine) CheckSave(s flow.Snapshot, id flow.NodeID, cfg flow.Config) error {
	if cfg == nil {
		return flow.ErrNilConfig
	}
	n, err := lookup(s, id)
	if err != nil {
		return err
	}
	if cfg.Type() != n.Type {
		return fmt.Errorf("%w: %s is %s, got %s", flow.ErrConfigTypeMismatch, id, n.Type, cfg.Type())
	}
	if err := ValidateConfig(cfg); err != nil {
		if v, ok := AsViolation(err); ok {
			v.NodeID = id
		}
		return err
	}
	return CheckScopedDTMF(s, n, cfg.DTMF())
}

// CheckFinalize runs the whole-flow rules in order and reports the first
// failure
func (e *Engine) CheckFinalize(s flow.Snapshot) error {
	if err := CheckNonEmpty(s); err != nil {
		return err
	}
	if err := CheckFullConnectivity(s); err != nil {
		return err
	}
	if err := CheckCompleteness(s, e.exempt); err != nil {
		return err
	}
	return CheckExperienceCoverage(s)
}
