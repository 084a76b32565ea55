// Package flow defines domain-specific errors
package flow

import "errors"

// Programming errors. These are never validation outcomes: a caller that
// trips one of them handed the store an id it never issued.
var (
	// Node errors
	ErrNodeNotFound       = errors.New("node not found")
	ErrStartNodeImmutable = errors.New("start node cannot be removed or re-placed")
	ErrInvalidModule      = errors.New("invalid module")
	ErrConfigTypeMismatch = errors.New("config type does not match node type")
	ErrNilConfig          = errors.New("config cannot be nil")

	// Edge errors
	ErrEdgeNotFound  = errors.New("edge not found")
	ErrDuplicateEdge = errors.New("duplicate edge")

	// Restore errors
	ErrMissingStartNode = errors.New("start node missing")
	ErrDuplicateNodeID  = errors.New("duplicate node ID")
	ErrNodeIDOrder      = errors.New("node IDs out of order")
)
