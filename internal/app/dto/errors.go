package dto

import "errors"

// Flow persistence and request errors
var (
	ErrFlowNotFound     = errors.New("flow not found")
	ErrDraftNotFound    = errors.New("draft not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrMissingFlowID    = errors.New("flow ID is required")
	ErrMissingSessionID = errors.New("session ID is required")
	ErrInvalidConfig    = errors.New("invalid node configuration data")
	ErrUnknownNodeType  = errors.New("unknown node type")
)
