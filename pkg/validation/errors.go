// Package validation decides whether a proposed edit to an IVR flow, or a
// finished flow, is legal. Every check is pure: it reads a snapshot and
// either returns nil or a *Violation, and never mutates anything.
package validation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedDocument wraps every reason a persisted document is rejected
var ErrMalformedDocument = errors.New("malformed flow document")

// ValidationError describes one failing field
type ValidationError struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value"`
	Message string      `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors represents multiple field errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}
