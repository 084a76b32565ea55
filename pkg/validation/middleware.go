package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
)

// ValidationConfig holds middleware settings
type ValidationConfig struct {
	MaxErrors    int   `json:"max_errors"`
	MaxBodyBytes int64 `json:"max_body_bytes"`
}

// DefaultValidationConfig returns default validation configuration
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		MaxErrors:    10,
		MaxBodyBytes: 1 << 20,
	}
}

type bodyKey struct{}

// Middleware decodes and validates HTTP request bodies
type Middleware struct {
	config *ValidationConfig
}

// NewMiddleware creates a new validation middleware
func NewMiddleware(config *ValidationConfig) *Middleware {
	if config == nil {
		config = DefaultValidationConfig()
	}
	return &Middleware{config: config}
}

// ValidateJSON decodes the request body into a fresh value of the type of
// structType, validates it and stores a pointer to it in the request
// context for Body to pick up. Bad bodies get a 400 with the field errors.
func (m *Middleware) ValidateJSON(structType interface{}) func(http.Handler) http.Handler {
	typ := reflect.TypeOf(structType)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			val := reflect.New(typ).Interface()

			body := r.Body
			if m.config.MaxBodyBytes > 0 {
				body = http.MaxBytesReader(w, r.Body, m.config.MaxBodyBytes)
			}
			if err := json.NewDecoder(body).Decode(val); err != nil {
				m.writeErrorResponse(w, http.StatusBadRequest, ValidationErrors{{
					Field:   "request_body",
					Message: fmt.Sprintf("invalid JSON: %v", err),
				}})
				return
			}

			if err := ValidateWithPlayground(val); err != nil {
				errs, ok := err.(ValidationErrors)
				if !ok {
					m.writeErrorResponse(w, http.StatusInternalServerError, ValidationErrors{{
						Field:   "validation",
						Message: "validation failed",
					}})
					return
				}
				if m.config.MaxErrors > 0 && len(errs) > m.config.MaxErrors {
					errs = errs[:m.config.MaxErrors]
				}
				m.writeErrorResponse(w, http.StatusBadRequest, errs)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), bodyKey{}, val)))
		})
	}
}

// Body returns the request body decoded by ValidateJSON
func Body[T any](r *http.Request) (*T, bool) {
	v, ok := r.Context().Value(bodyKey{}).(*T)
	return v, ok
}

// writeErrorResponse writes validation errors as JSON response
func (m *Middleware) writeErrorResponse(w http.ResponseWriter, statusCode int, errors ValidationErrors) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorData, err := MarshalValidationErrors(errors)
	if err != nil {
		w.Write([]byte(`{"error":"validation failed","message":"internal validation error"}`))
		return
	}
	w.Write(errorData)
}
