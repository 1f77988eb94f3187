package repository

import (
	"fmt"
	"strings"

	"github.com/quickbite/orders-service/internal/domain"
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	Key      string
	Value    string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with %s %s not found", e.Resource, e.Key, e.Value)
}

// InvalidStateError represents a status-changing operation attempted
// from a state that forbids it.
type InvalidStateError struct {
	OrderID string
	Status  domain.Status
	Op      string
}

// Error implements the error interface
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("order %s cannot be %s while %s", e.OrderID, e.Op, e.Status)
}

// ValidationError represents malformed or missing required fields,
// surfaced to callers as a structured field-error list.
type ValidationError struct {
	Fields []domain.FieldError
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}
