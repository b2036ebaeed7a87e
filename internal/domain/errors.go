// Package domain defines the core types, ports, and errors of the audit service.
package domain

import "fmt"

// ValidationError indicates invalid input. Handlers map it to 400 and may echo
// its message to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// StoreError indicates the backing store was unreachable or a query failed.
// Handlers map it to 500; its message is logged, never returned to callers.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// NotFoundError indicates a record was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrStore wraps a store failure with the operation that produced it.
func ErrStore(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}
