// Package parallax structured error types for configuration, bounds and
// backend failures.
package parallax

import (
	"fmt"
)

// ErrorType represents categories of errors
type ErrorType int

const (
	// Invalid rank, extent, policy size or scratch budget at construction
	ErrTypeConfiguration ErrorType = iota
	// Out-of-range indexing, reported only when bounds checking is enabled
	ErrTypeBounds
	// Allocation failure, launch failure, capacity exceeded on the backend
	ErrTypeBackend
	// Memory pool errors (double free, unknown pointer)
	ErrTypeMemory
	// Invalid argument errors
	ErrTypeInvalidArg
)

// Error represents a structured error with context.
// Configuration and backend errors carry the offending parameter and the
// exceeded limit in Context so callers can report what was violated.
type Error struct {
	Type    ErrorType
	Op      string      // Operation that failed
	Message string      // Human-readable message
	Err     error       // Underlying error if any
	Context interface{} // Offending parameter / exceeded limit
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parallax %s error in %s: %s (caused by: %v)",
			e.Type.String(), e.Op, e.Message, e.Err)
	}
	if e.Context != nil {
		return fmt.Sprintf("parallax %s error in %s: %s (%v)",
			e.Type.String(), e.Op, e.Message, e.Context)
	}
	return fmt.Sprintf("parallax %s error in %s: %s",
		e.Type.String(), e.Op, e.Message)
}

// Unwrap allows error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// String returns the error type as a string
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConfiguration:
		return "Configuration"
	case ErrTypeBounds:
		return "Bounds"
	case ErrTypeBackend:
		return "Backend"
	case ErrTypeMemory:
		return "Memory"
	case ErrTypeInvalidArg:
		return "InvalidArgument"
	default:
		return "Unknown"
	}
}

// Common error constructors

// NewConfigurationError creates a policy/extent construction error
func NewConfigurationError(op string, message string, context interface{}) error {
	return &Error{
		Type:    ErrTypeConfiguration,
		Op:      op,
		Message: message,
		Context: context,
	}
}

// NewBoundsError creates an out-of-range indexing error
func NewBoundsError(op string, message string, context interface{}) error {
	return &Error{
		Type:    ErrTypeBounds,
		Op:      op,
		Message: message,
		Context: context,
	}
}

// NewBackendError creates a backend resource/launch error
func NewBackendError(op string, message string, err error) error {
	return &Error{
		Type:    ErrTypeBackend,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewMemoryError creates a memory-related error
func NewMemoryError(op string, message string, err error) error {
	return &Error{
		Type:    ErrTypeMemory,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// NewInvalidArgError creates an invalid argument error
func NewInvalidArgError(op string, message string) error {
	return &Error{
		Type:    ErrTypeInvalidArg,
		Op:      op,
		Message: message,
	}
}

// Common pre-defined errors

var (
	// ErrOutOfMemory indicates the space's allocation budget is exhausted
	ErrOutOfMemory = NewBackendError("Allocate", "out of memory", nil)

	// ErrInvalidSize indicates invalid size parameter
	ErrInvalidSize = NewInvalidArgError("Allocate", "size must be non-negative")

	// ErrDoubleFree indicates double free attempt
	ErrDoubleFree = NewMemoryError("Deallocate", "double free detected", nil)

	// ErrShapeMismatch indicates deep-copy endpoints with differing element counts
	ErrShapeMismatch = NewInvalidArgError("DeepCopy", "element counts of source and destination differ")
)

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == ErrTypeConfiguration
	}
	return false
}

// IsBoundsError checks if an error is a bounds error
func IsBoundsError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == ErrTypeBounds
	}
	return false
}

// IsBackendError checks if an error is a backend error
func IsBackendError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == ErrTypeBackend
	}
	return false
}

// IsMemoryError checks if an error is a memory error
func IsMemoryError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == ErrTypeMemory
	}
	return false
}

// IsInvalidArgError checks if an error is an invalid argument error
func IsInvalidArgError(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == ErrTypeInvalidArg
	}
	return false
}
