package tensor

import (
	"errors"
	"fmt"
)

// ErrShape is matched by every *ShapeError via errors.Is.
var ErrShape = errors.New("shape error")

// ShapeError reports tensors or matrices whose dimensions do not fit an operation.
type ShapeError struct {
	Op      string // Operation that rejected the shape (e.g., "window", "activation")
	Details string // Human readable description
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("shape error: %s", e.Details)
	}
	return fmt.Sprintf("%s: shape error: %s", e.Op, e.Details)
}

// Is reports whether target is ErrShape.
func (e *ShapeError) Is(target error) bool {
	return target == ErrShape
}

// NewShapeError formats a ShapeError for op.
func NewShapeError(op, format string, args ...any) *ShapeError {
	return &ShapeError{Op: op, Details: fmt.Sprintf(format, args...)}
}
