package quant

import (
	"errors"
	"fmt"
)

// ErrRange is matched by every *RangeError via errors.Is.
var ErrRange = errors.New("value outside fixed-point range")

// RangeError reports a value that cannot be represented at the codec's bit width.
type RangeError struct {
	Index int     // Position of the value in the encoded slice (-1 for a single value)
	Value float64 // Offending input
	Bits  int     // Bit width of the codec
}

// Error implements the error interface.
func (e *RangeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("quant: value %g outside [-1, 1) at %d bits", e.Value, e.Bits)
	}
	return fmt.Sprintf("quant: element %d: value %g outside [-1, 1) at %d bits", e.Index, e.Value, e.Bits)
}

// Is reports whether target is ErrRange.
func (e *RangeError) Is(target error) bool {
	return target == ErrRange
}
