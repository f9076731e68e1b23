// Package matrix pads weight matrices to power-of-two squares and reads and
// writes the simulator's text formats.
package matrix

import (
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/simtrace/internal/tensor"
)

// FillDimension returns the smallest power of two >= max(rows, cols).
// It is 1 for empty and 1×1 matrices.
func FillDimension(rows, cols int) int {
	bigger := max(rows, cols)
	fill := 1
	for fill < bigger {
		fill *= 2
	}
	return fill
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Pad copies m into the top-left block of a zero fill×fill matrix.
func Pad(m mat.Matrix) (*mat.Dense, int) {
	rows, cols := dims(m)
	fill := FillDimension(rows, cols)
	padded := mat.NewDense(fill, fill, nil)
	if rows > 0 && cols > 0 {
		padded.Slice(0, rows, 0, cols).(*mat.Dense).Copy(m)
	}
	return padded, fill
}

// dims is m.Dims() that tolerates an empty *mat.Dense.
func dims(m mat.Matrix) (int, int) {
	if d, ok := m.(*mat.Dense); ok && d.IsEmpty() {
		return 0, 0
	}
	return m.Dims()
}

// FromTensor converts a 2D tensor into a dense float64 matrix.
func FromTensor(t *tensor.Tensor) (*mat.Dense, error) {
	shape := t.Shape()
	if len(shape) != 2 {
		return nil, tensor.NewShapeError("matrix", "expected 2D tensor, got %v", shape)
	}
	data := make([]float64, len(t.Data()))
	for i, v := range t.Data() {
		data[i] = float64(v)
	}
	return mat.NewDense(shape[0], shape[1], data), nil
}
