// Package tensor provides the dense float32 tensor handed to the export
// pipeline by model code.
//
// Tensors are row-major and owned by the caller. The export pipeline only
// reads them; views returned by Reshape and Index share the backing slice.
package tensor

import "fmt"

// Tensor is an N-dimensional row-major array of float32 values.
type Tensor struct {
	shape   Shape
	strides []int
	data    []float32
}

// New allocates a zero-filled tensor of the given shape.
func New(shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return &Tensor{
		shape:   shape.Clone(),
		strides: shape.ComputeStrides(),
		data:    make([]float32, shape.NumElements()),
	}, nil
}

// FromSlice wraps data in a tensor of the given shape without copying.
func FromSlice(data []float32, shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(data) {
		return nil, NewShapeError("from_slice", "shape %v requires %d elements, but got %d",
			shape, shape.NumElements(), len(data))
	}
	return &Tensor{
		shape:   shape.Clone(),
		strides: shape.ComputeStrides(),
		data:    data,
	}, nil
}

// MustFromSlice is like FromSlice but panics on error. Intended for tests and literals.
func MustFromSlice(data []float32, shape Shape) *Tensor {
	t, err := FromSlice(data, shape)
	if err != nil {
		panic(err)
	}
	return t
}

// Shape returns a copy of the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape.Clone()
}

// Dims returns the number of dimensions.
func (t *Tensor) Dims() int {
	return len(t.shape)
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return len(t.data)
}

// Data returns the backing slice.
func (t *Tensor) Data() []float32 {
	return t.data
}

func (t *Tensor) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: %d indices for %dD tensor", len(idx), len(t.shape)))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range for dimension %d of size %d", v, i, t.shape[i]))
		}
		off += v * t.strides[i]
	}
	return off
}

// At returns the element at the given multi-dimensional index.
func (t *Tensor) At(idx ...int) float32 {
	return t.data[t.offset(idx)]
}

// Set stores v at the given multi-dimensional index.
func (t *Tensor) Set(v float32, idx ...int) {
	t.data[t.offset(idx)] = v
}

// Reshape returns a view with a new shape over the same data.
func (t *Tensor) Reshape(shape Shape) (*Tensor, error) {
	if shape.NumElements() != len(t.data) {
		return nil, NewShapeError("reshape", "cannot reshape %v (%d elements) to %v (%d elements)",
			t.shape, len(t.data), shape, shape.NumElements())
	}
	return FromSlice(t.data, shape)
}

// Index returns the sub-tensor at position i along the first dimension.
// The result shares data with t.
func (t *Tensor) Index(i int) (*Tensor, error) {
	if len(t.shape) < 2 {
		return nil, NewShapeError("index", "need at least 2 dimensions, got %v", t.shape)
	}
	if i < 0 || i >= t.shape[0] {
		return nil, NewShapeError("index", "index %d out of range for leading dimension %d", i, t.shape[0])
	}
	stride := t.strides[0]
	return FromSlice(t.data[i*stride:(i+1)*stride], t.shape[1:])
}
