package trace

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/simtrace/internal/capture"
	"github.com/born-ml/simtrace/internal/matrix"
	"github.com/born-ml/simtrace/internal/tensor"
)

// LayerKind tells the exporter how to unroll a layer's activation.
// The zero value is FullyConnected.
type LayerKind struct {
	conv   bool
	kernel int
}

// FullyConnected is the kind of dense layers.
var FullyConnected = LayerKind{}

// Convolutional returns the kind of a conv layer with a k×k kernel.
// A non-positive k stays convolutional and fails the export with a shape error.
func Convolutional(k int) LayerKind {
	return LayerKind{conv: true, kernel: k}
}

// IsConvolutional reports whether activations go through window extraction.
func (k LayerKind) IsConvolutional() bool { return k.conv }

// KernelSize returns the kernel size, or 0 for fully-connected layers.
func (k LayerKind) KernelSize() int { return k.kernel }

// String implements fmt.Stringer.
func (k LayerKind) String() string {
	if k.IsConvolutional() {
		return fmt.Sprintf("conv%dx%d", k.kernel, k.kernel)
	}
	return "fc"
}

// Layer is one entry of the caller-built, ordered layer list.
type Layer struct {
	Name string // Optional, used in logs

	// Weight is [in, out]: C_in*k*k rows for conv layers, input features for
	// fully-connected ones. See ConvWeightMatrix and LinearWeightMatrix.
	Weight mat.Matrix

	// Activation is the layer input: [N, C, H, W] for conv layers and
	// [N, features...] for fully-connected ones.
	Activation *tensor.Tensor

	Kind LayerKind
	Pool bool // Followed by pooling; only recorded in the network CSV
}

// ConvWeightMatrix reshapes a [C_out, C_in, k, k] kernel to [C_in*k*k, C_out].
func ConvWeightMatrix(w *tensor.Tensor) (*mat.Dense, error) {
	shape := w.Shape()
	if len(shape) != 4 {
		return nil, tensor.NewShapeError("conv_weight", "kernel must be 4D [C_out,C_in,K,K], got %v", shape)
	}
	return transposed(w, shape[0], shape[1]*shape[2]*shape[3])
}

// LinearWeightMatrix transposes an [out, in] weight to [in, out].
func LinearWeightMatrix(w *tensor.Tensor) (*mat.Dense, error) {
	shape := w.Shape()
	if len(shape) != 2 {
		return nil, tensor.NewShapeError("linear_weight", "weight must be 2D [out,in], got %v", shape)
	}
	return transposed(w, shape[0], shape[1])
}

func transposed(w *tensor.Tensor, rows, cols int) (*mat.Dense, error) {
	flat, err := w.Reshape(tensor.Shape{rows, cols})
	if err != nil {
		return nil, err
	}
	m, err := matrix.FromTensor(flat)
	if err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(m.T()), nil
}

// LayersFromRecords converts capture records into export layers.
func LayersFromRecords(records []capture.Record) ([]Layer, error) {
	layers := make([]Layer, len(records))
	for i, rec := range records {
		weight, err := matrix.FromTensor(rec.Weight)
		if err != nil {
			return nil, fmt.Errorf("layer %d weight: %w", i, err)
		}

		kind := FullyConnected
		if rec.Kind == capture.KindConv {
			if rec.Kernel <= 0 {
				return nil, fmt.Errorf("layer %d: conv layer without kernel size", i)
			}
			kind = Convolutional(rec.Kernel)
		}

		layers[i] = Layer{
			Name:       fmt.Sprintf("layer%d", i),
			Weight:     weight,
			Activation: rec.Activation,
			Kind:       kind,
			Pool:       rec.Pool,
		}
	}
	return layers, nil
}

// LoadCapture reads a capture file into export layers.
func LoadCapture(path string) ([]Layer, error) {
	records, err := capture.ReadRecords(path)
	if err != nil {
		return nil, err
	}
	return LayersFromRecords(records)
}
