// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package trace

import (
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/simtrace/internal/matrix"
	"github.com/born-ml/simtrace/internal/quant"
	"github.com/born-ml/simtrace/internal/tensor"
	"github.com/born-ml/simtrace/internal/trace"
	"github.com/born-ml/simtrace/internal/window"
)

// Tensors

// Shape represents tensor dimensions.
type Shape = tensor.Shape

// Tensor is a dense row-major float32 tensor.
type Tensor = tensor.Tensor

// NewTensor returns a zero-filled tensor.
func NewTensor(shape Shape) (*Tensor, error) {
	return tensor.New(shape)
}

// FromSlice wraps data as a tensor of the given shape without copying.
func FromSlice(data []float32, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

// Bit-serial encoding

// Codec converts values in [-1, 1) to bit-serial two's-complement planes.
type Codec = quant.Codec

// Planes is the bit-plane decomposition of a value vector.
type Planes = quant.Planes

// Policy decides what happens to values outside [-1, 1).
type Policy = quant.Policy

// Range policies.
const (
	Saturate = quant.Saturate
	Wrap     = quant.Wrap
	Reject   = quant.Reject
)

// MaxBits is the largest supported activation precision.
const MaxBits = quant.MaxBits

// NewCodec returns a codec for the given precision.
//
// Example:
//
//	codec, _ := trace.NewCodec(4, trace.Saturate)
//	planes, _ := codec.Encode([]float64{-0.3, 0.3})
//	// planes.Bits[0] == []bool{true, false}   sign plane
//	// planes.Scales  == []float64{-1, 0.5, 0.25, 0.125}
func NewCodec(bits int, policy Policy) (*Codec, error) {
	return quant.New(bits, policy)
}

// ParsePolicy parses "saturate", "wrap" or "reject".
func ParsePolicy(s string) (Policy, error) {
	return quant.ParsePolicy(s)
}

// Decode reconstructs values from their bit planes.
func Decode(p *Planes) []float64 {
	return quant.Decode(p)
}

// Windows and padding

// ExtractWindows unrolls every k×k patch of an [N, C, H, W] input into
// [N, (H-k+1)*(W-k+1), C*k*k].
func ExtractWindows(input *Tensor, k int) (*Tensor, error) {
	return window.Extract(input, k)
}

// FillDimension returns the smallest power of two >= max(rows, cols).
func FillDimension(rows, cols int) int {
	return matrix.FillDimension(rows, cols)
}

// PadSquare zero-pads m to a FillDimension square.
func PadSquare(m mat.Matrix) (*mat.Dense, int) {
	return matrix.Pad(m)
}

// Export

// Config holds the parameters of an export pass.
type Config = trace.Config

// Format controls how weight values are printed.
type Format = matrix.Format

// Layer is one entry of the ordered layer list.
type Layer = trace.Layer

// LayerKind selects how a layer's activation is unrolled.
type LayerKind = trace.LayerKind

// Artifact describes the files written for one layer.
type Artifact = trace.Artifact

// Manifest is the simulator invocation assembled by an export pass.
type Manifest = trace.Manifest

// Exporter runs export passes.
type Exporter = trace.Exporter

// Option configures an Exporter.
type Option = trace.Option

// Simulator consumes a manifest.
type Simulator = trace.Simulator

// ExecSimulator runs the simulator binary as a child process.
type ExecSimulator = trace.ExecSimulator

// ExitStatus is the simulator's exit code.
type ExitStatus = trace.ExitStatus

// ScriptName is the file name of the optional invocation script.
const ScriptName = trace.ScriptName

// FullyConnected is the kind of dense layers.
var FullyConnected = trace.FullyConnected

// Convolutional returns the kind of a conv layer with a k×k kernel.
func Convolutional(k int) LayerKind {
	return trace.Convolutional(k)
}

// DefaultConfig returns the default export configuration.
func DefaultConfig() Config {
	return trace.DefaultConfig()
}

// DefaultFormat returns the "%10.5f", comma-delimited weight format.
func DefaultFormat() Format {
	return matrix.DefaultFormat()
}

// LoadConfig reads a YAML configuration on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	return trace.LoadConfig(path)
}

// NewExporter validates cfg and returns an exporter. sim may be nil if only
// Export is used.
func NewExporter(cfg Config, sim Simulator, opts ...Option) (*Exporter, error) {
	return trace.NewExporter(cfg, sim, opts...)
}

// WithLogger and WithPassID configure an Exporter.
var (
	WithLogger = trace.WithLogger
	WithPassID = trace.WithPassID
)

// ConvWeightMatrix reshapes a [C_out, C_in, k, k] kernel to [C_in*k*k, C_out].
func ConvWeightMatrix(w *Tensor) (*mat.Dense, error) {
	return trace.ConvWeightMatrix(w)
}

// LinearWeightMatrix transposes an [out, in] weight to [in, out].
func LinearWeightMatrix(w *Tensor) (*mat.Dense, error) {
	return trace.LinearWeightMatrix(w)
}

// LoadCapture reads layers from a SafeTensors capture file.
func LoadCapture(path string) ([]Layer, error) {
	return trace.LoadCapture(path)
}

// Errors

// ShapeError reports incompatible tensor or matrix shapes.
type ShapeError = tensor.ShapeError

// RangeError reports a value outside [-1, 1) under the Reject policy.
type RangeError = quant.RangeError

// IOError reports a failed filesystem operation.
type IOError = trace.IOError

// ExternalProcessError reports a simulator that failed to start or exited
// with a non-zero status.
type ExternalProcessError = trace.ExternalProcessError

// Sentinels matched by ShapeError and RangeError through errors.Is.
var (
	ErrShape = tensor.ErrShape
	ErrRange = quant.ErrRange
)
