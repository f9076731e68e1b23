// Package window unrolls convolutional activations into matrix form.
//
// Extract is im2col restricted to square kernels, stride 1 and no padding.
// Each output row holds one k×k window flattened as [c, kh, kw], the same
// order a [C_out, C_in, K, K] kernel has after reshaping to
// [C_out, C_in*K*K]. A windowed row times the transposed kernel matrix is
// therefore the convolution output at that position.
package window

import (
	"github.com/born-ml/simtrace/internal/parallel"
	"github.com/born-ml/simtrace/internal/tensor"
)

// Positions returns the number of windows of size k in an h×w plane.
func Positions(h, w, k int) int {
	if k <= 0 || h < k || w < k {
		return 0
	}
	return (h - k + 1) * (w - k + 1)
}

// Extract returns a [N, (H-k+1)*(W-k+1), C*k*k] tensor of flattened windows.
//
// Output positions are scanned row-major (out_h outer, out_w inner).
// A kernel larger than either spatial dimension is a *tensor.ShapeError.
func Extract(input *tensor.Tensor, k int) (*tensor.Tensor, error) {
	return ExtractWith(input, k, parallel.Sequential())
}

// ExtractWith is Extract with an explicit parallelism configuration.
// Work is split by (batch, position); the result does not depend on cfg.
func ExtractWith(input *tensor.Tensor, k int, cfg parallel.Config) (*tensor.Tensor, error) {
	shape := input.Shape()
	if len(shape) != 4 {
		return nil, tensor.NewShapeError("window", "input must be 4D [N,C,H,W], got %dD %v", len(shape), shape)
	}
	if k <= 0 {
		return nil, tensor.NewShapeError("window", "kernel size must be positive, got %d", k)
	}

	N, C, H, W := shape[0], shape[1], shape[2], shape[3]
	if H < k || W < k {
		return nil, tensor.NewShapeError("window", "kernel %dx%d does not fit spatial size %dx%d", k, k, H, W)
	}

	HOut := H - k + 1
	WOut := W - k + 1
	positions := HOut * WOut
	colWidth := C * k * k

	output, err := tensor.New(tensor.Shape{N, positions, colWidth})
	if err != nil {
		return nil, err
	}

	im2col(output.Data(), input.Data(), N, C, H, W, k, HOut, WOut, cfg)
	return output, nil
}

// im2col fills colBuf [N*HOut*WOut, C*k*k] from inputData [N, C, H, W].
func im2col(colBuf, inputData []float32, N, C, H, W, k, HOut, WOut int, cfg parallel.Config) {
	colWidth := C * k * k
	positions := HOut * WOut

	parallel.For(N*positions, func(row int) {
		n := row / positions
		outH := (row % positions) / WOut
		outW := row % WOut

		bufIdx := row * colWidth
		for c := 0; c < C; c++ {
			base := n*C*H*W + c*H*W
			for kh := 0; kh < k; kh++ {
				src := base + (outH+kh)*W + outW
				copy(colBuf[bufIdx:bufIdx+k], inputData[src:src+k])
				bufIdx += k
			}
		}
	}, cfg)
}

// Sample returns the windowed matrix of batch element n transposed to
// [C*k*k, positions], so rows line up with the rows of a
// [C*k*k, C_out] weight matrix.
func Sample(windowed *tensor.Tensor, n int) (*tensor.Tensor, error) {
	shape := windowed.Shape()
	if len(shape) != 3 {
		return nil, tensor.NewShapeError("window", "windowed tensor must be 3D [N,P,F], got %v", shape)
	}
	rows, err := windowed.Index(n)
	if err != nil {
		return nil, err
	}

	P, F := shape[1], shape[2]
	out, err := tensor.New(tensor.Shape{F, P})
	if err != nil {
		return nil, err
	}
	src := rows.Data()
	dst := out.Data()
	for p := 0; p < P; p++ {
		for f := 0; f < F; f++ {
			dst[f*P+p] = src[p*F+f]
		}
	}
	return out, nil
}
