package trace

import (
	"bufio"
	"fmt"
	"io"

	"github.com/born-ml/simtrace/internal/tensor"
)

// NetworkRow is one line of the simulator's network structure file.
type NetworkRow struct {
	InputHeight, InputWidth, InputChannels int
	KernelHeight, KernelWidth              int
	OutputChannels                         int
	Pool                                   bool
	Stride                                 int
}

// NetworkRowFor derives the structure row of a layer from its tensors.
// Fully-connected layers are 1×1 convolutions over a 1×1 input.
func NetworkRowFor(l Layer) (NetworkRow, error) {
	in, out := l.Weight.Dims()
	row := NetworkRow{
		InputHeight:    1,
		InputWidth:     1,
		InputChannels:  in,
		KernelHeight:   1,
		KernelWidth:    1,
		OutputChannels: out,
		Pool:           l.Pool,
		Stride:         1,
	}
	if !l.Kind.IsConvolutional() {
		return row, nil
	}

	shape := l.Activation.Shape()
	if len(shape) != 4 {
		return row, tensor.NewShapeError("network", "conv activation must be 4D [N,C,H,W], got %v", shape)
	}
	k := l.Kind.KernelSize()
	row.InputHeight, row.InputWidth, row.InputChannels = shape[2], shape[3], shape[1]
	row.KernelHeight, row.KernelWidth = k, k
	return row, nil
}

// WriteNetwork writes one comma separated row per layer:
//
//	IFM_H,IFM_W,IFM_C,K_H,K_W,OFM_C,pool,stride
func WriteNetwork(w io.Writer, layers []Layer) error {
	bw := bufio.NewWriter(w)
	for i, l := range layers {
		row, err := NetworkRowFor(l)
		if err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
		pool := 0
		if row.Pool {
			pool = 1
		}
		fmt.Fprintf(bw, "%d,%d,%d,%d,%d,%d,%d,%d\n",
			row.InputHeight, row.InputWidth, row.InputChannels,
			row.KernelHeight, row.KernelWidth, row.OutputChannels,
			pool, row.Stride)
	}
	return bw.Flush()
}
