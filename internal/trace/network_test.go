package trace

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/simtrace/internal/tensor"
)

func TestNetworkRowFor(t *testing.T) {
	layers := twoLayers()

	conv, err := NetworkRowFor(layers[0])
	require.NoError(t, err)
	assert.Equal(t, NetworkRow{
		InputHeight: 9, InputWidth: 9, InputChannels: 3,
		KernelHeight: 5, KernelWidth: 5, OutputChannels: 6,
		Pool: true, Stride: 1,
	}, conv)

	fc, err := NetworkRowFor(layers[1])
	require.NoError(t, err)
	assert.Equal(t, 16, fc.InputChannels)
	assert.Equal(t, 4, fc.OutputChannels)
	assert.Equal(t, 1, fc.KernelHeight)
}

func TestWriteNetwork_ConvNeeds4D(t *testing.T) {
	layers := twoLayers()
	layers[0].Activation = filled(tensor.Shape{3, 81}, func(int) float32 { return 0 })

	var buf bytes.Buffer
	err := WriteNetwork(&buf, layers)
	require.ErrorIs(t, err, tensor.ErrShape)
	assert.Contains(t, err.Error(), "layer 0")
}
