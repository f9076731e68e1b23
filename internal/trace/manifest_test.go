package trace

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifest_ArgsTwoLayers(t *testing.T) {
	m := &Manifest{
		Simulator:      "./NeuroSIM/main",
		WeightBits:     8,
		ActivationBits: 4,
		Layers: []Artifact{
			{WeightFile: "w0.csv", ActivationFile: "a0.csv"},
			{WeightFile: "w1.csv", ActivationFile: "a1.csv"},
		},
	}

	assert.Equal(t, []string{"./NeuroSIM/main", "8", "4", "w0.csv", "a0.csv", "w1.csv", "a1.csv"}, m.Args())

	m.NetworkFile = "./NeuroSIM/NetWork.csv"
	assert.Equal(t, []string{"./NeuroSIM/main", "./NeuroSIM/NetWork.csv", "8", "4", "w0.csv", "a0.csv", "w1.csv", "a1.csv"}, m.Args())
}

func TestManifest_StringQuotes(t *testing.T) {
	m := &Manifest{
		Simulator:      "/opt/sim/main",
		WeightBits:     8,
		ActivationBits: 8,
		Layers:         []Artifact{{WeightFile: "my dir/w0.csv", ActivationFile: "a0.csv"}},
	}
	assert.Equal(t, `/opt/sim/main 8 8 'my dir/w0.csv' a0.csv`, m.String())

	var buf bytes.Buffer
	require.NoError(t, m.WriteScript(&buf))
	assert.Equal(t, "#!/bin/sh\n/opt/sim/main 8 8 'my dir/w0.csv' a0.csv\n", buf.String())
}

func TestLayerKind(t *testing.T) {
	assert.False(t, FullyConnected.IsConvolutional())
	assert.Equal(t, 0, FullyConnected.KernelSize())
	assert.Equal(t, "fc", FullyConnected.String())

	k := Convolutional(3)
	assert.True(t, k.IsConvolutional())
	assert.Equal(t, 3, k.KernelSize())
	assert.Equal(t, "conv3x3", k.String())

	var zero LayerKind
	assert.Equal(t, FullyConnected, zero)

	bad := Convolutional(0)
	assert.True(t, bad.IsConvolutional())
	assert.NotEqual(t, FullyConnected, bad)
	assert.Equal(t, "conv0x0", bad.String())
}
