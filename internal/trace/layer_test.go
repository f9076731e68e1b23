package trace

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/simtrace/internal/capture"
	"github.com/born-ml/simtrace/internal/tensor"
)

func TestConvWeightMatrix(t *testing.T) {
	// [C_out=2, C_in=1, 2, 2]
	w := tensor.MustFromSlice([]float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
	}, tensor.Shape{2, 1, 2, 2})

	m, err := ConvWeightMatrix(w)
	require.NoError(t, err)

	r, c := m.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 2, c)
	for i := 0; i < 4; i++ {
		assert.InDelta(t, float64(i+1), m.At(i, 0), 1e-9)
		assert.InDelta(t, float64(i+5), m.At(i, 1), 1e-9)
	}

	_, err = ConvWeightMatrix(filled(tensor.Shape{2, 4}, func(int) float32 { return 0 }))
	require.ErrorIs(t, err, tensor.ErrShape)
}

func TestLinearWeightMatrix(t *testing.T) {
	w := tensor.MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	m, err := LinearWeightMatrix(w)
	require.NoError(t, err)

	r, c := m.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.InDelta(t, 2.0, m.At(1, 0), 1e-9)
	assert.InDelta(t, 6.0, m.At(2, 1), 1e-9)

	_, err = LinearWeightMatrix(filled(tensor.Shape{2, 3, 1}, func(int) float32 { return 0 }))
	require.ErrorIs(t, err, tensor.ErrShape)
}

func TestLayersFromRecords_WeightNot2D(t *testing.T) {
	_, err := LayersFromRecords([]capture.Record{{
		Kind:       capture.KindFC,
		Weight:     filled(tensor.Shape{16}, func(int) float32 { return 0 }),
		Activation: filled(tensor.Shape{1, 16}, func(int) float32 { return 0 }),
	}})
	require.ErrorIs(t, err, tensor.ErrShape)
}

func TestLoadCapture_Missing(t *testing.T) {
	_, err := LoadCapture(filepath.Join(t.TempDir(), "none.safetensors"))
	require.Error(t, err)
}
