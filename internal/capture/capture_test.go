package capture

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/simtrace/internal/tensor"
)

func TestWriteFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.safetensors")

	weight := tensor.MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	bias := tensor.MustFromSlice([]float32{0.1, 0.2, 0.3}, tensor.Shape{3})

	err := WriteFile(path, map[string]*tensor.Tensor{"weight": weight, "bias": bias}, map[string]string{"format": "pt"})
	require.NoError(t, err)

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"bias", "weight"}, r.TensorNames())
	assert.Equal(t, "pt", r.Metadata()["format"])

	got, err := r.Tensor("weight")
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, got.Shape())
	assert.Equal(t, weight.Data(), got.Data())

	_, err = r.Tensor("missing")
	require.Error(t, err)
}

func TestWrite_AlphabeticalDataOrder(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, map[string]*tensor.Tensor{
		"b": tensor.MustFromSlice([]float32{2}, tensor.Shape{1}),
		"a": tensor.MustFromSlice([]float32{1}, tensor.Shape{1}),
	}, nil)
	require.NoError(t, err)

	raw := buf.Bytes()
	headerSize := binary.LittleEndian.Uint64(raw[:8])
	var header Header
	require.NoError(t, json.Unmarshal(raw[8:8+headerSize], &header))
	assert.Equal(t, [2]int64{0, 4}, header.Tensors["a"].DataOffsets)
	assert.Equal(t, [2]int64{4, 8}, header.Tensors["b"].DataOffsets)
	assert.Nil(t, header.Metadata)
}

func TestTensor_Float64Narrowed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f64.safetensors")

	header, err := json.Marshal(map[string]any{
		"x": TensorInfo{DType: F64, Shape: []int{2}, DataOffsets: [2]int64{0, 16}},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(header))))
	buf.Write(header)
	for _, v := range []float64{0.5, -2} {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, math.Float64bits(v)))
	}
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	x, err := r.Tensor("x")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -2}, x.Data())
}

func TestTensor_SizeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.safetensors")

	header, err := json.Marshal(map[string]any{
		"x": TensorInfo{DType: F32, Shape: []int{3}, DataOffsets: [2]int64{0, 8}},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(header))))
	buf.Write(header)
	buf.Write(make([]byte, 8))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Tensor("x")
	require.Error(t, err)
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "huge")
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(maxHeaderSize+1)))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	_, err = Open(path)
	require.Error(t, err)
}

func TestRecords_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layers.safetensors")

	records := []Record{
		{
			Kind:       KindConv,
			Kernel:     5,
			Pool:       true,
			Weight:     tensor.MustFromSlice(make([]float32, 25*6), tensor.Shape{25, 6}),
			Activation: tensor.MustFromSlice(make([]float32, 28*28), tensor.Shape{1, 1, 28, 28}),
		},
		{
			Kind:       KindFC,
			Weight:     tensor.MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{3, 2}),
			Activation: tensor.MustFromSlice([]float32{0.1, 0.2, 0.3}, tensor.Shape{1, 3}),
		},
	}
	require.NoError(t, WriteRecords(path, records))

	got, err := ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, KindConv, got[0].Kind)
	assert.Equal(t, 5, got[0].Kernel)
	assert.True(t, got[0].Pool)
	assert.Equal(t, tensor.Shape{1, 1, 28, 28}, got[0].Activation.Shape())

	assert.Equal(t, KindFC, got[1].Kind)
	assert.False(t, got[1].Pool)
	assert.Equal(t, records[1].Weight.Data(), got[1].Weight.Data())
	assert.Equal(t, records[1].Activation.Data(), got[1].Activation.Data())
}

func TestWriteRecords_MissingTensor(t *testing.T) {
	err := WriteRecords(filepath.Join(t.TempDir(), "x"), []Record{{Kind: KindFC}})
	require.Error(t, err)
}

func TestReadRecords_MissingCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nometa.safetensors")
	require.NoError(t, WriteFile(path, map[string]*tensor.Tensor{
		"x": tensor.MustFromSlice([]float32{1}, tensor.Shape{1}),
	}, nil))

	_, err := ReadRecords(path)
	require.Error(t, err)
}
