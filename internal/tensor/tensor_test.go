package tensor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape_NumElementsAndStrides(t *testing.T) {
	s := Shape{2, 3, 4}
	assert.Equal(t, 24, s.NumElements())
	assert.Equal(t, []int{12, 4, 1}, s.ComputeStrides())
	assert.Equal(t, 1, Shape{}.NumElements())
	assert.Equal(t, "(2, 3, 4)", s.String())
}

func TestShape_Validate(t *testing.T) {
	require.NoError(t, Shape{1, 5}.Validate())

	err := Shape{3, 0}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShape))

	var se *ShapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "validate", se.Op)
}

func TestFromSlice_LengthMismatch(t *testing.T) {
	_, err := FromSlice([]float32{1, 2, 3}, Shape{2, 2})
	require.ErrorIs(t, err, ErrShape)
}

func TestTensor_AtSet(t *testing.T) {
	x, err := New(Shape{2, 3})
	require.NoError(t, err)

	x.Set(7, 1, 2)
	assert.Equal(t, float32(7), x.At(1, 2))
	assert.Equal(t, float32(7), x.Data()[5])
	assert.Panics(t, func() { x.At(2, 0) })
}

func TestTensor_ReshapeSharesData(t *testing.T) {
	x := MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	y, err := x.Reshape(Shape{3, 2})
	require.NoError(t, err)

	y.Set(42, 0, 0)
	assert.Equal(t, float32(42), x.At(0, 0))

	_, err = x.Reshape(Shape{4, 2})
	require.ErrorIs(t, err, ErrShape)
}

func TestTensor_Index(t *testing.T) {
	x := MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})

	row, err := x.Index(1)
	require.NoError(t, err)
	assert.Equal(t, Shape{3}, row.Shape())
	assert.Equal(t, []float32{4, 5, 6}, row.Data())

	_, err = x.Index(2)
	require.ErrorIs(t, err, ErrShape)

	_, err = row.Index(0)
	require.ErrorIs(t, err, ErrShape)
}
