package tensor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRowMajor(t *testing.T) {
	data := []float32{0, 1, 2, 3, 4, 5}
	tt, err := New(data, []int{2, 3})
	require.NoError(t, err)
	require.Equal(t, 2, tt.Rank())
	require.Equal(t, 3, tt.Dim(1))
	require.Equal(t, 3, tt.Stride(0))
	require.Equal(t, 1, tt.Stride(1))
	require.Equal(t, float32(5), tt.At(1, 2))
}

func TestStrided(t *testing.T) {
	// Column-major view of the same data
	data := []float32{0, 1, 2, 3, 4, 5}
	tt, err := NewStrided(data, []int{3, 2}, []int{1, 3})
	require.NoError(t, err)
	require.Equal(t, float32(4), tt.At(1, 1))
}

func TestBufferTooSmall(t *testing.T) {
	_, err := New(make([]float32, 5), []int{2, 3})
	require.ErrorIs(t, err, ErrBadShape)
}

func TestBadDimensions(t *testing.T) {
	_, err := New(make([]float32, 6), []int{2, 0})
	require.ErrorIs(t, err, ErrBadShape)

	_, err = NewStrided(make([]float32, 6), []int{2, 3}, []int{3})
	require.ErrorIs(t, err, ErrBadShape)
}

func TestExpect(t *testing.T) {
	tt, err := New(make([]float32, 6), []int{2, 3})
	require.NoError(t, err)
	require.NoError(t, tt.ExpectRank(2))
	require.ErrorIs(t, tt.ExpectRank(3), ErrBadShape)
	require.NoError(t, tt.ExpectDim(0, 2))
	require.ErrorIs(t, tt.ExpectDim(1, 5), ErrBadShape)
}
