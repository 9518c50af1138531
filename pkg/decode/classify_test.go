package decode

import (
	"testing"

	"github.com/cyclopcam/sightline/pkg/tensor"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	labels := []string{"cat", "dog", "bird", "fish", "horse", "cow"}
	probs := []float32{0.05, 0.6, 0.1, 0.02, 0.2, 0.03}
	tt, err := tensor.New(probs, []int{1, 6})
	require.NoError(t, err)

	result, err := Classify(tt, labels)
	require.NoError(t, err)
	require.Equal(t, "dog", result.Top1)
	require.Equal(t, 1, result.Top1Index)
	require.InDelta(t, 0.6, result.Top1Confidence, 1e-6)
	require.Equal(t, []string{"dog", "horse", "bird", "cat", "cow"}, result.Top5)
	require.Len(t, result.Top5Confidence, 5)
	for i := 1; i < len(result.Top5Confidence); i++ {
		require.LessOrEqual(t, result.Top5Confidence[i], result.Top5Confidence[i-1])
	}
}

func TestClassifyRank1(t *testing.T) {
	tt, err := tensor.New([]float32{0.1, 0.9, 0.3}, []int{3})
	require.NoError(t, err)
	result, err := Classify(tt, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Equal(t, "b", result.Top1)
	require.Len(t, result.Top5, 3) // fewer classes than 5
}

func TestClassifyBadShape(t *testing.T) {
	tt, err := tensor.New(make([]float32, 8), []int{2, 2, 2})
	require.NoError(t, err)
	_, err = Classify(tt, nil)
	require.ErrorIs(t, err, tensor.ErrBadShape)
}
