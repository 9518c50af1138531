package decode

import (
	"fmt"
	"sort"

	"github.com/cyclopcam/sightline/pkg/tensor"
	"github.com/cyclopcam/sightline/pkg/vision"
)

// Classify decodes a 1-D class probability vector into top-1 and top-5.
// Accepts shape [numClasses] or [1, numClasses].
func Classify(t *tensor.Tensor, labels []string) (*vision.ClassProbabilities, error) {
	var probs []float32
	switch t.Rank() {
	case 1:
		probs = rowVector(t, 0, t.Dim(0), t.Stride(0))
	case 2:
		if err := t.ExpectDim(0, 1); err != nil {
			return nil, err
		}
		probs = rowVector(t, 0, t.Dim(1), t.Stride(1))
	default:
		return nil, fmt.Errorf("%w: classification tensor has rank %v, expected 1 or 2", tensor.ErrBadShape, t.Rank())
	}
	if len(probs) == 0 {
		return nil, fmt.Errorf("%w: empty classification tensor", tensor.ErrBadShape)
	}

	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return probs[order[a]] > probs[order[b]]
	})

	topN := min(5, len(order))
	result := &vision.ClassProbabilities{
		Top1:           vision.LabelFor(labels, order[0]),
		Top1Index:      order[0],
		Top1Confidence: probs[order[0]],
		Top5:           make([]string, 0, topN),
		Top5Confidence: make([]float32, 0, topN),
	}
	for _, i := range order[:topN] {
		result.Top5 = append(result.Top5, vision.LabelFor(labels, i))
		result.Top5Confidence = append(result.Top5Confidence, probs[i])
	}
	return result, nil
}

func rowVector(t *tensor.Tensor, base, n, stride int) []float32 {
	data := t.Data()
	if stride == 1 {
		return data[base : base+n]
	}
	row := make([]float32, n)
	for i := 0; i < n; i++ {
		row[i] = data[base+i*stride]
	}
	return row
}
