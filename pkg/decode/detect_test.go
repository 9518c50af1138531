package decode

import (
	"testing"

	"github.com/cyclopcam/sightline/pkg/tensor"
	"github.com/cyclopcam/sightline/pkg/vision"
	"github.com/stretchr/testify/require"
)

// rawAnchorTensor builds a [1, channels, anchors] row-major tensor.
// set(c, a, v) writes channel c of anchor a.
func rawAnchorTensor(t *testing.T, channels, anchors int) (*tensor.Tensor, func(c, a int, v float32)) {
	data := make([]float32, channels*anchors)
	tt, err := tensor.New(data, []int{1, channels, anchors})
	require.NoError(t, err)
	return tt, func(c, a int, v float32) {
		data[c*anchors+a] = v
	}
}

func TestDetectEndToEnd(t *testing.T) {
	// One row (x1=10, y1=10, x2=50, y2=50, conf=0.9, class=0) in a
	// 1 x 300 x 6 tensor. Everything else is zero, so it gets filtered.
	data := make([]float32, 300*6)
	copy(data[0:6], []float32{10, 10, 50, 50, 0.9, 0})
	tt, err := tensor.New(data, []int{1, 300, 6})
	require.NoError(t, err)

	set := NewSettings()
	set.ConfidenceThreshold = 0.25
	boxes, err := Detections(tt, set, vision.COCOClasses, 640, 640, true)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	require.Equal(t, 0, boxes[0].ClassIndex)
	require.Equal(t, "person", boxes[0].Label)
	require.InDelta(t, 0.9, boxes[0].Confidence, 1e-6)
	require.InDelta(t, 10, boxes[0].Rect.X, 1e-4)
	require.InDelta(t, 10, boxes[0].Rect.Y, 1e-4)
	require.InDelta(t, 40, boxes[0].Rect.Width, 1e-4)
	require.InDelta(t, 40, boxes[0].Rect.Height, 1e-4)
	require.InDelta(t, 10.0/640, boxes[0].NRect.X, 1e-5)
	require.InDelta(t, 40.0/640, boxes[0].NRect.Width, 1e-5)
}

func TestDetectConfidenceFilter(t *testing.T) {
	// All anchors score exactly 0.4: with a 0.5 threshold nothing survives.
	// Raising a single anchor to 0.51 yields exactly one box.
	channels, anchors := 6, 100 // 2 classes
	tt, set := rawAnchorTensor(t, channels, anchors)
	for a := 0; a < anchors; a++ {
		set(0, a, float32(a)*20+10) // cx, spread out so nothing overlaps
		set(1, a, 10)
		set(2, a, 8)
		set(3, a, 8)
		set(4, a, 0.4)
		set(5, a, 0.4)
	}

	cfg := NewSettings()
	cfg.ConfidenceThreshold = 0.5
	boxes, err := Detections(tt, cfg, nil, 4096, 4096, false)
	require.NoError(t, err)
	require.Empty(t, boxes)

	set(4, 7, 0.51)
	boxes, err = Detections(tt, cfg, nil, 4096, 4096, false)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	require.Equal(t, 0, boxes[0].ClassIndex)
	require.InDelta(t, 0.51, boxes[0].Confidence, 1e-6)
}

func TestDetectMaxDetectionsCap(t *testing.T) {
	// 500 non-overlapping high-confidence candidates with a cap of 30:
	// exactly the 30 highest-scoring must come back.
	channels, anchors := 5, 500 // 1 class
	tt, set := rawAnchorTensor(t, channels, anchors)
	for a := 0; a < anchors; a++ {
		set(0, a, float32(a%100)*15+7)
		set(1, a, float32(a/100)*15+7)
		set(2, a, 10)
		set(3, a, 10)
		set(4, a, 0.5+0.001*float32(a))
	}

	cfg := NewSettings()
	cfg.ConfidenceThreshold = 0.25
	cfg.MaxDetections = 30
	boxes, err := Detections(tt, cfg, nil, 4096, 4096, false)
	require.NoError(t, err)
	require.Len(t, boxes, 30)
	// Descending by score, and all from the top 30 anchors (470..499)
	minKept := 0.5 + 0.001*float32(anchors-30)
	for i, b := range boxes {
		require.GreaterOrEqual(t, b.Confidence+1e-5, minKept)
		if i > 0 {
			require.LessOrEqual(t, b.Confidence, boxes[i-1].Confidence)
		}
	}
}

func TestDetectNMS(t *testing.T) {
	// Two near-identical boxes: the higher score wins.
	tt, set := rawAnchorTensor(t, 5, 2)
	for a := 0; a < 2; a++ {
		set(0, a, 100)
		set(1, a, 100)
		set(2, a, 40)
		set(3, a, 40)
	}
	set(4, 0, 0.8)
	set(4, 1, 0.9)

	cfg := NewSettings()
	boxes, err := Detections(tt, cfg, nil, 640, 640, false)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	require.InDelta(t, 0.9, boxes[0].Confidence, 1e-6)
}

func TestSettingsZeroMeansDefault(t *testing.T) {
	// A zero field is "use the default", so a zero-value Settings behaves
	// like NewSettings(): the 0.2 candidate falls below the default 0.25.
	tt, set := rawAnchorTensor(t, 5, 2)
	set(0, 0, 100)
	set(1, 0, 100)
	set(2, 0, 40)
	set(3, 0, 40)
	set(4, 0, 0.2)
	set(0, 1, 300)
	set(1, 1, 300)
	set(2, 1, 40)
	set(3, 1, 40)
	set(4, 1, 0.3)

	boxes, err := Detections(tt, Settings{}, nil, 640, 640, false)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	require.InDelta(t, 0.3, boxes[0].Confidence, 1e-6)

	// A tiny positive threshold accepts everything
	eager := Settings{ConfidenceThreshold: 1e-6}
	boxes, err = Detections(tt, eager, nil, 640, 640, false)
	require.NoError(t, err)
	require.Len(t, boxes, 2)
}

func TestDetectBadShape(t *testing.T) {
	tt, err := tensor.New(make([]float32, 10), []int{2, 5})
	require.NoError(t, err)
	_, err = Detections(tt, NewSettings(), nil, 640, 640, false)
	require.ErrorIs(t, err, tensor.ErrBadShape)

	// End-to-end rows must have at least 5 values
	tt, err = tensor.New(make([]float32, 4*10), []int{1, 10, 4})
	require.NoError(t, err)
	_, err = Detections(tt, NewSettings(), nil, 640, 640, true)
	require.ErrorIs(t, err, tensor.ErrBadShape)
}
