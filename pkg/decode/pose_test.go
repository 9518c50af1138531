package decode

import (
	"testing"

	"github.com/cyclopcam/sightline/pkg/tensor"
	"github.com/cyclopcam/sightline/pkg/vision"
	"github.com/stretchr/testify/require"
)

func TestPose(t *testing.T) {
	tt, set := rawAnchorTensor(t, poseChannels, 3)
	// Anchor 0: a confident person at (100,100) 40x80
	set(0, 0, 100)
	set(1, 0, 100)
	set(2, 0, 40)
	set(3, 0, 80)
	set(4, 0, 0.9)
	for k := 0; k < vision.NumKeypoints; k++ {
		set(5+3*k, 0, float32(90+k))
		set(5+3*k+1, 0, float32(70+k))
		set(5+3*k+2, 0, 0.8)
	}
	// Anchor 1: same person, lower confidence, suppressed by NMS
	set(0, 1, 101)
	set(1, 1, 100)
	set(2, 1, 40)
	set(3, 1, 80)
	set(4, 1, 0.6)
	// Anchor 2: below threshold
	set(4, 2, 0.1)

	boxes, keypoints, err := Pose(tt, NewSettings(), []string{"person"}, 640, 640)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	require.Len(t, keypoints, 1)
	require.Equal(t, "person", boxes[0].Label)
	require.InDelta(t, 0.9, boxes[0].Confidence, 1e-6)
	require.InDelta(t, 80, boxes[0].Rect.X, 1e-4)
	require.InDelta(t, 60, boxes[0].Rect.Y, 1e-4)

	kp := keypoints[0]
	require.Len(t, kp.XY, vision.NumKeypoints)
	require.InDelta(t, 93, kp.XY[3].X, 1e-4)
	require.InDelta(t, 73, kp.XY[3].Y, 1e-4)
	require.InDelta(t, 93.0/640, kp.XYN[3].X, 1e-5)
	require.InDelta(t, 0.8, kp.Conf[3], 1e-6)
}

func TestPoseBadShape(t *testing.T) {
	tt, err := tensor.New(make([]float32, 40*10), []int{1, 40, 10})
	require.NoError(t, err)
	_, _, err = Pose(tt, NewSettings(), nil, 640, 640)
	require.ErrorIs(t, err, tensor.ErrBadShape)
}
