package decode

import (
	"fmt"

	"github.com/cyclopcam/sightline/pkg/gen"
	"github.com/cyclopcam/sightline/pkg/nms"
	"github.com/cyclopcam/sightline/pkg/tensor"
	"github.com/cyclopcam/sightline/pkg/vision"
)

// poseChannels: person box (4) + confidence (1) + 17 joints of (x,y,conf).
const poseChannels = 4 + 1 + 3*vision.NumKeypoints

// Pose decodes a raw anchor grid of shape [1, 56, numAnchors]: one person
// confidence channel plus per-joint (x,y,confidence) channels. NMS runs on
// the derived person box; keypoints of the survivors are returned in both
// pixel and normalized space.
func Pose(t *tensor.Tensor, settings Settings, labels []string, inputW, inputH int) ([]vision.Box, []vision.Keypoints, error) {
	set := settings.sanitized()
	if err := t.ExpectRank(3); err != nil {
		return nil, nil, err
	}
	if err := t.ExpectDim(0, 1); err != nil {
		return nil, nil, err
	}
	if t.Dim(1) != poseChannels {
		return nil, nil, fmt.Errorf("%w: pose tensor has %v channels, expected %v", tensor.ErrBadShape, t.Dim(1), poseChannels)
	}

	data := t.Data()
	chanStride := t.Stride(1)
	anchorStride := t.Stride(2)

	cands := parallelScan(t.Dim(2), func(start, end int, out *[]boxCandidate) {
		for a := start; a < end; a++ {
			base := a * anchorStride
			score := data[base+4*chanStride]
			if score < set.ConfidenceThreshold {
				continue
			}
			cx := data[base]
			cy := data[base+chanStride]
			w := data[base+2*chanStride]
			h := data[base+3*chanStride]
			*out = append(*out, boxCandidate{
				anchor: a,
				score:  score,
				rect:   nms.RectFromCenter(cx, cy, w, h),
			})
		}
	})

	keep := suppressAndCap(cands, set)
	boxes := make([]vision.Box, 0, len(keep))
	keypoints := make([]vision.Keypoints, 0, len(keep))
	for _, i := range keep {
		c := cands[i]
		boxes = append(boxes, makeBox(0, c.score, c.rect, labels, inputW, inputH))

		kp := vision.Keypoints{
			XYN:  make([]nms.Point, vision.NumKeypoints),
			XY:   make([]nms.Point, vision.NumKeypoints),
			Conf: make([]float32, vision.NumKeypoints),
		}
		base := c.anchor * anchorStride
		for k := 0; k < vision.NumKeypoints; k++ {
			x := data[base+(5+3*k)*chanStride]
			y := data[base+(5+3*k+1)*chanStride]
			kp.XY[k] = nms.Point{X: x, Y: y}
			kp.XYN[k] = nms.Point{
				X: gen.Clamp(x/float32(inputW), 0, 1),
				Y: gen.Clamp(y/float32(inputH), 0, 1),
			}
			kp.Conf[k] = data[base+(5+3*k+2)*chanStride]
		}
		keypoints = append(keypoints, kp)
	}
	return boxes, keypoints, nil
}
