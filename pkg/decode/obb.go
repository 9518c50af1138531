package decode

import (
	"fmt"

	"github.com/cyclopcam/sightline/pkg/nms"
	"github.com/cyclopcam/sightline/pkg/tensor"
	"github.com/cyclopcam/sightline/pkg/vision"
)

type obbCandidate struct {
	class int
	score float32
	box   nms.OrientedBox
}

// OrientedDetections decodes a raw anchor grid of shape
// [1, 4+numClasses+1, numAnchors]: box channels, class scores, and one
// trailing angle channel (radians). Suppression uses the oriented NMS
// variant with exact polygon IoU.
func OrientedDetections(t *tensor.Tensor, settings Settings, labels []string, inputW, inputH int) ([]vision.OrientedDetection, error) {
	set := settings.sanitized()
	if err := t.ExpectRank(3); err != nil {
		return nil, err
	}
	if err := t.ExpectDim(0, 1); err != nil {
		return nil, err
	}
	channels := t.Dim(1)
	numClasses := channels - 5
	if numClasses < 1 {
		return nil, fmt.Errorf("%w: oriented box tensor has %v channels, need at least 6", tensor.ErrBadShape, channels)
	}

	data := t.Data()
	chanStride := t.Stride(1)
	anchorStride := t.Stride(2)
	angleChannel := 4 + numClasses

	cands := parallelScan(t.Dim(2), func(start, end int, out *[]obbCandidate) {
		for a := start; a < end; a++ {
			base := a * anchorStride
			bestScore := float32(0)
			bestClass := 0
			for c := 0; c < numClasses; c++ {
				if v := data[base+(4+c)*chanStride]; v > bestScore {
					bestScore = v
					bestClass = c
				}
			}
			if bestScore < set.ConfidenceThreshold {
				continue
			}
			*out = append(*out, obbCandidate{
				class: bestClass,
				score: bestScore,
				box: nms.OrientedBox{
					CX:     data[base],
					CY:     data[base+chanStride],
					Width:  data[base+2*chanStride],
					Height: data[base+3*chanStride],
					Angle:  data[base+angleChannel*chanStride],
				},
			})
		}
	})

	boxes := make([]nms.OrientedBox, len(cands))
	scores := make([]float32, len(cands))
	for i, c := range cands {
		boxes[i] = c.box
		scores[i] = c.score
	}
	keep := nms.Oriented(boxes, scores, set.IOUThreshold)
	if len(keep) > set.MaxDetections {
		keep = keep[:set.MaxDetections]
	}

	result := make([]vision.OrientedDetection, 0, len(keep))
	for _, i := range keep {
		c := cands[i]
		result = append(result, vision.OrientedDetection{
			ClassIndex: c.class,
			Label:      vision.LabelFor(labels, c.class),
			Confidence: c.score,
			Box:        c.box,
		})
	}
	return result, nil
}
