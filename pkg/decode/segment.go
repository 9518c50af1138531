package decode

import (
	"fmt"
	"sort"

	"github.com/cyclopcam/sightline/pkg/nms"
	"github.com/cyclopcam/sightline/pkg/tensor"
	"github.com/cyclopcam/sightline/pkg/vision"
)

// MaskCoefficients is the number of mask coefficient channels per anchor,
// matching the prototype channel count.
const MaskCoefficients = 32

// Segmentation decodes a raw anchor grid extended with mask coefficients:
// [1, 4+numClasses+32, numAnchors], plus a prototype tensor [1, 32, mh, mw].
//
// NMS runs per class bucket, not globally, so one class's box never
// suppresses another's. Surviving (box, class, coefficients) tuples are
// handed to the mask synthesizer. With no survivors, the mask is nil.
func Segmentation(det, protos *tensor.Tensor, settings Settings, labels []string, inputW, inputH int) ([]vision.Box, *vision.SegmentationMask, error) {
	set := settings.sanitized()
	if err := det.ExpectRank(3); err != nil {
		return nil, nil, err
	}
	if err := det.ExpectDim(0, 1); err != nil {
		return nil, nil, err
	}
	channels := det.Dim(1)
	numClasses := channels - 4 - MaskCoefficients
	if numClasses < 1 {
		return nil, nil, fmt.Errorf("%w: segmentation tensor has %v channels, need at least %v", tensor.ErrBadShape, channels, 4+MaskCoefficients+1)
	}

	cands := scanBoxCandidates(det, set.ConfidenceThreshold, numClasses)
	survivors := suppressPerClass(cands, set)

	if len(survivors) == 0 {
		return []vision.Box{}, nil, nil
	}

	data := det.Data()
	chanStride := det.Stride(1)
	anchorStride := det.Stride(2)

	boxes := make([]vision.Box, 0, len(survivors))
	instances := make([]maskInstance, 0, len(survivors))
	for _, i := range survivors {
		c := cands[i]
		box := makeBox(c.class, c.score, c.rect, labels, inputW, inputH)
		boxes = append(boxes, box)

		coeff := make([]float32, MaskCoefficients)
		base := c.anchor * anchorStride
		for k := 0; k < MaskCoefficients; k++ {
			coeff[k] = data[base+(4+numClasses+k)*chanStride]
		}
		instances = append(instances, maskInstance{
			rect:  box.Rect,
			class: c.class,
			score: c.score,
			coeff: coeff,
		})
	}

	mask, err := synthesizeMasks(protos, instances, inputW, inputH)
	if err != nil {
		return nil, nil, err
	}
	return boxes, mask, nil
}

// suppressPerClass runs NMS within each class bucket, then merges the
// survivors, orders them by descending score, and applies the cap.
func suppressPerClass(cands []boxCandidate, set Settings) []int {
	byClass := map[int][]int{}
	for i, c := range cands {
		byClass[c.class] = append(byClass[c.class], i)
	}
	classes := make([]int, 0, len(byClass))
	for class := range byClass {
		classes = append(classes, class)
	}
	sort.Ints(classes) // deterministic iteration

	survivors := []int{}
	for _, class := range classes {
		bucket := byClass[class]
		rects := make([]nms.Rect, len(bucket))
		scores := make([]float32, len(bucket))
		for j, i := range bucket {
			rects[j] = cands[i].rect
			scores[j] = cands[i].score
		}
		for _, j := range nms.Boxes(rects, scores, set.IOUThreshold) {
			survivors = append(survivors, bucket[j])
		}
	}

	sort.SliceStable(survivors, func(a, b int) bool {
		return cands[survivors[a]].score > cands[survivors[b]].score
	})
	if len(survivors) > set.MaxDetections {
		survivors = survivors[:set.MaxDetections]
	}
	return survivors
}
