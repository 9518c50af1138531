package decode

import (
	"fmt"
	"sort"

	"github.com/cyclopcam/sightline/pkg/nms"
	"github.com/cyclopcam/sightline/pkg/tensor"
	"github.com/cyclopcam/sightline/pkg/vision"
)

// boxCandidate is one anchor that survived the confidence filter.
type boxCandidate struct {
	anchor int
	class  int
	score  float32
	rect   nms.Rect
}

// Detections decodes a detector output tensor.
//
// Two tensor conventions exist, selected by endToEnd (derived from model
// metadata at Predictor construction, never re-derived per call):
//
//   - End-to-end: [1, maxDetections, >=5], each row (x1,y1,x2,y2,conf[,class])
//     in pixel space relative to the model input. Confidence filter only, the
//     model has already done its own suppression.
//   - Raw anchor grid: [1, 4+numClasses, numAnchors] in (cx,cy,w,h,classScores...)
//     layout. Per-anchor max class score, confidence filter, then NMS.
func Detections(t *tensor.Tensor, settings Settings, labels []string, inputW, inputH int, endToEnd bool) ([]vision.Box, error) {
	set := settings.sanitized()
	if err := t.ExpectRank(3); err != nil {
		return nil, err
	}
	if err := t.ExpectDim(0, 1); err != nil {
		return nil, err
	}
	if endToEnd {
		return decodeEndToEnd(t, set, labels, inputW, inputH)
	}
	return decodeRawAnchors(t, set, labels, inputW, inputH)
}

func decodeEndToEnd(t *tensor.Tensor, set Settings, labels []string, inputW, inputH int) ([]vision.Box, error) {
	rows := t.Dim(1)
	cols := t.Dim(2)
	if cols < 5 {
		return nil, fmt.Errorf("%w: end-to-end detection tensor has %v values per row, need at least 5", tensor.ErrBadShape, cols)
	}
	data := t.Data()
	rowStride := t.Stride(1)
	colStride := t.Stride(2)

	cands := []boxCandidate{}
	for i := 0; i < rows; i++ {
		base := i * rowStride
		conf := data[base+4*colStride]
		if conf < set.ConfidenceThreshold {
			continue
		}
		x1 := data[base]
		y1 := data[base+colStride]
		x2 := data[base+2*colStride]
		y2 := data[base+3*colStride]
		class := 0
		if cols >= 6 {
			class = int(data[base+5*colStride])
		}
		cands = append(cands, boxCandidate{
			anchor: i,
			class:  class,
			score:  conf,
			rect:   nms.Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1},
		})
	}
	sort.SliceStable(cands, func(a, b int) bool {
		return cands[a].score > cands[b].score
	})
	if len(cands) > set.MaxDetections {
		cands = cands[:set.MaxDetections]
	}
	boxes := make([]vision.Box, 0, len(cands))
	for _, c := range cands {
		boxes = append(boxes, makeBox(c.class, c.score, c.rect, labels, inputW, inputH))
	}
	return boxes, nil
}

func decodeRawAnchors(t *tensor.Tensor, set Settings, labels []string, inputW, inputH int) ([]vision.Box, error) {
	channels := t.Dim(1)
	numClasses := channels - 4
	if numClasses < 1 {
		return nil, fmt.Errorf("%w: raw detection tensor has %v channels, need at least 5", tensor.ErrBadShape, channels)
	}
	cands := scanBoxCandidates(t, set.ConfidenceThreshold, numClasses)
	keep := suppressAndCap(cands, set)
	boxes := make([]vision.Box, 0, len(keep))
	for _, i := range keep {
		c := cands[i]
		boxes = append(boxes, makeBox(c.class, c.score, c.rect, labels, inputW, inputH))
	}
	return boxes, nil
}

// scanBoxCandidates runs the confidence filter over a raw anchor grid with
// (cx,cy,w,h,classScores...) channel layout, in parallel.
func scanBoxCandidates(t *tensor.Tensor, confidenceThreshold float32, numClasses int) []boxCandidate {
	data := t.Data()
	chanStride := t.Stride(1)
	anchorStride := t.Stride(2)
	numAnchors := t.Dim(2)

	return parallelScan(numAnchors, func(start, end int, out *[]boxCandidate) {
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
			if bestScore < confidenceThreshold {
				continue
			}
			cx := data[base]
			cy := data[base+chanStride]
			w := data[base+2*chanStride]
			h := data[base+3*chanStride]
			*out = append(*out, boxCandidate{
				anchor: a,
				class:  bestClass,
				score:  bestScore,
				rect:   nms.RectFromCenter(cx, cy, w, h),
			})
		}
	})
}

// suppressAndCap runs global NMS and applies the max-detections cap.
// The returned indices are ordered highest score first.
func suppressAndCap(cands []boxCandidate, set Settings) []int {
	rects := make([]nms.Rect, len(cands))
	scores := make([]float32, len(cands))
	for i, c := range cands {
		rects[i] = c.rect
		scores[i] = c.score
	}
	keep := nms.Boxes(rects, scores, set.IOUThreshold)
	if len(keep) > set.MaxDetections {
		keep = keep[:set.MaxDetections]
	}
	return keep
}
