package nms

// Package nms implements greedy non-maximum suppression for axis-aligned and
// oriented boxes. Candidates must already be filtered by confidence threshold
// before NMS, to bound the O(n²) worst case.

import (
	"sort"
)

// sortedByScore returns candidate indices ordered by descending score.
// Ties are broken by original index, so results are deterministic.
func sortedByScore(scores []float32) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	return order
}

// Boxes runs greedy NMS over parallel arrays of rectangles and scores.
// It returns the indices of the surviving boxes, highest score first.
// A box is suppressed when its IoU with an already-selected box exceeds
// iouThreshold.
func Boxes(rects []Rect, scores []float32, iouThreshold float32) []int {
	if len(rects) != len(scores) {
		panic("nms.Boxes: rects and scores must be parallel arrays")
	}
	order := sortedByScore(scores)
	suppressed := make([]bool, len(rects))
	keep := make([]int, 0, len(rects))
	for _, i := range order {
		if suppressed[i] {
			continue
		}
		keep = append(keep, i)
		for _, j := range order {
			if j == i || suppressed[j] {
				continue
			}
			if rects[i].IOU(rects[j]) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return keep
}
