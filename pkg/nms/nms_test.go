package nms

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRectIOU(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 5, Y: 0, Width: 10, Height: 10}
	require.InDelta(t, 50.0/150.0, a.IOU(b), 1e-6)
	require.InDelta(t, a.IOU(b), b.IOU(a), 1e-6)

	c := Rect{X: 100, Y: 100, Width: 5, Height: 5}
	require.Equal(t, float32(0), a.IOU(c))
	require.Equal(t, float32(1), a.IOU(a))
}

func TestBoxesSuppression(t *testing.T) {
	// Two identical unit boxes. The higher score must win.
	rects := []Rect{
		{X: 0, Y: 0, Width: 1, Height: 1},
		{X: 0, Y: 0, Width: 1, Height: 1},
	}
	scores := []float32{0.9, 0.8}
	keep := Boxes(rects, scores, 0.5)
	require.Equal(t, []int{0}, keep)

	// Same thing with the winner listed second
	scores = []float32{0.8, 0.9}
	keep = Boxes(rects, scores, 0.5)
	require.Equal(t, []int{1}, keep)
}

func TestBoxesNonOverlapping(t *testing.T) {
	rects := []Rect{}
	scores := []float32{}
	for i := 0; i < 20; i++ {
		rects = append(rects, Rect{X: float32(i * 10), Y: 0, Width: 5, Height: 5})
		scores = append(scores, float32(i)/20)
	}
	keep := Boxes(rects, scores, 0.5)
	require.Len(t, keep, 20)
	// Highest score first
	require.Equal(t, 19, keep[0])
}

func TestBoxesIdempotent(t *testing.T) {
	rects := []Rect{
		{X: 0, Y: 0, Width: 10, Height: 10},
		{X: 1, Y: 1, Width: 10, Height: 10},
		{X: 2, Y: 0, Width: 10, Height: 10},
		{X: 50, Y: 50, Width: 10, Height: 10},
		{X: 51, Y: 50, Width: 10, Height: 10},
	}
	scores := []float32{0.9, 0.8, 0.7, 0.6, 0.65}
	first := Boxes(rects, scores, 0.5)

	// Run NMS again on the surviving set. The selection must not change.
	rects2 := make([]Rect, 0, len(first))
	scores2 := make([]float32, 0, len(first))
	for _, i := range first {
		rects2 = append(rects2, rects[i])
		scores2 = append(scores2, scores[i])
	}
	second := Boxes(rects2, scores2, 0.5)
	require.Len(t, second, len(first))
	for i := range second {
		require.Equal(t, i, second[i])
	}
}

func TestBoxesTieBreak(t *testing.T) {
	// Equal scores: original candidate index wins, deterministically
	rects := []Rect{
		{X: 0, Y: 0, Width: 1, Height: 1},
		{X: 0, Y: 0, Width: 1, Height: 1},
	}
	scores := []float32{0.7, 0.7}
	keep := Boxes(rects, scores, 0.5)
	require.Equal(t, []int{0}, keep)
}

func TestOrientedBoxPolygon(t *testing.T) {
	b := OrientedBox{CX: 0, CY: 0, Width: 4, Height: 2, Angle: 0}
	poly := b.Polygon()
	require.InDelta(t, 2, poly[0].X, 1e-5)
	require.InDelta(t, 1, poly[0].Y, 1e-5)

	aabb := b.AABB()
	require.InDelta(t, -2, aabb.X, 1e-5)
	require.InDelta(t, -1, aabb.Y, 1e-5)
	require.InDelta(t, 4, aabb.Width, 1e-5)
	require.InDelta(t, 2, aabb.Height, 1e-5)

	// 90 degrees swaps width and height
	b.Angle = math.Pi / 2
	aabb = b.AABB()
	require.InDelta(t, 2, aabb.Width, 1e-4)
	require.InDelta(t, 4, aabb.Height, 1e-4)
}

func TestOrientedIOUExact(t *testing.T) {
	// Rotating an axis-symmetric rectangle by 180 degrees is a no-op,
	// so the IoU with its unrotated twin must be exactly 1.
	a := OrientedBox{CX: 0, CY: 0, Width: 2, Height: 2, Angle: 0}
	b := OrientedBox{CX: 0, CY: 0, Width: 2, Height: 2, Angle: math.Pi}
	require.InDelta(t, 1.0, a.IOU(b), 1e-3)

	// Disjoint boxes
	c := OrientedBox{CX: 100, CY: 100, Width: 2, Height: 2, Angle: 0.3}
	require.Equal(t, float32(0), a.IOU(c))

	// 45 degree rotation of a square: intersection is a regular octagon.
	// Area of the octagon for a unit square is 2*(sqrt(2)-1), so
	// IoU = octagon / (2 - octagon).
	d := OrientedBox{CX: 0, CY: 0, Width: 2, Height: 2, Angle: math.Pi / 4}
	octagon := 4 * 2 * (math.Sqrt2 - 1)
	expect := octagon / (8 - octagon)
	require.InDelta(t, expect, a.IOU(d), 1e-3)
}

func TestOrientedNMS(t *testing.T) {
	boxes := []OrientedBox{
		{CX: 10, CY: 10, Width: 4, Height: 2, Angle: 0.2},
		{CX: 10, CY: 10, Width: 4, Height: 2, Angle: 0.2},
		{CX: 50, CY: 50, Width: 4, Height: 2, Angle: 1.0},
	}
	scores := []float32{0.8, 0.9, 0.7}
	keep := Oriented(boxes, scores, 0.5)
	require.Equal(t, []int{1, 2}, keep)
}

func TestOrientedNMSDuplicatesAtHighIndices(t *testing.T) {
	// The duplicate pair sits at indices 1 and 2, away from index 0, so the
	// spatial index query must translate back to original box indices for
	// suppression to hit the right box.
	boxes := []OrientedBox{
		{CX: 100, CY: 100, Width: 4, Height: 2, Angle: 0.5},
		{CX: 10, CY: 10, Width: 4, Height: 2, Angle: 0.2},
		{CX: 10, CY: 10, Width: 4, Height: 2, Angle: 0.2},
	}
	scores := []float32{0.7, 0.9, 0.8}
	keep := Oriented(boxes, scores, 0.5)
	require.Equal(t, []int{1, 0}, keep)

	// Same property with the duplicates buried in a larger candidate set
	boxes = boxes[:0]
	scores = scores[:0]
	for i := 0; i < 10; i++ {
		boxes = append(boxes, OrientedBox{CX: float32(i * 50), CY: 0, Width: 4, Height: 4, Angle: 0.1})
		scores = append(scores, 0.5)
	}
	boxes = append(boxes, OrientedBox{CX: 450, CY: 0, Width: 4, Height: 4, Angle: 0.1})
	scores = append(scores, 0.4)
	keep = Oriented(boxes, scores, 0.5)
	require.Len(t, keep, 10)
	require.NotContains(t, keep, 10) // the low-score duplicate of box 9
}
