package nms

import (
	"github.com/chewxy/math32"
)

type Point struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

func (p Point) Distance(b Point) float32 {
	return math32.Sqrt((p.X-b.X)*(p.X-b.X) + (p.Y-b.Y)*(p.Y-b.Y))
}

// Rect is an axis-aligned box. Origin is top-left, in pixel space.
type Rect struct {
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

func RectFromCenter(cx, cy, w, h float32) Rect {
	return Rect{X: cx - w/2, Y: cy - h/2, Width: w, Height: h}
}

func (r Rect) X2() float32 {
	return r.X + r.Width
}

func (r Rect) Y2() float32 {
	return r.Y + r.Height
}

func (r Rect) Area() float32 {
	return r.Width * r.Height
}

func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

func (r Rect) Intersection(b Rect) Rect {
	x1 := max(r.X, b.X)
	y1 := max(r.Y, b.Y)
	x2 := min(r.X2(), b.X2())
	y2 := min(r.Y2(), b.Y2())
	return Rect{
		X:      x1,
		Y:      y1,
		Width:  max(0, x2-x1),
		Height: max(0, y2-y1),
	}
}

func (r Rect) Union(b Rect) Rect {
	x1 := min(r.X, b.X)
	y1 := min(r.Y, b.Y)
	x2 := max(r.X2(), b.X2())
	y2 := max(r.Y2(), b.Y2())
	return Rect{
		X:      x1,
		Y:      y1,
		Width:  x2 - x1,
		Height: y2 - y1,
	}
}

func (r Rect) Overlaps(b Rect) bool {
	return r.X < b.X2() && b.X < r.X2() && r.Y < b.Y2() && b.Y < r.Y2()
}

// Intersection over Union
func (r Rect) IOU(b Rect) float32 {
	intersection := r.Intersection(b).Area()
	union := r.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}
