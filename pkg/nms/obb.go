package nms

import (
	flatbush "github.com/bmharper/flatbush-go"
	"github.com/chewxy/math32"
)

// OrientedBox is a rotated rectangle: center, size, and the counter-clockwise
// rotation (radians) of the box's local frame.
type OrientedBox struct {
	CX     float32 `json:"cx"`
	CY     float32 `json:"cy"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
	Angle  float32 `json:"angle"`
}

// Polygon returns the box's 4 corners, in consistent winding order.
func (b OrientedBox) Polygon() [4]Point {
	c := math32.Cos(b.Angle)
	s := math32.Sin(b.Angle)
	hw := b.Width / 2
	hh := b.Height / 2
	rot := func(dx, dy float32) Point {
		return Point{
			X: b.CX + dx*c - dy*s,
			Y: b.CY + dx*s + dy*c,
		}
	}
	return [4]Point{
		rot(hw, hh),
		rot(-hw, hh),
		rot(-hw, -hh),
		rot(hw, -hh),
	}
}

// AABB returns the axis-aligned bounding box of the rotated rectangle.
func (b OrientedBox) AABB() Rect {
	poly := b.Polygon()
	x1, y1 := poly[0].X, poly[0].Y
	x2, y2 := x1, y1
	for _, p := range poly[1:] {
		x1 = min(x1, p.X)
		y1 = min(y1, p.Y)
		x2 = max(x2, p.X)
		y2 = max(y2, p.Y)
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

func (b OrientedBox) Area() float32 {
	return b.Width * b.Height
}

// IOU computes the exact polygon intersection over union of two rotated boxes.
func (b OrientedBox) IOU(o OrientedBox) float32 {
	pa := b.Polygon()
	pb := o.Polygon()
	intersection := polygonIntersectionArea(pa[:], pb[:])
	union := b.Area() + o.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// signedArea is the shoelace formula. The sign encodes winding direction.
func signedArea(poly []Point) float32 {
	area := float32(0)
	for i := 0; i < len(poly); i++ {
		j := (i + 1) % len(poly)
		area += poly[i].X*poly[j].Y - poly[j].X*poly[i].Y
	}
	return area / 2
}

// clipEdge clips the subject polygon against the half-plane on the inner side
// of edge a->b. ori is the winding sign of the clip polygon, so the test works
// regardless of whether the polygon winds clockwise in image coordinates.
func clipEdge(subject []Point, a, b Point, ori float32) []Point {
	out := make([]Point, 0, len(subject)+4)
	inside := func(p Point) bool {
		return ori*((b.X-a.X)*(p.Y-a.Y)-(b.Y-a.Y)*(p.X-a.X)) >= 0
	}
	intersect := func(p, q Point) Point {
		// Line a->b intersected with segment p->q
		a1 := b.Y - a.Y
		b1 := a.X - b.X
		c1 := a1*a.X + b1*a.Y
		a2 := q.Y - p.Y
		b2 := p.X - q.X
		c2 := a2*p.X + b2*p.Y
		det := a1*b2 - a2*b1
		if det == 0 {
			return p
		}
		return Point{
			X: (b2*c1 - b1*c2) / det,
			Y: (a1*c2 - a2*c1) / det,
		}
	}
	for i := 0; i < len(subject); i++ {
		cur := subject[i]
		prev := subject[(i+len(subject)-1)%len(subject)]
		curIn := inside(cur)
		prevIn := inside(prev)
		if curIn {
			if !prevIn {
				out = append(out, intersect(prev, cur))
			}
			out = append(out, cur)
		} else if prevIn {
			out = append(out, intersect(prev, cur))
		}
	}
	return out
}

// polygonIntersectionArea clips b against every edge of a (Sutherland-Hodgman)
// and returns the area of what remains.
func polygonIntersectionArea(a, b []Point) float32 {
	ori := float32(1)
	if signedArea(a) < 0 {
		ori = -1
	}
	poly := b
	for i := 0; i < len(a); i++ {
		poly = clipEdge(poly, a[i], a[(i+1)%len(a)], ori)
		if len(poly) == 0 {
			return 0
		}
	}
	return math32.Abs(signedArea(poly))
}

// Oriented runs greedy NMS over rotated boxes. A spatial index over the
// candidates' axis-aligned bounds skips unrelated pairs, so the exact polygon
// IoU only runs for boxes whose AABBs overlap.
// Returns the indices of the surviving boxes, highest score first.
func Oriented(boxes []OrientedBox, scores []float32, iouThreshold float32) []int {
	if len(boxes) != len(scores) {
		panic("nms.Oriented: boxes and scores must be parallel arrays")
	}
	aabbs := make([]Rect, len(boxes))
	fb := flatbush.NewFlatbush[float32]()
	fb.Reserve(len(boxes))
	for i, b := range boxes {
		aabbs[i] = b.AABB()
		fb.Add(aabbs[i].X, aabbs[i].Y, aabbs[i].X2(), aabbs[i].Y2())
	}
	fb.Finish()

	order := sortedByScore(scores)
	suppressed := make([]bool, len(boxes))
	selected := make([]bool, len(boxes))
	keep := make([]int, 0, len(boxes))
	for _, i := range order {
		if suppressed[i] {
			continue
		}
		keep = append(keep, i)
		selected[i] = true
		for _, j := range fb.Search(aabbs[i].X, aabbs[i].Y, aabbs[i].X2(), aabbs[i].Y2()) {
			if j == i || suppressed[j] || selected[j] {
				continue
			}
			if boxes[i].IOU(boxes[j]) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return keep
}
