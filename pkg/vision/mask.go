package vision

import (
	"github.com/bmharper/cimg/v2"
)

// MaskThreshold is the probability at which a mask pixel counts as "on" when
// rendering the combined image.
const MaskThreshold = 0.5

// SegmentationMask holds the per-instance soft masks plus one pre-rendered
// combined image. Built once per inference call; immutable afterward.
type SegmentationMask struct {
	// Instances are soft probability grids (post-sigmoid, pre-threshold),
	// one Height*Width row-major grid per surviving detection, in the same
	// order as the Boxes of the Result.
	Instances [][]float32 `json:"-"`
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	// Combined is an RGBA render of all instances, colored by class, so the
	// UI layer doesn't need to re-decode anything.
	Combined *cimg.Image `json:"-"`
}

// Binarize thresholds one instance's probability grid. A higher threshold can
// only shrink the set of on pixels, never grow it.
func (m *SegmentationMask) Binarize(instance int, threshold float32) []bool {
	grid := m.Instances[instance]
	on := make([]bool, len(grid))
	for i, p := range grid {
		on[i] = p > threshold
	}
	return on
}

// Palette is the fixed 20-color mask palette, indexed by classIndex mod 20.
// RGB triples; matches the color wheel the original app family uses.
var Palette = [20][3]uint8{
	{4, 42, 255},
	{11, 219, 235},
	{243, 243, 243},
	{0, 223, 183},
	{17, 31, 104},
	{255, 111, 221},
	{255, 68, 79},
	{204, 237, 0},
	{0, 243, 68},
	{189, 0, 255},
	{0, 180, 255},
	{221, 0, 186},
	{0, 255, 255},
	{38, 192, 0},
	{1, 255, 179},
	{125, 36, 255},
	{123, 0, 104},
	{255, 27, 108},
	{252, 109, 47},
	{162, 255, 11},
}

// ClassColor returns the palette color for a class index.
func ClassColor(classIndex int) [3]uint8 {
	return Palette[((classIndex%20)+20)%20]
}
