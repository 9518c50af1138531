package decode

import (
	"fmt"
	"sort"

	"github.com/bmharper/cimg/v2"
	"github.com/chewxy/math32"
	"github.com/cyclopcam/sightline/pkg/gen"
	"github.com/cyclopcam/sightline/pkg/nms"
	"github.com/cyclopcam/sightline/pkg/tensor"
	"github.com/cyclopcam/sightline/pkg/vision"
)

// maskInstance is one surviving detection waiting for mask synthesis.
type maskInstance struct {
	rect  nms.Rect // pixel space, model input coordinates
	class int
	score float32
	coeff []float32 // MaskCoefficients values
}

// synthesizeMasks multiplies the N x 32 coefficient matrix against the
// flattened prototype channels [32, mh*mw] in a single pass, producing one
// soft probability grid per instance, then renders the combined RGBA image.
func synthesizeMasks(protos *tensor.Tensor, instances []maskInstance, inputW, inputH int) (*vision.SegmentationMask, error) {
	if err := protos.ExpectRank(4); err != nil {
		return nil, err
	}
	if err := protos.ExpectDim(0, 1); err != nil {
		return nil, err
	}
	if err := protos.ExpectDim(1, MaskCoefficients); err != nil {
		return nil, err
	}
	mh := protos.Dim(2)
	mw := protos.Dim(3)
	hw := mh * mw
	flat, err := flattenProtos(protos, mh, mw)
	if err != nil {
		return nil, err
	}

	// One matrix multiply: raw = coeff (N x 32) * flat (32 x hw)
	raw := make([]float32, len(instances)*hw)
	for i, inst := range instances {
		row := raw[i*hw : (i+1)*hw]
		for k := 0; k < MaskCoefficients; k++ {
			c := inst.coeff[k]
			if c == 0 {
				continue
			}
			proto := flat[k*hw : (k+1)*hw]
			for j, p := range proto {
				row[j] += c * p
			}
		}
		for j := range row {
			row[j] = sigmoid(row[j])
		}
	}

	grids := make([][]float32, len(instances))
	for i := range instances {
		grids[i] = raw[i*hw : (i+1)*hw : (i+1)*hw]
	}

	return &vision.SegmentationMask{
		Instances: grids,
		Width:     mw,
		Height:    mh,
		Combined:  renderCombined(grids, instances, mw, mh, inputW, inputH),
	}, nil
}

// renderCombined composites all instances into one RGBA image. Instances are
// painted in ascending confidence order, so higher confidence paints over
// lower. Work is confined to each instance's scaled bounding box.
func renderCombined(grids [][]float32, instances []maskInstance, mw, mh, inputW, inputH int) *cimg.Image {
	img := cimg.NewImage(mw, mh, cimg.PixelFormatRGBA)

	order := make([]int, len(instances))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return instances[order[a]].score < instances[order[b]].score
	})

	sx := float32(mw) / float32(inputW)
	sy := float32(mh) / float32(inputH)
	for _, i := range order {
		inst := instances[i]
		grid := grids[i]
		color := vision.ClassColor(inst.class)
		x1 := gen.Clamp(int(inst.rect.X*sx), 0, mw)
		y1 := gen.Clamp(int(inst.rect.Y*sy), 0, mh)
		x2 := gen.Clamp(int(math32.Ceil(inst.rect.X2()*sx)), 0, mw)
		y2 := gen.Clamp(int(math32.Ceil(inst.rect.Y2()*sy)), 0, mh)
		for y := y1; y < y2; y++ {
			line := y * img.Stride
			for x := x1; x < x2; x++ {
				if grid[y*mw+x] > vision.MaskThreshold {
					p := line + x*4
					img.Pixels[p] = color[0]
					img.Pixels[p+1] = color[1]
					img.Pixels[p+2] = color[2]
					img.Pixels[p+3] = 255
				}
			}
		}
	}
	return img
}

// flattenProtos returns the prototype tensor as a contiguous [32, mh*mw]
// buffer, avoiding a copy when the tensor is already row-major.
func flattenProtos(protos *tensor.Tensor, mh, mw int) ([]float32, error) {
	hw := mh * mw
	s1, s2, s3 := protos.Stride(1), protos.Stride(2), protos.Stride(3)
	data := protos.Data()
	if s3 == 1 && s2 == mw && s1 == hw {
		if len(data) < MaskCoefficients*hw {
			return nil, fmt.Errorf("%w: prototype tensor buffer too small", tensor.ErrBadShape)
		}
		return data[:MaskCoefficients*hw], nil
	}
	flat := make([]float32, MaskCoefficients*hw)
	for k := 0; k < MaskCoefficients; k++ {
		for y := 0; y < mh; y++ {
			for x := 0; x < mw; x++ {
				flat[k*hw+y*mw+x] = data[k*s1+y*s2+x*s3]
			}
		}
	}
	return flat, nil
}

func sigmoid(v float32) float32 {
	return 1 / (1 + math32.Exp(-v))
}
