package vision

// Package vision holds the result model that decoders emit and that the
// rendering layer consumes. Result values are immutable after construction,
// so they are safe to share across threads.

import (
	"strconv"
	"time"

	"github.com/cyclopcam/sightline/pkg/nms"
)

// Box is one detected object.
type Box struct {
	ClassIndex int      `json:"classIndex"`
	Label      string   `json:"label"`
	Confidence float32  `json:"confidence"`
	Rect       nms.Rect `json:"rect"`  // Pixel space, origin top-left
	NRect      nms.Rect `json:"nrect"` // Normalized to [0,1]
}

// OrientedDetection is one detected object with a rotated bounding box.
type OrientedDetection struct {
	ClassIndex int             `json:"classIndex"`
	Label      string          `json:"label"`
	Confidence float32         `json:"confidence"`
	Box        nms.OrientedBox `json:"box"`
}

// Keypoints are the joints of one detected person, as parallel arrays indexed
// by the anatomical order in KeypointNames.
type Keypoints struct {
	XYN  []nms.Point `json:"xyn"`  // Normalized to [0,1]
	XY   []nms.Point `json:"xy"`   // Pixel space
	Conf []float32   `json:"conf"` // Per-joint confidence
}

// ClassProbabilities is the classification result: top-1 plus top-5.
type ClassProbabilities struct {
	Top1           string    `json:"top1"`
	Top1Index      int       `json:"top1Index"`
	Top1Confidence float32   `json:"top1Confidence"`
	Top5           []string  `json:"top5"`
	Top5Confidence []float32 `json:"top5Confidence"`
}

// Result is the aggregate output of one inference call.
// Empty collections mean "nothing found", which is a normal outcome.
type Result struct {
	ImageWidth    int                 `json:"imageWidth"`
	ImageHeight   int                 `json:"imageHeight"`
	Boxes         []Box               `json:"boxes"`
	Masks         *SegmentationMask   `json:"masks,omitempty"`
	Probs         *ClassProbabilities `json:"probs,omitempty"`
	Keypoints     []Keypoints         `json:"keypoints,omitempty"`
	OrientedBoxes []OrientedDetection `json:"orientedBoxes,omitempty"`
	Speed         time.Duration       `json:"speed"` // Wall clock time of the whole predict call
	FPS           float64             `json:"fps"`   // Exponentially smoothed, streaming mode only
	Labels        []string            `json:"-"`
}

// LabelFor returns the class label for index i, or a numeric placeholder if
// the label list doesn't cover i.
func LabelFor(labels []string, i int) string {
	if i >= 0 && i < len(labels) {
		return labels[i]
	}
	return "class " + strconv.Itoa(i)
}
