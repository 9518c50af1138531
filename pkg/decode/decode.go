package decode

// Package decode turns raw neural network output tensors into structured
// vision results. Each task has its own decoder; the predict package picks
// one at construction time and dispatches with a switch, since the task set
// is fixed and closed.

import (
	"fmt"

	"github.com/cyclopcam/sightline/pkg/gen"
	"github.com/cyclopcam/sightline/pkg/nms"
	"github.com/cyclopcam/sightline/pkg/vision"
)

// Task selects the decode strategy for a model's output tensors.
type Task int

const (
	TaskDetect Task = iota
	TaskClassify
	TaskSegment
	TaskPose
	TaskOBB
)

func (t Task) String() string {
	switch t {
	case TaskDetect:
		return "detect"
	case TaskClassify:
		return "classify"
	case TaskSegment:
		return "segment"
	case TaskPose:
		return "pose"
	case TaskOBB:
		return "obb"
	}
	return "unknown"
}

func ParseTask(s string) (Task, error) {
	switch s {
	case "detect":
		return TaskDetect, nil
	case "classify":
		return TaskClassify, nil
	case "segment":
		return TaskSegment, nil
	case "pose":
		return TaskPose, nil
	case "obb":
		return TaskOBB, nil
	}
	return TaskDetect, fmt.Errorf("unknown task '%v'", s)
}

const DefaultConfidenceThreshold = 0.25
const DefaultIOUThreshold = 0.45
const DefaultMaxDetections = 300

// Settings are the thresholds consumed by every decoder.
// A decode call reads the whole struct once at the start, so concurrent
// retuning can never produce a torn value within one call.
//
// A zero field means "use the default", so a literal threshold of 0 cannot
// be expressed. To accept every candidate, use a tiny positive threshold
// such as 1e-6.
type Settings struct {
	ConfidenceThreshold float32 `json:"confidenceThreshold"` // Candidates below this score are dropped before NMS. Zero means DefaultConfidenceThreshold.
	IOUThreshold        float32 `json:"iouThreshold"`        // NMS suppression threshold. Zero means DefaultIOUThreshold.
	MaxDetections       int     `json:"maxDetections"`       // Hard cap on returned detections. Zero means DefaultMaxDetections.
}

// NewSettings returns default decode settings.
func NewSettings() Settings {
	return Settings{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		IOUThreshold:        DefaultIOUThreshold,
		MaxDetections:       DefaultMaxDetections,
	}
}

// sanitized replaces zero values with defaults.
func (s Settings) sanitized() Settings {
	if s.ConfidenceThreshold == 0 {
		s.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if s.IOUThreshold == 0 {
		s.IOUThreshold = DefaultIOUThreshold
	}
	if s.MaxDetections == 0 {
		s.MaxDetections = DefaultMaxDetections
	}
	return s
}

// clipRect clamps a rectangle to the model input bounds.
func clipRect(r nms.Rect, w, h int) nms.Rect {
	x1 := gen.Clamp(r.X, 0, float32(w))
	y1 := gen.Clamp(r.Y, 0, float32(h))
	x2 := gen.Clamp(r.X2(), 0, float32(w))
	y2 := gen.Clamp(r.Y2(), 0, float32(h))
	return nms.Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

func normRect(r nms.Rect, w, h int) nms.Rect {
	return nms.Rect{
		X:      r.X / float32(w),
		Y:      r.Y / float32(h),
		Width:  r.Width / float32(w),
		Height: r.Height / float32(h),
	}
}

func makeBox(class int, score float32, r nms.Rect, labels []string, inputW, inputH int) vision.Box {
	clipped := clipRect(r, inputW, inputH)
	return vision.Box{
		ClassIndex: class,
		Label:      vision.LabelFor(labels, class),
		Confidence: score,
		Rect:       clipped,
		NRect:      normRect(clipped, inputW, inputH),
	}
}
