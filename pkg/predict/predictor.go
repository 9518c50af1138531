package predict

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/sightline/pkg/decode"
	"github.com/cyclopcam/sightline/pkg/perfstats"
	"github.com/cyclopcam/sightline/pkg/vision"
)

// Predictor runs one model and decodes its outputs for one task. It is safe
// to call Predict from one goroutine while another calls Retune.
type Predictor struct {
	log         logs.Log
	engine      Engine
	task        decode.Task
	labels      []string
	requiresNMS bool

	settings atomic.Pointer[decode.Settings]

	// Exponentially smoothed frame interval in nanoseconds, streaming only
	smoothedFrameNS atomic.Int64
	lastFrameAt     atomic.Int64 // unix nanos of the previous streaming frame

	// Moving averages of stage times, for periodic stats logging
	AvgInferNS  atomic.Int64
	AvgDecodeNS atomic.Int64
}

// NewPredictor validates the engine and its metadata, and binds the decoder
// for the given task. Failures here are fatal for the caller, unlike
// per-frame decode errors.
func NewPredictor(log logs.Log, engine Engine, task decode.Task, settings decode.Settings) (*Predictor, error) {
	if engine == nil {
		return nil, fmt.Errorf("%w: nil engine", ErrSetup)
	}
	md := engine.Metadata()
	labels, err := ParseLabels(md.Names)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSetup, err)
	}
	w, h := engine.InputSize()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: engine reports input size %vx%v", ErrSetup, w, h)
	}
	p := &Predictor{
		log:    log,
		engine: engine,
		task:   task,
		labels: labels,
		// Models exported with built-in NMS declare it in metadata. Anything
		// else emits raw anchors and needs NMS here.
		requiresNMS: md.NMS != "false",
	}
	p.Retune(settings)
	log.Infof("Predictor ready: task %v, input %vx%v, %v classes, NMS in decoder: %v", task, w, h, len(labels), p.requiresNMS)
	return p, nil
}

// Retune swaps the decode thresholds. The new settings apply from the next
// Predict call; an in-flight call finishes with the old ones.
func (p *Predictor) Retune(settings decode.Settings) {
	s := settings
	p.settings.Store(&s)
}

// Settings returns the thresholds currently in effect.
func (p *Predictor) Settings() decode.Settings {
	return *p.settings.Load()
}

// Task returns the task this predictor decodes.
func (p *Predictor) Task() decode.Task {
	return p.task
}

// Labels returns the class labels parsed from model metadata.
func (p *Predictor) Labels() []string {
	return p.labels
}

// Predict runs one frame through the engine and decodes the result.
func (p *Predictor) Predict(img *cimg.Image) (*vision.Result, error) {
	return p.predict(img, false)
}

// PredictStreaming is Predict for consecutive video frames. It additionally
// maintains the smoothed FPS estimate, which one-shot calls must not touch.
func (p *Predictor) PredictStreaming(img *cimg.Image) (*vision.Result, error) {
	return p.predict(img, true)
}

func (p *Predictor) predict(img *cimg.Image, streaming bool) (*vision.Result, error) {
	start := time.Now()
	settings := *p.settings.Load()
	inputW, inputH := p.engine.InputSize()

	outputs, err := p.engine.Run(img)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	inferDone := time.Now()
	perfstats.UpdateMovingAverage(&p.AvgInferNS, inferDone.Sub(start).Nanoseconds())

	if len(outputs) < 1 {
		return nil, ErrMissingOutput
	}

	result := &vision.Result{
		ImageWidth:  inputW,
		ImageHeight: inputH,
		Boxes:       []vision.Box{},
		Labels:      p.labels,
	}

	switch p.task {
	case decode.TaskDetect:
		result.Boxes, err = decode.Detections(outputs[0], settings, p.labels, inputW, inputH, !p.requiresNMS)
	case decode.TaskClassify:
		result.Probs, err = decode.Classify(outputs[0], p.labels)
	case decode.TaskSegment:
		if len(outputs) < 2 {
			return nil, fmt.Errorf("%w: segmentation needs detections and prototypes", ErrMissingOutput)
		}
		result.Boxes, result.Masks, err = decode.Segmentation(outputs[0], outputs[1], settings, p.labels, inputW, inputH)
	case decode.TaskPose:
		result.Boxes, result.Keypoints, err = decode.Pose(outputs[0], settings, p.labels, inputW, inputH)
	case decode.TaskOBB:
		result.OrientedBoxes, err = decode.OrientedDetections(outputs[0], settings, p.labels, inputW, inputH)
	default:
		return nil, fmt.Errorf("%w: unhandled task %v", ErrSetup, p.task)
	}
	if err != nil {
		return nil, err
	}
	perfstats.UpdateMovingAverage(&p.AvgDecodeNS, time.Since(inferDone).Nanoseconds())

	result.Speed = time.Since(start)
	if streaming {
		result.FPS = p.updateFPS(start)
	}
	return result, nil
}

// updateFPS folds the interval since the previous streaming frame into an
// exponentially smoothed frame time (5% new, 95% old), and reports its
// reciprocal. Smoothing the interval rather than the FPS value itself means
// the two transiently disagree after a rate change (the harmonic mean leans
// toward slower frames), converging to the same steady-state rate.
func (p *Predictor) updateFPS(now time.Time) float64 {
	prev := p.lastFrameAt.Swap(now.UnixNano())
	if prev == 0 {
		return 0
	}
	dt := now.UnixNano() - prev
	if dt <= 0 {
		return 0
	}
	old := p.smoothedFrameNS.Load()
	smoothed := dt
	if old != 0 {
		smoothed = (dt + 19*old) / 20
	}
	p.smoothedFrameNS.Store(smoothed)
	return float64(time.Second) / float64(smoothed)
}

// Close releases the engine.
func (p *Predictor) Close() error {
	return p.engine.Close()
}
