// Package predict ties an inference engine to the task decoders, producing
// vision.Result values from images.
package predict

import (
	"errors"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/sightline/pkg/tensor"
)

var (
	// ErrSetup wraps any failure while constructing a predictor (bad task,
	// unusable engine, unparseable metadata). Setup failures are fatal;
	// per-frame decode problems are not.
	ErrSetup = errors.New("predictor setup failed")

	// ErrMissingOutput is returned when the engine produces fewer output
	// tensors than the task needs.
	ErrMissingOutput = errors.New("engine produced too few output tensors")
)

// Metadata is the model self-description that engines expose. The fields
// mirror what model exporters bake into the file.
type Metadata struct {
	Names string // Class labels, either "a,b,c" or "{0: 'a', 1: 'b'}"
	NMS   string // "false" if the model emits final detections (no NMS needed)
}

// Engine abstracts the inference runtime. Run takes a frame and returns the
// raw output tensors, in the model's declared output order.
type Engine interface {
	Run(img *cimg.Image) ([]*tensor.Tensor, error)
	InputSize() (width, height int)
	Metadata() Metadata
	Close() error
}
