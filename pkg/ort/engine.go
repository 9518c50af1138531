package ort

import (
	"fmt"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/sightline/pkg/predict"
	"github.com/cyclopcam/sightline/pkg/tensor"
	ort "github.com/getcharzp/onnxruntime_purego"
)

// Engine runs one ONNX model. It implements predict.Engine.
type Engine struct {
	cfg     Config
	runtime *ort.Engine
	session *ort.Session
}

// NewEngine loads the onnxruntime shared library and creates a session for
// the model in cfg.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rt, err := ort.NewEngine(cfg.LibraryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load onnxruntime from %v: %w", cfg.LibraryPath, err)
	}
	session, err := rt.NewSession(cfg.ModelPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create session for %v: %w", cfg.ModelPath, err)
	}
	return &Engine{
		cfg:     cfg,
		runtime: rt,
		session: session,
	}, nil
}

func (e *Engine) InputSize() (int, int) {
	return e.cfg.Width, e.cfg.Height
}

func (e *Engine) Metadata() predict.Metadata {
	return predict.Metadata{
		Names: e.cfg.Names,
		NMS:   e.cfg.NMS,
	}
}

// Run resizes the frame to the model input, converts it to NCHW float32 in
// [0,1], and returns the output tensors in config order.
func (e *Engine) Run(img *cimg.Image) ([]*tensor.Tensor, error) {
	inputData := e.preprocess(img)
	inputShape := []int64{1, 3, int64(e.cfg.Height), int64(e.cfg.Width)}
	inputTensor, err := ort.NewTensor(inputShape, inputData)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputValues, err := e.session.Run(map[string]*ort.Value{
		e.cfg.Input: inputTensor,
	})
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		for _, v := range outputValues {
			v.Destroy()
		}
	}()

	outputs := make([]*tensor.Tensor, 0, len(e.cfg.Outputs))
	for _, spec := range e.cfg.Outputs {
		value := outputValues[spec.Name]
		if value == nil {
			return nil, fmt.Errorf("model produced no output named '%v'", spec.Name)
		}
		data, err := ort.GetTensorData[float32](value)
		if err != nil {
			return nil, fmt.Errorf("failed to read output '%v': %w", spec.Name, err)
		}
		// The runtime owns the Value's buffer, so copy before Destroy
		copied := make([]float32, len(data))
		copy(copied, data)
		out, err := tensor.New(copied, spec.Shape)
		if err != nil {
			return nil, fmt.Errorf("output '%v' does not match its declared shape %v: %w", spec.Name, spec.Shape, err)
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

// preprocess produces NCHW float32 pixels in [0,1], resizing if the frame
// doesn't match the model input size.
func (e *Engine) preprocess(img *cimg.Image) []float32 {
	rgb := img.ToRGB()
	if rgb.Width != e.cfg.Width || rgb.Height != e.cfg.Height {
		rgb = cimg.ResizeNew(rgb, e.cfg.Width, e.cfg.Height, nil)
	}
	area := e.cfg.Width * e.cfg.Height
	data := make([]float32, 3*area)
	for y := 0; y < rgb.Height; y++ {
		line := rgb.Pixels[y*rgb.Stride:]
		for x := 0; x < rgb.Width; x++ {
			data[0*area+y*rgb.Width+x] = float32(line[x*3+0]) / 255
			data[1*area+y*rgb.Width+x] = float32(line[x*3+1]) / 255
			data[2*area+y*rgb.Width+x] = float32(line[x*3+2]) / 255
		}
	}
	return data
}

func (e *Engine) Close() error {
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	return nil
}
