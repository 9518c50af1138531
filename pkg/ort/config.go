// Package ort adapts an ONNX Runtime session to the predict.Engine
// interface. The runtime is loaded from a shared library at runtime, so the
// binary builds without any C toolchain.
package ort

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
)

// OutputSpec names one model output and its tensor shape. ONNX models
// declare these at export time; we carry them in config so the adapter can
// hand correctly shaped tensors to the decoders.
type OutputSpec struct {
	Name  string `json:"name"`
	Shape []int  `json:"shape"`
}

// Config describes one ONNX model and how to talk to it.
type Config struct {
	LibraryPath string       `json:"libraryPath"` // onnxruntime shared library (.so/.dylib/.dll)
	ModelPath   string       `json:"modelPath"`
	Task        string       `json:"task"`  // detect, classify, segment, pose, obb
	Width       int          `json:"width"` // Model input width
	Height      int          `json:"height"`
	Names       string       `json:"names"` // Class labels, comma list or dict repr
	NMS         string       `json:"nms"`   // "false" if the model emits final detections
	Input       string       `json:"input"` // Input node name, default "images"
	Outputs     []OutputSpec `json:"outputs"`
}

// DefaultLibraryPath guesses the onnxruntime shared library name for the
// current OS and architecture, relative to ./lib.
func DefaultLibraryPath() string {
	baseDir := "./lib/"
	libName := "onnxruntime"
	switch runtime.GOOS {
	case "windows":
		return baseDir + libName + ".dll"
	case "darwin":
		return fmt.Sprintf("%s%s_%s.dylib", baseDir, libName, runtime.GOARCH)
	default:
		return fmt.Sprintf("%s%s_%s.so", baseDir, libName, runtime.GOARCH)
	}
}

// LoadConfig reads a model config from a JSON file.
func LoadConfig(filename string) (*Config, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read model config %v: %w", filename, err)
	}
	cfg := &Config{}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse model config %v: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fills defaults and rejects configs the adapter can't use.
func (c *Config) Validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("model config: modelPath is required")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("model config: invalid input size %vx%v", c.Width, c.Height)
	}
	if len(c.Outputs) == 0 {
		return fmt.Errorf("model config: at least one output is required")
	}
	for _, out := range c.Outputs {
		if out.Name == "" || len(out.Shape) == 0 {
			return fmt.Errorf("model config: output needs a name and a shape")
		}
	}
	if c.LibraryPath == "" {
		c.LibraryPath = DefaultLibraryPath()
	}
	if c.Input == "" {
		c.Input = "images"
	}
	return nil
}
