package tensor

// Package tensor is a read-only view over raw neural network output buffers.
// The decoding layer never owns tensor production; it only interprets layout.
// Shapes and strides follow the conventions of the execution engine that
// produced the buffer (see the predict.Engine interface).

import (
	"errors"
	"fmt"
)

// ErrBadShape indicates a tensor whose rank or dimensions don't match what a
// decoder expects. This is a contract violation between the decoding layer and
// the execution engine, so decoders fail fast instead of guessing the layout.
var ErrBadShape = errors.New("unexpected tensor shape")

// Tensor is an opaque numeric buffer with a shape and element strides.
type Tensor struct {
	data    []float32
	shape   []int
	strides []int // element offset per single step along each dimension
}

// New creates a tensor view with row-major (C-contiguous) strides.
func New(data []float32, shape []int) (*Tensor, error) {
	strides := make([]int, len(shape))
	n := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = n
		n *= shape[i]
	}
	return NewStrided(data, shape, strides)
}

// NewStrided creates a tensor view with explicit strides.
func NewStrided(data []float32, shape, strides []int) (*Tensor, error) {
	if len(shape) != len(strides) {
		return nil, fmt.Errorf("%w: %v dims but %v strides", ErrBadShape, len(shape), len(strides))
	}
	// The largest reachable element must fit in the buffer
	last := 0
	for i, d := range shape {
		if d <= 0 {
			return nil, fmt.Errorf("%w: dimension %v is %v", ErrBadShape, i, d)
		}
		last += (d - 1) * strides[i]
	}
	if last >= len(data) {
		return nil, fmt.Errorf("%w: shape %v needs %v elements, buffer has %v", ErrBadShape, shape, last+1, len(data))
	}
	return &Tensor{
		data:    data,
		shape:   append([]int{}, shape...),
		strides: append([]int{}, strides...),
	}, nil
}

func (t *Tensor) Rank() int {
	return len(t.shape)
}

func (t *Tensor) Dim(i int) int {
	return t.shape[i]
}

func (t *Tensor) Shape() []int {
	return t.shape
}

// Stride returns the element offset of one step along dimension i.
func (t *Tensor) Stride(i int) int {
	return t.strides[i]
}

// Data returns the underlying buffer. Callers must treat it as read-only.
func (t *Tensor) Data() []float32 {
	return t.data
}

// At reads one element. Decode loops use Data() with explicit stride
// arithmetic instead; At is for tests and small tensors.
func (t *Tensor) At(ix ...int) float32 {
	off := 0
	for i, x := range ix {
		off += x * t.strides[i]
	}
	return t.data[off]
}

// ExpectRank returns ErrBadShape if the tensor's rank differs from r.
func (t *Tensor) ExpectRank(r int) error {
	if len(t.shape) != r {
		return fmt.Errorf("%w: rank %v, expected %v", ErrBadShape, len(t.shape), r)
	}
	return nil
}

// ExpectDim returns ErrBadShape if dimension i is not d.
func (t *Tensor) ExpectDim(i, d int) error {
	if t.shape[i] != d {
		return fmt.Errorf("%w: dimension %v is %v, expected %v", ErrBadShape, i, t.shape[i], d)
	}
	return nil
}
