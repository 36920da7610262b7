// Package fum implements the FreeU-Move sampling patch: feature map
// rescaling and frequency band scaling applied to UNet output blocks
// while a diffusion sampler runs.
package fum

import (
	"errors"
	"fmt"
)

var (
	ErrShapeMismatch    = errors.New("tensor data does not match shape")
	ErrUnsupportedModel = errors.New("model does not expose model_channels")
)

const CPU = "cpu"

// Tensor is a dense float32 tensor in (B, C, H, W) layout.
type Tensor struct {
	Shape  [4]int
	Data   []float32
	Device string
}

func NewTensor(b, c, h, w int, device string) *Tensor {
	return &Tensor{
		Shape:  [4]int{b, c, h, w},
		Data:   make([]float32, b*c*h*w),
		Device: device,
	}
}

func NewTensorFromData(shape [4]int, data []float32, device string) (*Tensor, error) {
	n := shape[0] * shape[1] * shape[2] * shape[3]
	if n != len(data) {
		return nil, fmt.Errorf("%w: shape %v needs %d values, got %d", ErrShapeMismatch, shape, n, len(data))
	}

	return &Tensor{Shape: shape, Data: data, Device: device}, nil
}

func (t *Tensor) Batch() int    { return t.Shape[0] }
func (t *Tensor) Channels() int { return t.Shape[1] }
func (t *Tensor) Height() int   { return t.Shape[2] }
func (t *Tensor) Width() int    { return t.Shape[3] }

func (t *Tensor) index(b, c, y, x int) int {
	return ((b*t.Shape[1]+c)*t.Shape[2]+y)*t.Shape[3] + x
}

func (t *Tensor) At(b, c, y, x int) float32 {
	return t.Data[t.index(b, c, y, x)]
}

func (t *Tensor) Set(b, c, y, x int, v float32) {
	t.Data[t.index(b, c, y, x)] = v
}

// Plane is the H*W slice of channel c in batch b. It aliases t.Data.
func (t *Tensor) Plane(b, c int) []float32 {
	start := t.index(b, c, 0, 0)
	return t.Data[start : start+t.Shape[2]*t.Shape[3]]
}

func (t *Tensor) Clone() *Tensor {
	data := make([]float32, len(t.Data))
	copy(data, t.Data)
	return &Tensor{Shape: t.Shape, Data: data, Device: t.Device}
}

// To returns a copy of t placed on device.
func (t *Tensor) To(device string) *Tensor {
	out := t.Clone()
	out.Device = device
	return out
}
