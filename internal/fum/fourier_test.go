package fum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sequencePlane(n int) []complex128 {
	out := make([]complex128, n)
	for i := range out {
		out[i] = complex(float64(i), 0)
	}
	return out
}

func TestFFTShift(t *testing.T) {
	assert.Equal(t, []complex128{2, 3, 0, 1}, FFTShift(sequencePlane(4), 1, 4))
	assert.Equal(t, []complex128{3, 4, 0, 1, 2}, FFTShift(sequencePlane(5), 1, 5))
	assert.Equal(t, []complex128{2, 3, 0, 1}, FFTShift(sequencePlane(4), 4, 1))
}

func TestShiftRoundTrip(t *testing.T) {
	for _, size := range [][2]int{{4, 4}, {3, 5}, {5, 2}, {1, 1}} {
		h, w := size[0], size[1]
		plane := sequencePlane(h * w)
		assert.Equal(t, plane, IFFTShift(FFTShift(plane, h, w), h, w), "%dx%d", h, w)
	}
}

func randomish(b, c, h, w int) *Tensor {
	x := NewTensor(b, c, h, w, CPU)
	for i := range x.Data {
		x.Data[i] = float32((i*37)%11) - 5
	}
	return x
}

func TestFourierFilterIdentity(t *testing.T) {
	for _, size := range [][2]int{{8, 8}, {5, 7}, {1, 3}} {
		x := randomish(2, 3, size[0], size[1])
		out := FourierFilter(x, 1, 1)

		assert.Equal(t, x.Shape, out.Shape)
		assert.InDeltaSlice(t, x.Data, out.Data, 1e-4, "%v", size)
	}
}

func TestFourierFilterRemovesDC(t *testing.T) {
	x := NewTensor(1, 2, 6, 6, CPU)
	for i := range x.Data {
		x.Data[i] = 3
	}

	out := FourierFilter(x, 1, 0)
	for _, v := range out.Data {
		assert.InDelta(t, 0, v, 1e-5)
	}

	half := FourierFilter(x, 1, 0.5)
	for _, v := range half.Data {
		assert.InDelta(t, 1.5, v, 1e-5)
	}
}

func TestFourierFilterLeavesInput(t *testing.T) {
	x := randomish(1, 1, 4, 4)
	before := x.Clone()

	FourierFilter(x, 1, 0)
	assert.Equal(t, before.Data, x.Data)
}

func TestFourierFilterLargeThreshold(t *testing.T) {
	x := randomish(1, 1, 4, 6)

	out := FourierFilter(x, 100, 2)
	for i := range x.Data {
		assert.InDelta(t, 2*x.Data[i], out.Data[i], 1e-4)
	}
}
