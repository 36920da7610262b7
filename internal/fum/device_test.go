package fum

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failingBackend struct {
	calls int
}

func (b *failingBackend) FourierFilter(x *Tensor, threshold int, scale float64) (*Tensor, error) {
	b.calls++
	return nil, errors.New("fft not implemented for this device")
}

type markingBackend struct {
	calls int
}

func (b *markingBackend) FourierFilter(x *Tensor, threshold int, scale float64) (*Tensor, error) {
	b.calls++
	out := x.Clone()
	out.Data[0] = 42
	return out, nil
}

func TestDeviceFallbackIsRemembered(t *testing.T) {
	devices := NewDeviceTable()
	backend := &failingBackend{}
	devices.Register("cuda:0", backend)

	x := randomish(1, 2, 4, 4).To("cuda:0")
	want := FourierFilter(x, 1, 0.5)

	for i := 0; i < 3; i++ {
		out := devices.Filter(x, 1, 0.5)
		assert.Equal(t, "cuda:0", out.Device)
		assert.InDeltaSlice(t, want.Data, out.Data, 1e-6)
	}

	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, TierCPUOnly, devices.Tier("cuda:0"))
	assert.Equal(t, []string{"cuda:0"}, devices.CPUOnly())
}

func TestDeviceWithoutBackend(t *testing.T) {
	devices := NewDeviceTable()

	out := devices.Filter(randomish(1, 1, 2, 2).To("mps"), 1, 1)
	assert.Equal(t, "mps", out.Device)
	assert.Equal(t, TierCPUOnly, devices.Tier("mps"))
}

func TestDeviceNativeBackend(t *testing.T) {
	devices := NewDeviceTable()
	backend := &markingBackend{}
	devices.Register("cuda:1", backend)

	out := devices.Filter(randomish(1, 1, 2, 2).To("cuda:1"), 1, 1)
	assert.Equal(t, float32(42), out.Data[0])
	assert.Equal(t, TierNative, devices.Tier("cuda:1"))
	assert.Equal(t, TierNative, devices.Tier(CPU))
	assert.Empty(t, devices.CPUOnly())

	devices.Filter(randomish(1, 1, 2, 2), 1, 1)
	assert.Equal(t, 1, backend.calls)
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "native", TierNative.String())
	assert.Equal(t, "cpu-only", TierCPUOnly.String())
	assert.Equal(t, "Tier(7)", Tier(7).String())
}
