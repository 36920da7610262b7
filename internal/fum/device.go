package fum

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Zelak312/fumkit/internal/logging"
)

// Tier says where the spectral filter of a device runs.
type Tier int

const (
	// TierNative runs on the device backend, falling back on failure.
	TierNative Tier = iota
	// TierCPUOnly always copies to the CPU.
	TierCPUOnly
)

func (t Tier) String() string {
	switch t {
	case TierNative:
		return "native"
	case TierCPUOnly:
		return "cpu-only"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

var errNoBackend = errors.New("no spectral backend for device")

// SpectralBackend runs FourierFilter on one device.
type SpectralBackend interface {
	FourierFilter(x *Tensor, threshold int, scale float64) (*Tensor, error)
}

type cpuBackend struct{}

func (cpuBackend) FourierFilter(x *Tensor, threshold int, scale float64) (*Tensor, error) {
	return FourierFilter(x, threshold, scale), nil
}

// DeviceTable remembers which devices failed the spectral filter. A
// device that fails once is CPU-only for the lifetime of the table.
type DeviceTable struct {
	logger   *logrus.Entry
	mu       sync.Mutex
	tiers    map[string]Tier
	backends map[string]SpectralBackend
	cpu      SpectralBackend
}

func NewDeviceTable() *DeviceTable {
	return &DeviceTable{
		logger:   logging.CreateLogger("fum.devices"),
		tiers:    make(map[string]Tier),
		backends: map[string]SpectralBackend{CPU: cpuBackend{}},
		cpu:      cpuBackend{},
	}
}

// Register sets the backend used for device.
func (d *DeviceTable) Register(device string, backend SpectralBackend) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.backends[device] = backend
}

func (d *DeviceTable) Tier(device string) Tier {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tiers[device]
}

// CPUOnly lists the devices that have been degraded.
func (d *DeviceTable) CPUOnly() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []string
	for device, tier := range d.tiers {
		if tier == TierCPUOnly {
			out = append(out, device)
		}
	}
	return out
}

// Filter applies FourierFilter to x on its own device when possible and
// on the CPU otherwise. The result is always placed on x.Device.
func (d *DeviceTable) Filter(x *Tensor, threshold int, scale float64) *Tensor {
	d.mu.Lock()
	tier := d.tiers[x.Device]
	backend, ok := d.backends[x.Device]
	d.mu.Unlock()

	if tier == TierNative {
		var out *Tensor
		err := errNoBackend
		if ok {
			out, err = backend.FourierFilter(x, threshold, scale)
		}
		if err == nil {
			return out
		}

		d.logger.WithField("device", x.Device).
			Warn("Device does not support the FFT functions used by FUM, switching to CPU: ", err)
		d.mu.Lock()
		d.tiers[x.Device] = TierCPUOnly
		d.mu.Unlock()
	}

	out, _ := d.cpu.FourierFilter(x.To(CPU), threshold, scale)
	return out.To(x.Device)
}
