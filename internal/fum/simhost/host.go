// Package simhost is an in-memory diffusion host. It runs the callback
// and patch contracts the FUM script expects over synthetic tensors.
package simhost

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Zelak312/fumkit/internal/fum"
	"github.com/Zelak312/fumkit/internal/logging"
)

type Host struct {
	logger    *logrus.Entry
	mu        sync.Mutex
	callbacks map[string][]func(fum.DenoiserParams)
	notices   []string
}

func New() *Host {
	return &Host{
		logger:    logging.CreateLogger("simhost"),
		callbacks: make(map[string][]func(fum.DenoiserParams)),
	}
}

func (h *Host) OnCFGDenoiser(owner string, fn func(fum.DenoiserParams)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.callbacks[owner] = append(h.callbacks[owner], fn)
}

func (h *Host) RemoveCallbacks(owner string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.callbacks, owner)
}

func (h *Host) CallbackCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, fns := range h.callbacks {
		n += len(fns)
	}
	return n
}

func (h *Host) Info(message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notices = append(h.notices, message)
	h.logger.Info(message)
}

func (h *Host) Notices() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string{}, h.notices...)
}

// denoise fires every callback in owner order.
func (h *Host) denoise(params fum.DenoiserParams) {
	h.mu.Lock()
	owners := make([]string, 0, len(h.callbacks))
	for owner := range h.callbacks {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	var fns []func(fum.DenoiserParams)
	for _, owner := range owners {
		fns = append(fns, h.callbacks[owner]...)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(params)
	}
}

// Model is a UNet patcher whose config is a plain map.
type Model struct {
	config  map[string]any
	patches []fum.OutputBlockPatch
}

// NewModel builds a model with the given model_channels. Zero leaves the
// key out, like a model FUM cannot patch.
func NewModel(modelChannels int) *Model {
	config := map[string]any{}
	if modelChannels > 0 {
		config["model_channels"] = modelChannels
	}
	return &Model{config: config}
}

func (m *Model) ModelConfig() map[string]any {
	return m.config
}

func (m *Model) Clone() fum.UNetPatcher {
	config := make(map[string]any, len(m.config))
	for k, v := range m.config {
		config[k] = v
	}
	return &Model{
		config:  config,
		patches: append([]fum.OutputBlockPatch{}, m.patches...),
	}
}

func (m *Model) SetModelOutputBlockPatch(patch fum.OutputBlockPatch) {
	m.patches = append(m.patches, patch)
}

func (m *Model) PatchCount() int {
	return len(m.patches)
}

// SampleOptions shape the synthetic sampling loop.
type SampleOptions struct {
	Steps  int
	Batch  int
	Height int
	Width  int
	Device string
	Seed   int64
}

// StepStats reports which output blocks a patch changed in one step.
type StepStats struct {
	Step     int   `json:"step"`
	Active   bool  `json:"active"`
	Modified []int `json:"modified"`
}

// Sample runs the sampler: for each step the denoiser callbacks fire and
// every output block of the model goes through its patches.
func (h *Host) Sample(unet fum.UNetPatcher, opts SampleOptions) []StepStats {
	model, ok := unet.(*Model)
	if !ok {
		return nil
	}

	channels, ok := fum.ProbeModelChannels(model)
	if !ok {
		channels = 4
	}
	blocks := []int{channels * 4, channels * 2, channels}
	if opts.Device == "" {
		opts.Device = fum.CPU
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	stats := make([]StepStats, 0, opts.Steps)
	for step := 0; step < opts.Steps; step++ {
		h.denoise(fum.DenoiserParams{SamplingStep: step, TotalSamplingSteps: opts.Steps})

		st := StepStats{Step: step}
		for _, c := range blocks {
			x := randomTensor(rng, opts.Batch, c, opts.Height, opts.Width, opts.Device)
			skip := randomTensor(rng, opts.Batch, c, opts.Height, opts.Width, opts.Device)
			hOut, skipOut := x, skip
			for _, patch := range model.patches {
				hOut, skipOut = patch(hOut, skipOut, nil)
			}
			if changed(x, hOut) || changed(skip, skipOut) {
				st.Modified = append(st.Modified, c)
			}
		}
		st.Active = len(st.Modified) > 0
		stats = append(stats, st)
	}

	return stats
}

func randomTensor(rng *rand.Rand, b, c, h, w int, device string) *fum.Tensor {
	t := fum.NewTensor(b, c, h, w, device)
	for i := range t.Data {
		t.Data[i] = rng.Float32()*2 - 1
	}
	return t
}

func changed(a, b *fum.Tensor) bool {
	if a == b {
		return false
	}
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			return true
		}
	}
	return false
}
