package simhost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zelak312/fumkit/internal/fum"
)

func TestCallbacksByOwner(t *testing.T) {
	host := New()
	var calls []string
	host.OnCFGDenoiser("b", func(p fum.DenoiserParams) { calls = append(calls, "b") })
	host.OnCFGDenoiser("a", func(p fum.DenoiserParams) { calls = append(calls, "a") })
	assert.Equal(t, 2, host.CallbackCount())

	host.denoise(fum.DenoiserParams{})
	assert.Equal(t, []string{"a", "b"}, calls)

	host.RemoveCallbacks("a")
	assert.Equal(t, 1, host.CallbackCount())
}

func TestModelClone(t *testing.T) {
	model := NewModel(320)
	channels, ok := fum.ProbeModelChannels(model)
	require.True(t, ok)
	assert.Equal(t, 320, channels)

	clone := model.Clone().(*Model)
	clone.SetModelOutputBlockPatch(func(h, hsp *fum.Tensor, _ map[string]any) (*fum.Tensor, *fum.Tensor) {
		return h, hsp
	})
	clone.ModelConfig()["model_channels"] = 64

	assert.Equal(t, 0, model.PatchCount())
	assert.Equal(t, 1, clone.PatchCount())
	assert.Equal(t, 320, model.ModelConfig()["model_channels"])

	_, ok = fum.ProbeModelChannels(NewModel(0))
	assert.False(t, ok)
}

func TestSampleAppliesPatches(t *testing.T) {
	host := New()
	model := NewModel(2)
	model.SetModelOutputBlockPatch(func(h, hsp *fum.Tensor, _ map[string]any) (*fum.Tensor, *fum.Tensor) {
		if h.Channels() != 8 {
			return h, hsp
		}
		out := h.Clone()
		out.Data[0]++
		return out, hsp
	})

	var steps []int
	host.OnCFGDenoiser("test", func(p fum.DenoiserParams) {
		assert.Equal(t, 3, p.TotalSamplingSteps)
		steps = append(steps, p.SamplingStep)
	})

	stats := host.Sample(model, SampleOptions{Steps: 3, Batch: 1, Height: 2, Width: 2})
	require.Len(t, stats, 3)
	assert.Equal(t, []int{0, 1, 2}, steps)
	for _, st := range stats {
		assert.True(t, st.Active)
		assert.Equal(t, []int{8}, st.Modified)
	}
}

func TestInfo(t *testing.T) {
	host := New()
	host.Info("hello")
	assert.Equal(t, []string{"hello"}, host.Notices())
}
