package fum

import "math"

// DenoiserParams is what the host passes to a CFG denoiser callback.
type DenoiserParams struct {
	SamplingStep       int
	TotalSamplingSteps int
}

// CallbackRegistry is the host's per step callback point. Callbacks are
// grouped by owner so a script can remove only its own.
type CallbackRegistry interface {
	OnCFGDenoiser(owner string, fn func(DenoiserParams))
	RemoveCallbacks(owner string)
}

// Notifier shows non fatal messages to the user.
type Notifier interface {
	Info(message string)
}

// OutputBlockPatch transforms the backbone (h) and skip (hsp) features
// entering a UNet output block.
type OutputBlockPatch func(h *Tensor, hsp *Tensor, transformerOptions map[string]any) (*Tensor, *Tensor)

// UNetPatcher is the host's cloneable model patch object.
type UNetPatcher interface {
	ModelConfig() map[string]any
	Clone() UNetPatcher
	SetModelOutputBlockPatch(patch OutputBlockPatch)
}

// Processing is the slice of a generation job the script touches.
type Processing struct {
	UNet                  UNetPatcher
	ExtraGenerationParams map[string]any
}

// ProbeModelChannels returns the model_channels entry of the model config
// when it is a positive integer.
func ProbeModelChannels(unet UNetPatcher) (int, bool) {
	if unet == nil {
		return 0, false
	}

	config := unet.ModelConfig()
	if config == nil {
		return 0, false
	}

	var channels int
	switch v := config["model_channels"].(type) {
	case int:
		channels = v
	case int32:
		channels = int(v)
	case int64:
		channels = int(v)
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		channels = int(v)
	default:
		return 0, false
	}

	if channels <= 0 {
		return 0, false
	}
	return channels, true
}
