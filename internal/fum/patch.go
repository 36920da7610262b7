package fum

import (
	"math"
)

type blockScale struct {
	backbone float64
	skip     float64
}

// PatchUNet clones unet and installs the FUM output block patch. Blocks
// with model_channels*4 channels use (b1, s1), blocks with
// model_channels*2 use (b2, s2), others pass through. The patch only acts
// while session is active.
func PatchUNet(unet UNetPatcher, b1, b2, s1, s2 float64, session *Session) (UNetPatcher, error) {
	modelChannels, ok := ProbeModelChannels(unet)
	if !ok {
		return nil, ErrUnsupportedModel
	}

	scales := map[int]blockScale{
		modelChannels * 4: {backbone: b1, skip: s1},
		modelChannels * 2: {backbone: b2, skip: s2},
	}

	patch := func(h *Tensor, hsp *Tensor, _ map[string]any) (*Tensor, *Tensor) {
		if !session.Active() {
			return h, hsp
		}

		scale, ok := scales[h.Channels()]
		if !ok {
			return h, hsp
		}

		h = ScaleBackbone(h, scale.backbone)
		hsp = session.Devices.Filter(hsp, 1, scale.skip)
		return h, hsp
	}

	m := unet.Clone()
	m.SetModelOutputBlockPatch(patch)
	return m, nil
}

// ScaleBackbone multiplies the first half of the channels of h by
// (b-1)*mean+1, where mean is the channel mean min-max normalized over
// each batch item. A flat mean normalizes to 0.
func ScaleBackbone(h *Tensor, b float64) *Tensor {
	out := h.Clone()
	batch, channels := h.Batch(), h.Channels()
	size := h.Height() * h.Width()
	if channels == 0 || size == 0 {
		return out
	}

	mean := make([]float64, size)
	for n := 0; n < batch; n++ {
		for i := range mean {
			mean[i] = 0
		}
		for c := 0; c < channels; c++ {
			for i, v := range h.Plane(n, c) {
				mean[i] += float64(v)
			}
		}

		lo, hi := math.Inf(1), math.Inf(-1)
		for i := range mean {
			mean[i] /= float64(channels)
			lo = math.Min(lo, mean[i])
			hi = math.Max(hi, mean[i])
		}

		span := hi - lo
		for i := range mean {
			if span > 0 {
				mean[i] = (mean[i] - lo) / span
			} else {
				mean[i] = 0
			}
		}

		for c := 0; c < channels/2; c++ {
			plane := out.Plane(n, c)
			for i := range plane {
				plane[i] = float32(float64(plane[i]) * ((b-1)*mean[i] + 1))
			}
		}
	}

	return out
}
