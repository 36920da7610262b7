package simhost

import (
	"github.com/Zelak312/fumkit/internal/fum"
)

type JobResult struct {
	Metadata map[string]any `json:"metadata"`
	Steps    []StepStats    `json:"steps"`
	Notices  []string       `json:"notices,omitempty"`

	// CallbacksLeft is the number of callbacks still registered after
	// postprocess.
	CallbacksLeft int `json:"callbacksLeft"`
}

// RunJob drives one generation job through script the way a host does:
// process before sampling, sample, postprocess.
func (h *Host) RunJob(script *fum.Script, model *Model, args fum.Args, opts SampleOptions) (*JobResult, error) {
	noticesBefore := len(h.Notices())

	p := &fum.Processing{
		UNet:                  model,
		ExtraGenerationParams: map[string]any{},
	}
	if err := script.ProcessBeforeEverySampling(p, args); err != nil {
		return nil, err
	}

	steps := h.Sample(p.UNet, opts)
	script.Postprocess()

	return &JobResult{
		Metadata:      p.ExtraGenerationParams,
		Steps:         steps,
		Notices:       h.Notices()[noticesBefore:],
		CallbacksLeft: h.CallbackCount(),
	}, nil
}
