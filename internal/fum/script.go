package fum

import (
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Zelak312/fumkit/internal/logging"
)

const (
	Title           = "FUM (FreeU-Move)"
	SortingPriority = 12

	// CallbackOwner identifies this script's callbacks in the host.
	CallbackOwner = "fum"

	presetPlaceholder = "(presets)"
	unsupportedNotice = "FUM is not supported for this model!"
)

// Infotext keys written to the generation metadata.
const (
	KeyEnabled    = "FUM_enabled"
	KeyB1         = "FUM_b1"
	KeyB2         = "FUM_b2"
	KeyS1         = "FUM_s1"
	KeyS2         = "FUM_s2"
	KeyStart      = "FUM_start"
	KeyEnd        = "FUM_end"
	KeyRandomMove = "random_move_enabled"
	KeySimpleMove = "simple_move_s1_enabled"
)

// Args are the values of the panel for one job.
type Args struct {
	Enabled bool
	Params
	RandomMove bool
	SimpleMove bool
}

func DefaultArgs() Args {
	return Args{Params: DefaultParams}
}

type Script struct {
	logger    *logrus.Entry
	session   *Session
	presets   Presets
	callbacks CallbackRegistry
	notifier  Notifier
}

func NewScript(session *Session, presets Presets, callbacks CallbackRegistry, notifier Notifier) *Script {
	return &Script{
		logger:    logging.CreateLogger("fum"),
		session:   session,
		presets:   presets,
		callbacks: callbacks,
		notifier:  notifier,
	}
}

func (s *Script) Title() string { return Title }

// Show makes the script visible in both txt2img and img2img.
func (s *Script) Show(isImg2Img bool) bool { return true }

func (s *Script) Session() *Session { return s.session }

func (s *Script) UI() Panel {
	d := DefaultParams
	return Panel{
		Title:   Title,
		ElemID:  "extensions-FUM",
		Enabled: false,
		B1:      Slider{Label: "B1", Min: 0, Max: 2, Step: 0.01, Value: d.B1},
		B2:      Slider{Label: "B2", Min: 0, Max: 2, Step: 0.01, Value: d.B2},
		S1:      Slider{Label: "S1", Min: 0, Max: 4, Step: 0.01, Value: d.S1},
		S2:      Slider{Label: "S2", Min: 0, Max: 4, Step: 0.01, Value: d.S2},
		Start:   Slider{Label: "Start step", Min: 0, Max: 1, Step: 0.01, Value: d.Start},
		End:     Slider{Label: "End step", Min: 0, Max: 1, Step: 0.01, Value: d.End},
		Preset: Dropdown{
			Label:   "",
			Choices: s.presets.Names(),
			Value:   presetPlaceholder,
		},
		RandomMove:   Checkbox{Label: "Random UNet Move"},
		SimpleMoveS1: Checkbox{Label: "Simple UNet S1 Move"},
	}
}

// ApplyPreset overwrites the six numeric values of args with preset
// index. The selector itself goes back to the placeholder.
func (s *Script) ApplyPreset(args Args, index int) Args {
	args.Params = s.presets.Select(index)
	return args
}

// InfotextFields lists the metadata keys the script restores.
func (s *Script) InfotextFields() []string {
	return []string{KeyEnabled, KeyB1, KeyB2, KeyS1, KeyS2, KeyStart, KeyEnd, KeyRandomMove, KeySimpleMove}
}

// ArgsFromInfotext overlays saved generation metadata on base. Values may
// be typed or the strings parsed from an infotext line. The flags default
// to false when absent.
func ArgsFromInfotext(base Args, d map[string]any) Args {
	args := base
	args.Enabled = boolValue(d[KeyEnabled])
	args.RandomMove = boolValue(d[KeyRandomMove])
	args.SimpleMove = boolValue(d[KeySimpleMove])

	for key, dst := range map[string]*float64{
		KeyB1: &args.B1, KeyB2: &args.B2,
		KeyS1: &args.S1, KeyS2: &args.S2,
		KeyStart: &args.Start, KeyEnd: &args.End,
	} {
		if v, ok := floatValue(d[key]); ok {
			*dst = v
		}
	}

	return args
}

// ProcessBeforeEverySampling arms the patch for one sampling pass. With
// hires fix the host calls it twice per job.
func (s *Script) ProcessBeforeEverySampling(p *Processing, args Args) error {
	if !args.Enabled {
		return nil
	}

	s.session.RandomMove = args.RandomMove
	s.session.SimpleMove = args.SimpleMove

	s1, s2 := args.S1, args.S2
	if s.session.RandomMove {
		s1, s2 = s.session.RandomWalk()
	}
	if s.session.SimpleMove {
		s1, s2 = s.session.MonotonicDrift()
	}

	if _, ok := ProbeModelChannels(p.UNet); !ok {
		s.logger.Debug("Model has no model_channels, not patching")
		if s.notifier != nil {
			s.notifier.Info(unsupportedNotice)
		}
		return nil
	}

	s.session.Start = args.Start
	s.session.End = args.End
	s.callbacks.OnCFGDenoiser(CallbackOwner, s.DenoiserCallback)

	unet, err := PatchUNet(p.UNet, args.B1, args.B2, s1, s2, s.session)
	if err != nil {
		return err
	}
	p.UNet = unet

	if p.ExtraGenerationParams == nil {
		p.ExtraGenerationParams = map[string]any{}
	}
	for k, v := range map[string]any{
		KeyEnabled:    args.Enabled,
		KeyB1:         args.B1,
		KeyB2:         args.B2,
		KeyS1:         s1,
		KeyS2:         s2,
		KeyStart:      args.Start,
		KeyEnd:        args.End,
		KeyRandomMove: s.session.RandomMove,
		KeySimpleMove: s.session.SimpleMove,
	} {
		p.ExtraGenerationParams[k] = v
	}

	s.logger.WithField("session", s.session.ID).
		WithField("s1", s1).
		WithField("s2", s2).
		Debug("UNet patched")
	return nil
}

// DenoiserCallback gates the patch on the normalized step fraction.
func (s *Script) DenoiserCallback(params DenoiserParams) {
	fraction := 0.0
	if params.TotalSamplingSteps > 1 {
		fraction = float64(params.SamplingStep) / float64(params.TotalSamplingSteps-1)
	}
	s.session.SetStep(fraction)
}

// Postprocess removes the callbacks of this script from the host.
func (s *Script) Postprocess() {
	s.callbacks.RemoveCallbacks(CallbackOwner)
}

func boolValue(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	default:
		return false
	}
}

func floatValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
