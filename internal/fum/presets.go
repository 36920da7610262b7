package fum

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Params are the six numeric knobs of the patch.
type Params struct {
	B1    float64 `yaml:"b1" json:"b1"`
	B2    float64 `yaml:"b2" json:"b2"`
	S1    float64 `yaml:"s1" json:"s1"`
	S2    float64 `yaml:"s2" json:"s2"`
	Start float64 `yaml:"start" json:"start"`
	End   float64 `yaml:"end" json:"end"`
}

var (
	// DefaultParams are the slider defaults.
	DefaultParams = Params{B1: 1.01, B2: 1.02, S1: 0.99, S2: 0.95, Start: 0, End: 1}
	// NeutralParams leave the model untouched over the full step range.
	NeutralParams = Params{B1: 1, B2: 1, S1: 1, S2: 1, Start: 0, End: 1}
)

type Preset struct {
	Name   string `yaml:"name" json:"name"`
	Params `yaml:",inline"`
}

func BuiltinPresets() []Preset {
	return []Preset{
		{"Forge default", Params{1.01, 1.02, 0.99, 0.95, 0.0, 1.0}},
		{"SD 1.4", Params{1.3, 1.4, 0.9, 0.2, 0.0, 1.0}},
		{"SD 1.5", Params{1.5, 1.6, 0.9, 0.2, 0.0, 1.0}},
		{"SD 2.1", Params{1.4, 1.6, 0.9, 0.2, 0.0, 1.0}},
		{"SDXL", Params{1.3, 1.4, 0.9, 0.2, 0.0, 1.0}},
		{"PONY", Params{1.35, 1.44, 0.9, 0.2, 0.0, 1.0}},
		{"Testing", Params{1.37, 1.42, 0.9, 0.2, 0.0, 1.0}},
	}
}

// Presets is the immutable lookup table behind the preset selector.
type Presets struct {
	list []Preset
}

// NewPresets returns the built-ins followed by custom.
func NewPresets(custom ...Preset) Presets {
	list := append(BuiltinPresets(), custom...)
	return Presets{list: list}
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// LoadPresets appends the presets of a YAML file to the built-ins. An
// empty path or a missing file only gives the built-ins.
func LoadPresets(path string) (Presets, error) {
	if path == "" {
		return NewPresets(), nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewPresets(), nil
	}
	if err != nil {
		return Presets{}, err
	}

	var file presetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Presets{}, fmt.Errorf("parsing presets %s: %w", path, err)
	}

	for i, p := range file.Presets {
		if p.Name == "" {
			return Presets{}, fmt.Errorf("preset %d in %s has no name", i, path)
		}
	}

	return NewPresets(file.Presets...), nil
}

func (p Presets) Len() int { return len(p.list) }

func (p Presets) All() []Preset {
	return append([]Preset{}, p.list...)
}

func (p Presets) Names() []string {
	names := make([]string, len(p.list))
	for i, preset := range p.list {
		names[i] = preset.Name
	}
	return names
}

// Select returns the parameters of preset index, or NeutralParams when
// index is out of range.
func (p Presets) Select(index int) Params {
	if index < 0 || index >= len(p.list) {
		return NeutralParams
	}
	return p.list[index].Params
}
