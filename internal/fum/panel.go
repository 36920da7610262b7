package fum

// Slider is a labeled numeric input.
type Slider struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Step  float64 `json:"step"`
	Value float64 `json:"value"`
}

type Checkbox struct {
	Label string `json:"label"`
	Value bool   `json:"value"`
}

// Dropdown selects a preset by index.
type Dropdown struct {
	Label   string   `json:"label"`
	Choices []string `json:"choices"`
	Value   string   `json:"value"`
}

// Panel describes the accordion the host renders for the script.
type Panel struct {
	Title        string   `json:"title"`
	ElemID       string   `json:"elemId"`
	Enabled      bool     `json:"enabled"`
	B1           Slider   `json:"b1"`
	B2           Slider   `json:"b2"`
	S1           Slider   `json:"s1"`
	S2           Slider   `json:"s2"`
	Start        Slider   `json:"start"`
	End          Slider   `json:"end"`
	Preset       Dropdown `json:"preset"`
	RandomMove   Checkbox `json:"randomMove"`
	SimpleMoveS1 Checkbox `json:"simpleMoveS1"`
}
