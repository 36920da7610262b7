package fum

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

const (
	InitialS1 = 0.99
	InitialS2 = 0.95

	RandomStep = 0.01
	DriftStep  = 0.002

	ScaleMin = 0.0
	ScaleMax = 4.0
)

// Session is the state the patch carries between sampling passes: the
// drifted S1/S2, the mode flags, the active step window and the device
// table. It survives across jobs until Reset is called.
type Session struct {
	ID         uuid.UUID
	LastS1     float64
	LastS2     float64
	RandomMove bool
	SimpleMove bool
	Start      float64
	End        float64
	Devices    *DeviceTable

	active bool
	rng    *rand.Rand
}

// NewSession seeds the random walk with seed, or with the clock when
// seed is 0.
func NewSession(seed int64) *Session {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Session{
		Devices: NewDeviceTable(),
		rng:     rand.New(rand.NewSource(seed)),
	}
	s.Reset()
	return s
}

// Reset restores the initial drift values and step window. Devices
// already degraded stay CPU-only.
func (s *Session) Reset() {
	s.ID = uuid.New()
	s.LastS1 = InitialS1
	s.LastS2 = InitialS2
	s.RandomMove = false
	s.SimpleMove = false
	s.Start = 0
	s.End = 1
	s.active = true
}

// Active reports whether the current sampling step is inside the window.
func (s *Session) Active() bool {
	return s.active
}

func (s *Session) SetStep(fraction float64) {
	s.active = fraction >= s.Start && fraction <= s.End
}

// RandomWalk moves S1 and S2 by ±RandomStep each.
func (s *Session) RandomWalk() (float64, float64) {
	s.LastS1 = clampScale(s.LastS1 + s.randomStep())
	s.LastS2 = clampScale(s.LastS2 + s.randomStep())
	return s.LastS1, s.LastS2
}

// MonotonicDrift raises S1 by DriftStep and keeps S2.
func (s *Session) MonotonicDrift() (float64, float64) {
	s.LastS1 = clampScale(s.LastS1 + DriftStep)
	s.LastS2 = clampScale(s.LastS2)
	return s.LastS1, s.LastS2
}

func (s *Session) randomStep() float64 {
	if s.rng.Intn(2) == 0 {
		return -RandomStep
	}
	return RandomStep
}

func clampScale(v float64) float64 {
	if v < ScaleMin {
		return ScaleMin
	}
	if v > ScaleMax {
		return ScaleMax
	}
	return v
}
