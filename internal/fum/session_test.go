package fum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSession(t *testing.T) {
	s := NewSession(1)
	assert.Equal(t, InitialS1, s.LastS1)
	assert.Equal(t, InitialS2, s.LastS2)
	assert.True(t, s.Active())
	assert.Equal(t, 0.0, s.Start)
	assert.Equal(t, 1.0, s.End)
}

func TestRandomWalkStaysInRange(t *testing.T) {
	s := NewSession(7)
	prev1, prev2 := s.LastS1, s.LastS2

	for i := 0; i < 20000; i++ {
		s1, s2 := s.RandomWalk()
		assert.GreaterOrEqual(t, s1, ScaleMin)
		assert.LessOrEqual(t, s1, ScaleMax)
		assert.GreaterOrEqual(t, s2, ScaleMin)
		assert.LessOrEqual(t, s2, ScaleMax)
		assert.LessOrEqual(t, math.Abs(s1-prev1), RandomStep+1e-9)
		assert.LessOrEqual(t, math.Abs(s2-prev2), RandomStep+1e-9)
		assert.Equal(t, s1, s.LastS1)
		prev1, prev2 = s1, s2
	}
}

func TestRandomWalkClampsAtZero(t *testing.T) {
	s := NewSession(3)
	s.LastS1, s.LastS2 = 0, 0

	for i := 0; i < 100; i++ {
		s1, s2 := s.RandomWalk()
		assert.GreaterOrEqual(t, s1, 0.0)
		assert.GreaterOrEqual(t, s2, 0.0)
	}
}

func TestMonotonicDrift(t *testing.T) {
	s := NewSession(1)

	s1, s2 := s.MonotonicDrift()
	assert.InDelta(t, 0.992, s1, 1e-12)
	assert.Equal(t, InitialS2, s2)

	prev := s1
	for i := 0; i < 3000; i++ {
		s1, s2 = s.MonotonicDrift()
		assert.GreaterOrEqual(t, s1, prev)
		assert.LessOrEqual(t, s1, ScaleMax)
		prev = s1
	}
	assert.Equal(t, ScaleMax, s1)
	assert.Equal(t, InitialS2, s2)
}

func TestSessionReset(t *testing.T) {
	s := NewSession(1)
	id := s.ID
	s.MonotonicDrift()
	s.RandomMove = true
	s.Start, s.End = 0.5, 0.6
	s.SetStep(0)
	assert.False(t, s.Active())

	s.Reset()
	assert.NotEqual(t, id, s.ID)
	assert.Equal(t, InitialS1, s.LastS1)
	assert.False(t, s.RandomMove)
	assert.True(t, s.Active())
	assert.Equal(t, 1.0, s.End)
}

func TestSetStepWindow(t *testing.T) {
	s := NewSession(1)
	s.Start, s.End = 0.25, 0.75

	for fraction, want := range map[float64]bool{
		0:    false,
		0.25: true,
		0.5:  true,
		0.75: true,
		1:    false,
	} {
		s.SetStep(fraction)
		assert.Equal(t, want, s.Active(), "fraction %v", fraction)
	}
}
