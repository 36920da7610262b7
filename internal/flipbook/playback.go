package flipbook

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

const DefaultInterval = 40 * time.Millisecond

var ErrInvalidInterval = errors.New("interval must be a positive number of milliseconds")

// Playback is the ping-pong cursor over a sequence of Length frames.
type Playback struct {
	Index   int
	Forward bool
	Length  int
}

func NewPlayback(length int) Playback {
	return Playback{Index: 0, Forward: true, Length: length}
}

// Advance moves one step in the current direction. At either end the
// direction flips and the step is taken the other way, so endpoints are
// never shown twice in a row.
func (p *Playback) Advance() int {
	if p.Length <= 1 {
		p.Index = 0
		return p.Index
	}

	if p.Forward {
		if p.Index < p.Length-1 {
			p.Index++
		} else {
			p.Forward = false
			p.Index--
		}
	} else {
		if p.Index > 0 {
			p.Index--
		} else {
			p.Forward = true
			p.Index++
		}
	}

	// the direction always points back into the sequence once a
	// boundary frame is on screen
	switch p.Index {
	case p.Length - 1:
		p.Forward = false
	case 0:
		p.Forward = true
	}

	return p.Index
}

// ParseInterval accepts any positive number of milliseconds. Fractions
// are truncated, so "40.9" is 40ms.
func ParseInterval(text string) (time.Duration, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, ErrInvalidInterval
	}

	ms := math.Trunc(value)
	if ms <= 0 || ms > float64(math.MaxInt64/int64(time.Millisecond)) {
		return 0, ErrInvalidInterval
	}

	return time.Duration(ms) * time.Millisecond, nil
}

// FitSize scales (w, h) by the largest ratio that keeps it inside
// (maxW, maxH). Images smaller than the bounds are scaled up.
func FitSize(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 || maxW <= 0 || maxH <= 0 {
		return w, h
	}

	ratio := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	newW, newH := int(float64(w)*ratio), int(float64(h)*ratio)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	return newW, newH
}
