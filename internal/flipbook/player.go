package flipbook

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Zelak312/fumkit/internal/logging"
)

// Display renders one frame at a time. Open is called once before the
// first frame so the display has its final size when that frame is fitted.
type Display interface {
	Open()
	Show(path string, index int, total int) error
	Close()
}

// Scheduler runs fn once after d on the UI goroutine. The returned
// function stops the timer if it has not fired yet.
type Scheduler interface {
	After(d time.Duration, fn func()) (stop func())
}

// Player drives a Display through a sequence with ping-pong playback.
// All methods must be called from the UI goroutine.
type Player struct {
	logger   *logrus.Entry
	files    []string
	interval time.Duration
	display  Display
	sched    Scheduler
	onExit   func()

	playback   Playback
	generation uint64
	stop       func()
	running    bool
}

func NewPlayer(files []string, interval time.Duration, display Display, sched Scheduler, onExit func()) *Player {
	return &Player{
		logger:   logging.CreateLogger("player"),
		files:    files,
		interval: interval,
		display:  display,
		sched:    sched,
		onExit:   onExit,
	}
}

func (p *Player) Start() error {
	if len(p.files) == 0 {
		return ErrNoImages
	}

	if p.interval <= 0 {
		return ErrInvalidInterval
	}

	if p.running {
		return errors.New("player already running")
	}

	p.logger.WithField("interval", p.interval).
		WithField("frames", len(p.files)).
		Debug("Start flipbook")

	p.running = true
	p.playback = NewPlayback(len(p.files))
	p.display.Open()
	p.show()
	p.schedule()
	return nil
}

func (p *Player) Running() bool {
	return p.running
}

// Index is the frame currently on screen.
func (p *Player) Index() int {
	return p.playback.Index
}

// Cancel stops playback. A callback that was already queued before the
// call finds a stale generation and does nothing.
func (p *Player) Cancel() {
	if !p.running {
		return
	}

	p.running = false
	p.generation++
	if p.stop != nil {
		p.stop()
		p.stop = nil
	}

	p.display.Close()
	p.logger.Debug("Flipbook closed")
	if p.onExit != nil {
		p.onExit()
	}
}

func (p *Player) schedule() {
	gen := p.generation
	p.stop = p.sched.After(p.interval, func() {
		p.tick(gen)
	})
}

func (p *Player) tick(gen uint64) {
	if !p.running || gen != p.generation {
		return
	}

	p.playback.Advance()
	p.show()
	p.schedule()
}

func (p *Player) show() {
	index := p.playback.Index
	path := p.files[index]
	p.logger.Debugf("Show image %d/%d: %s", index+1, len(p.files), path)

	if err := p.display.Show(path, index, len(p.files)); err != nil {
		p.logger.WithField("file", path).Warn("Failed to show image: ", err)
	}
}
