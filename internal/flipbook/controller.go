// Package flipbook holds the toolkit independent state of the flipbook
// viewer: folder selection, interval validation and ping-pong playback.
package flipbook

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Zelak312/fumkit/internal/logging"
	"github.com/Zelak312/fumkit/internal/sequence"
)

var (
	ErrNoFolder = errors.New("no folder with images selected")
	ErrNoImages = errors.New("no image files found in folder")
)

const (
	StatusNoFolder = "No folder selected"
	StatusNoImages = "No valid images"
)

// Controller is the state behind the selection window.
type Controller struct {
	logger   *logrus.Entry
	folder   string
	files    []string
	interval time.Duration
	status   string
}

func NewController() *Controller {
	return &Controller{
		logger:   logging.CreateLogger("flipbook"),
		interval: DefaultInterval,
		status:   StatusNoFolder,
	}
}

func (c *Controller) Status() string          { return c.status }
func (c *Controller) Files() []string         { return c.files }
func (c *Controller) Interval() time.Duration { return c.interval }
func (c *Controller) CanPlay() bool           { return len(c.files) > 0 }

// SelectFolder loads the image list of path. An empty path (dialog
// cancelled) leaves the current state untouched.
func (c *Controller) SelectFolder(path string) error {
	if path == "" {
		return ErrNoFolder
	}

	files, err := sequence.List(path, sequence.Images())
	if err != nil {
		return fmt.Errorf("reading folder: %w", err)
	}

	c.folder = path
	if len(files) == 0 {
		c.files = nil
		c.status = StatusNoImages
		c.logger.WithField("folder", path).Info("No images found")
		return ErrNoImages
	}

	c.files = files
	c.status = fmt.Sprintf("Folder: %s (%d images)", filepath.Base(path), len(files))
	c.logger.WithField("folder", path).
		WithField("count", len(files)).
		Info("Folder selected")
	return nil
}

// Start validates the interval text and starts a player. On a bad
// interval the previous value is kept.
func (c *Controller) Start(intervalText string, display Display, sched Scheduler, onExit func()) (*Player, error) {
	if !c.CanPlay() {
		return nil, ErrNoFolder
	}

	interval, err := ParseInterval(intervalText)
	if err != nil {
		c.logger.WithField("input", intervalText).Debug("Rejected interval")
		return nil, err
	}

	c.interval = interval
	player := NewPlayer(c.files, c.interval, display, sched, onExit)
	if err := player.Start(); err != nil {
		return nil, err
	}

	return player, nil
}
