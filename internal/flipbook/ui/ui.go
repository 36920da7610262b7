// Package ui wires the flipbook controller to a fyne window.
package ui

import (
	"errors"
	"image/color"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/disintegration/imaging"
	"github.com/ncruces/zenity"
	"github.com/sirupsen/logrus"

	"github.com/Zelak312/fumkit/internal/flipbook"
	"github.com/Zelak312/fumkit/internal/logging"
)

const appID = "io.github.zelak312.flipbook"

type App struct {
	logger     *logrus.Entry
	app        fyne.App
	window     fyne.Window
	controller *flipbook.Controller
	player     *flipbook.Player

	status    *widget.Label
	interval  *widget.Entry
	selectBtn *widget.Button
	playBtn   *widget.Button
}

func New() *App {
	a := &App{
		logger:     logging.CreateLogger("ui"),
		app:        app.NewWithID(appID),
		controller: flipbook.NewController(),
	}

	a.window = a.app.NewWindow("Flipbook Viewer")
	a.window.SetContent(a.build())
	a.window.Resize(fyne.NewSize(360, 180))
	a.window.SetFixedSize(true)
	return a
}

// Run shows the selection window and blocks until the app quits.
func (a *App) Run() {
	a.window.ShowAndRun()
}

func (a *App) build() fyne.CanvasObject {
	a.selectBtn = widget.NewButton("Select folder", a.selectFolder)

	a.interval = widget.NewEntry()
	a.interval.SetText("40")

	a.playBtn = widget.NewButton("View flipbook", a.startFlipbook)
	a.playBtn.Disable()

	a.status = widget.NewLabel(a.controller.Status())

	return container.NewPadded(container.NewVBox(
		a.selectBtn,
		container.NewBorder(nil, nil, widget.NewLabel("Interval (ms):"), nil, a.interval),
		a.playBtn,
		a.status,
	))
}

func (a *App) selectFolder() {
	a.selectBtn.Disable()

	// the native dialog blocks, keep it off the UI goroutine
	go func() {
		path, err := zenity.SelectFile(
			zenity.Directory(),
			zenity.Title("Select folder"),
		)

		fyne.Do(func() {
			a.selectBtn.Enable()
			if err != nil && !errors.Is(err, zenity.ErrCanceled) {
				a.logger.Error("Folder dialog failed: ", err)
				dialog.ShowError(err, a.window)
				return
			}

			a.onFolder(path)
		})
	}()
}

func (a *App) onFolder(path string) {
	err := a.controller.SelectFolder(path)
	a.status.SetText(a.controller.Status())
	if a.controller.CanPlay() {
		a.playBtn.Enable()
	} else {
		a.playBtn.Disable()
	}

	switch {
	case err == nil:
	case errors.Is(err, flipbook.ErrNoFolder):
		a.logger.Debug("Folder selection cancelled")
	case errors.Is(err, flipbook.ErrNoImages):
		dialog.ShowInformation("No images", "No image files found in the selected folder.", a.window)
	default:
		dialog.ShowError(err, a.window)
	}
}

func (a *App) startFlipbook() {
	if !a.controller.CanPlay() {
		dialog.ShowInformation("No folder", "Please select a folder with images first.", a.window)
		return
	}

	if a.player != nil && a.player.Running() {
		return
	}

	display := newFlipWindow(a.app)
	player, err := a.controller.Start(a.interval.Text, display, scheduler{}, a.onFlipbookExit)
	if err != nil {
		display.Close()
		a.interval.SetText(formatMillis(a.controller.Interval()))
		if errors.Is(err, flipbook.ErrInvalidInterval) {
			dialog.ShowInformation("Invalid interval", "Please enter a positive number of milliseconds.", a.window)
			return
		}
		dialog.ShowError(err, a.window)
		return
	}

	a.player = player
	display.bind(player)
	a.window.Hide()
}

func (a *App) onFlipbookExit() {
	a.player = nil
	a.window.Show()
	a.window.RequestFocus()
}

func formatMillis(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}

// scheduler runs callbacks on the fyne event loop.
type scheduler struct{}

func (scheduler) After(d time.Duration, fn func()) func() {
	timer := time.AfterFunc(d, func() {
		fyne.Do(fn)
	})
	return func() { timer.Stop() }
}

// flipWindow is the full screen Display.
type flipWindow struct {
	logger *logrus.Entry
	window fyne.Window
	image  *canvas.Image
	closed bool
}

func newFlipWindow(a fyne.App) *flipWindow {
	f := &flipWindow{
		logger: logging.CreateLogger("flipwindow"),
		window: a.NewWindow("Flipbook"),
		image:  canvas.NewImageFromImage(nil),
	}
	f.image.FillMode = canvas.ImageFillContain
	f.window.SetContent(container.NewStack(canvas.NewRectangle(color.Black), f.image))
	f.window.SetPadded(false)
	f.window.SetFullScreen(true)
	return f
}

// Open shows the full screen window before the first frame is fitted to
// its canvas.
func (f *flipWindow) Open() {
	f.window.Show()
	f.window.RequestFocus()
}

// bind routes Escape and window close to the player.
func (f *flipWindow) bind(player *flipbook.Player) {
	f.window.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			player.Cancel()
		}
	})
	f.window.SetCloseIntercept(player.Cancel)
}

func (f *flipWindow) Show(path string, index int, total int) error {
	src, err := imaging.Open(path)
	if err != nil {
		return err
	}

	maxW, maxH := f.bounds()
	bounds := src.Bounds()
	w, h := flipbook.FitSize(bounds.Dx(), bounds.Dy(), maxW, maxH)
	if w != bounds.Dx() || h != bounds.Dy() {
		src = imaging.Resize(src, w, h, imaging.Lanczos)
	}

	f.image.Image = src
	f.image.Refresh()
	f.window.SetTitle(path)
	return nil
}

func (f *flipWindow) bounds() (int, int) {
	c := f.window.Canvas()
	size := c.Size()
	scale := c.Scale()
	return int(size.Width * scale), int(size.Height * scale)
}

func (f *flipWindow) Close() {
	if f.closed {
		return
	}
	f.closed = true
	f.window.Close()
}
