package presentation

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"tonal-otsu/internal/logger"
	"tonal-otsu/internal/opencv/conversion"
	"tonal-otsu/internal/opencv/safe"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/disintegration/imaging"
)

const (
	AppID = "com.imageprocessing.tonal-otsu"

	ImageAreaWidth  = 800
	ImageAreaHeight = 600

	shutdownTimeout = 5 * time.Second
)

// FyneUI is the fyne front end. It shows previews as tabs of one window and
// asks its questions through fyne dialogs, all within a single app
// lifecycle started by Run.
type FyneUI struct {
	app    fyne.App
	window fyne.Window
	tabs   *container.AppTabs
	next   *widget.Button
	logger logger.Logger

	closed    chan struct{}
	closeOnce sync.Once

	showConfirm  func(title, message string, callback func(bool), parent fyne.Window)
	showFileOpen func(callback func(fyne.URIReadCloser, error), parent fyne.Window)
	showFileSave func(callback func(fyne.URIWriteCloser, error), parent fyne.Window)
}

func NewFyneUI(a fyne.App, log logger.Logger) *FyneUI {
	ui := &FyneUI{
		app:          a,
		window:       a.NewWindow("Tonal Otsu"),
		tabs:         container.NewAppTabs(),
		logger:       log,
		closed:       make(chan struct{}),
		showConfirm:  dialog.ShowConfirm,
		showFileOpen: dialog.ShowFileOpen,
		showFileSave: dialog.ShowFileSave,
	}

	ui.next = widget.NewButton("Continue", nil)
	ui.next.Disable()

	ui.window.SetContent(container.NewBorder(nil, ui.next, nil, nil, ui.tabs))
	ui.window.Resize(fyne.NewSize(ImageAreaWidth, ImageAreaHeight))
	ui.window.SetMaster()
	ui.window.SetOnClosed(ui.markClosed)
	return ui
}

func (ui *FyneUI) markClosed() {
	ui.closeOnce.Do(func() { close(ui.closed) })
}

func (ui *FyneUI) isClosed() bool {
	select {
	case <-ui.closed:
		return true
	default:
		return false
	}
}

// do schedules fn on the fyne thread.
func (ui *FyneUI) do(fn func()) error {
	if ui.isClosed() {
		return ErrCancelled
	}
	fyne.Do(fn)
	return nil
}

// await posts a dialog and blocks until it replies, the window goes away or
// ctx is done.
func await[T any](ctx context.Context, ui *FyneUI, post func(reply func(T))) (T, error) {
	var zero T
	replies := make(chan T, 1)
	reply := func(v T) {
		select {
		case replies <- v:
		default:
		}
	}

	if err := ui.do(func() { post(reply) }); err != nil {
		return zero, err
	}

	select {
	case v := <-replies:
		return v, nil
	case <-ui.closed:
		return zero, ErrCancelled
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

type picked struct {
	path string
	err  error
}

// Run shows the window and runs the fyne event loop on the calling
// goroutine while work runs on another. The loop ends when work returns,
// the window is closed or ctx is done. Must be called from the main
// goroutine.
func (ui *FyneUI) Run(ctx context.Context, work func(context.Context) error) error {
	done := make(chan error, 1)
	go func() {
		done <- work(ctx)
		_ = ui.do(ui.app.Quit)
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = ui.do(ui.app.Quit)
		case <-ui.closed:
		}
	}()

	ui.window.Show()
	ui.app.Run()
	ui.markClosed()

	select {
	case err := <-done:
		return err
	case <-time.After(shutdownTimeout):
		return fmt.Errorf("ui work did not stop within %s", shutdownTimeout)
	}
}

func (ui *FyneUI) Show(title string, img *safe.Mat) error {
	goImg, err := conversion.MatToImage(img)
	if err != nil {
		return err
	}
	thumb := Thumbnail(goImg, ImageAreaWidth, ImageAreaHeight)

	return ui.do(func() {
		view := canvas.NewImageFromImage(thumb)
		view.FillMode = canvas.ImageFillContain
		view.ScaleMode = canvas.ImageScaleFastest
		view.SetMinSize(fyne.NewSize(ImageAreaWidth/2, ImageAreaHeight/2))

		item := container.NewTabItem(title, view)
		ui.tabs.Append(item)
		ui.tabs.Select(item)
	})
}

// Wait enables the Continue button and blocks until it is tapped.
func (ui *FyneUI) Wait(ctx context.Context) error {
	_, err := await(ctx, ui, func(reply func(struct{})) {
		ui.next.OnTapped = func() {
			ui.next.Disable()
			reply(struct{}{})
		}
		ui.next.Enable()
	})
	return err
}

func (ui *FyneUI) Confirm(ctx context.Context, question string) (bool, error) {
	return await(ctx, ui, func(reply func(bool)) {
		ui.showConfirm("Tonal Otsu", question, reply, ui.window)
	})
}

func (ui *FyneUI) PickOpenPath(ctx context.Context) (string, error) {
	res, err := await(ctx, ui, func(reply func(picked)) {
		ui.showFileOpen(func(reader fyne.URIReadCloser, err error) {
			if err != nil {
				reply(picked{err: err})
				return
			}
			if reader == nil {
				reply(picked{err: ErrCancelled})
				return
			}
			reply(picked{path: reader.URI().Path(), err: reader.Close()})
		}, ui.window)
	})
	if err != nil {
		return "", err
	}
	return res.path, res.err
}

// PickSavePath asks for a target file. The save dialog creates the file, so
// it is removed again when defaultExt has to be appended.
func (ui *FyneUI) PickSavePath(ctx context.Context, defaultExt string) (string, error) {
	res, err := await(ctx, ui, func(reply func(picked)) {
		ui.showFileSave(func(writer fyne.URIWriteCloser, err error) {
			if err != nil {
				reply(picked{err: err})
				return
			}
			if writer == nil {
				reply(picked{err: ErrCancelled})
				return
			}
			reply(picked{path: writer.URI().Path(), err: writer.Close()})
		}, ui.window)
	})
	if err != nil {
		return "", err
	}
	if res.err != nil {
		return "", res.err
	}

	path := withDefaultExt(res.path, defaultExt)
	if path != res.path {
		if err := os.Remove(res.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			ui.logger.Warning("FyneUI", "could not remove placeholder file", map[string]interface{}{
				"path":  res.path,
				"error": err.Error(),
			})
		}
	}
	return path, nil
}

func (ui *FyneUI) Close() error {
	if ui.isClosed() {
		return nil
	}
	ui.markClosed()
	fyne.Do(ui.window.Close)
	return nil
}

// Thumbnail shrinks img to fit within width x height. Smaller images are
// returned unchanged.
func Thumbnail(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() <= width && b.Dy() <= height {
		return img
	}
	return imaging.Fit(img, width, height, imaging.Lanczos)
}
