package presentation

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tonal-otsu/internal/logger"
	"tonal-otsu/internal/opencv/safe"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type uriReader struct {
	*strings.Reader
	uri fyne.URI
}

func (r uriReader) Close() error  { return nil }
func (r uriReader) URI() fyne.URI { return r.uri }

type uriWriter struct {
	uri fyne.URI
}

func (w uriWriter) Write(p []byte) (int, error) { return len(p), nil }
func (w uriWriter) Close() error                { return nil }
func (w uriWriter) URI() fyne.URI               { return w.uri }

func newTestUI(t *testing.T) *FyneUI {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)
	return NewFyneUI(a, logger.Nop())
}

func tabCount(ui *FyneUI) (n int, selected string) {
	fyne.DoAndWait(func() {
		n = len(ui.tabs.Items)
		if item := ui.tabs.Selected(); item != nil {
			selected = item.Text
		}
	})
	return n, selected
}

func TestFyneUIShowAddsTabs(t *testing.T) {
	img, err := safe.NewMat(1200, 900, gocv.MatTypeCV8UC1)
	require.NoError(t, err)

	ui := newTestUI(t)
	require.NoError(t, ui.Show("ORIGINAL", img))
	require.NoError(t, ui.Show("Result", img))
	require.NoError(t, img.Close())

	require.Eventually(t, func() bool {
		n, _ := tabCount(ui)
		return n == 2
	}, time.Second, 10*time.Millisecond)

	_, selected := tabCount(ui)
	assert.Equal(t, "Result", selected)
}

func TestFyneUIWaitForContinue(t *testing.T) {
	ui := newTestUI(t)

	result := make(chan error, 1)
	go func() { result <- ui.Wait(context.Background()) }()

	require.Eventually(t, func() bool {
		var enabled bool
		fyne.DoAndWait(func() { enabled = !ui.next.Disabled() })
		return enabled
	}, time.Second, 10*time.Millisecond)

	fyne.DoAndWait(func() { test.Tap(ui.next) })

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Continue")
	}
}

func TestFyneUIConfirm(t *testing.T) {
	ui := newTestUI(t)
	var asked string
	ui.showConfirm = func(_, message string, callback func(bool), _ fyne.Window) {
		asked = message
		callback(true)
	}

	ok, err := ui.Confirm(context.Background(), "Save?")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Save?", asked)
}

func TestFyneUIConfirmStopsOnCancel(t *testing.T) {
	ui := newTestUI(t)
	ctx, cancel := context.WithCancel(context.Background())

	result := make(chan error, 1)
	go func() {
		_, err := ui.Confirm(ctx, "Save?")
		result <- err
	}()

	require.Eventually(t, func() bool {
		var shown bool
		fyne.DoAndWait(func() { shown = ui.window.Canvas().Overlays().Top() != nil })
		return shown
	}, time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Confirm ignored the cancelled context")
	}
}

func TestFyneUIClosedWindowCancels(t *testing.T) {
	ui := newTestUI(t)
	require.NoError(t, ui.Close())

	_, err := ui.Confirm(context.Background(), "Save?")
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, ui.Wait(context.Background()), ErrCancelled)
	assert.NoError(t, ui.Close())
}

func TestFyneUIPickOpenPath(t *testing.T) {
	ui := newTestUI(t)
	path := filepath.Join(t.TempDir(), "in.png")

	ui.showFileOpen = func(callback func(fyne.URIReadCloser, error), _ fyne.Window) {
		callback(uriReader{Reader: strings.NewReader(""), uri: storage.NewFileURI(path)}, nil)
	}
	got, err := ui.PickOpenPath(context.Background())
	require.NoError(t, err)
	assert.Equal(t, path, got)

	ui.showFileOpen = func(callback func(fyne.URIReadCloser, error), _ fyne.Window) {
		callback(nil, nil)
	}
	_, err = ui.PickOpenPath(context.Background())
	assert.ErrorIs(t, err, ErrCancelled)

	denied := errors.New("permission denied")
	ui.showFileOpen = func(callback func(fyne.URIReadCloser, error), _ fyne.Window) {
		callback(nil, denied)
	}
	_, err = ui.PickOpenPath(context.Background())
	assert.ErrorIs(t, err, denied)
}

func TestFyneUIPickSavePathAddsExtension(t *testing.T) {
	ui := newTestUI(t)
	dir := t.TempDir()
	bare := filepath.Join(dir, "picked")
	require.NoError(t, os.WriteFile(bare, nil, 0o644))

	ui.showFileSave = func(callback func(fyne.URIWriteCloser, error), _ fyne.Window) {
		callback(uriWriter{uri: storage.NewFileURI(bare)}, nil)
	}
	got, err := ui.PickSavePath(context.Background(), ".bmp")
	require.NoError(t, err)
	assert.Equal(t, bare+".bmp", got)
	assert.NoFileExists(t, bare)

	named := filepath.Join(dir, "named.png")
	ui.showFileSave = func(callback func(fyne.URIWriteCloser, error), _ fyne.Window) {
		callback(uriWriter{uri: storage.NewFileURI(named)}, nil)
	}
	got, err = ui.PickSavePath(context.Background(), ".bmp")
	require.NoError(t, err)
	assert.Equal(t, named, got)

	ui.showFileSave = func(callback func(fyne.URIWriteCloser, error), _ fyne.Window) {
		callback(nil, nil)
	}
	_, err = ui.PickSavePath(context.Background(), ".bmp")
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestFyneUIRunReturnsWorkError(t *testing.T) {
	ui := newTestUI(t)
	failed := errors.New("segmentation failed")

	err := ui.Run(context.Background(), func(context.Context) error { return failed })
	assert.ErrorIs(t, err, failed)
}

func TestThumbnail(t *testing.T) {
	small := image.NewGray(image.Rect(0, 0, 10, 20))
	assert.Same(t, small, Thumbnail(small, 100, 100))

	wide := image.NewGray(image.Rect(0, 0, 400, 100))
	b := Thumbnail(wide, 200, 200).Bounds()
	assert.Equal(t, 200, b.Dx())
	assert.Equal(t, 50, b.Dy())
}
