package presentation

import (
	"context"
	"fmt"

	"tonal-otsu/internal/opencv/safe"

	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

// waitKeyPoll is how long Wait blocks in highgui before checking ctx again.
const waitKeyPoll = 50

// CVViewer opens one OpenCV highgui window per title.
type CVViewer struct {
	windows map[string]*gocv.Window
	order   []string
}

func NewCVViewer() *CVViewer {
	return &CVViewer{windows: make(map[string]*gocv.Window)}
}

func (v *CVViewer) Show(title string, img *safe.Mat) error {
	if err := safe.ValidateMatForOperation(img, "preview"); err != nil {
		return err
	}

	window, ok := v.windows[title]
	if !ok {
		window = gocv.NewWindow(title)
		if window == nil {
			return fmt.Errorf("failed to open window %q", title)
		}
		v.windows[title] = window
		v.order = append(v.order, title)
	}

	window.IMShow(img.GetMat())
	window.WaitKey(1)
	return nil
}

// Wait blocks until a key is pressed in the last window, that window is
// closed or ctx is done.
func (v *CVViewer) Wait(ctx context.Context) error {
	if len(v.order) == 0 {
		return nil
	}

	last := v.windows[v.order[len(v.order)-1]]
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if last.WaitKey(waitKeyPoll) >= 0 || !last.IsOpen() {
			return nil
		}
	}
}

func (v *CVViewer) Close() error {
	var err error
	for _, title := range v.order {
		err = multierr.Append(err, v.windows[title].Close())
	}
	v.windows = make(map[string]*gocv.Window)
	v.order = nil
	return err
}
