package presentation

import (
	"context"
	"fmt"

	"tonal-otsu/internal/config"
	"tonal-otsu/internal/logger"
	"tonal-otsu/internal/opencv/safe"
)

// Viewer previews images. Show copies img; Wait blocks until the user
// dismisses the previews or ctx is done; Close releases any windows.
type Viewer interface {
	Show(title string, img *safe.Mat) error
	Wait(ctx context.Context) error
	Close() error
}

// Picker chooses input and output paths.
type Picker interface {
	PickOpenPath(ctx context.Context) (string, error)
	PickSavePath(ctx context.Context, defaultExt string) (string, error)
}

// Confirmer asks a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// NewViewer builds a standalone viewer for config.ViewerCV or
// config.ViewerNone. fyne previews are served by FyneUI, which also owns the
// dialogs.
func NewViewer(kind string, log logger.Logger) (Viewer, error) {
	switch kind {
	case config.ViewerCV:
		return NewCVViewer(), nil
	case config.ViewerNone:
		return NewNopViewer(log), nil
	default:
		return nil, fmt.Errorf("unknown viewer %q", kind)
	}
}

// NopViewer logs what would have been shown. Used for headless runs.
type NopViewer struct {
	logger logger.Logger
	Titles []string
}

func NewNopViewer(log logger.Logger) *NopViewer {
	return &NopViewer{logger: log}
}

func (v *NopViewer) Show(title string, img *safe.Mat) error {
	if err := safe.ValidateMatForOperation(img, "preview"); err != nil {
		return err
	}
	v.Titles = append(v.Titles, title)
	v.logger.Debug("Viewer", "preview skipped", map[string]interface{}{
		"title":  title,
		"width":  img.Cols(),
		"height": img.Rows(),
	})
	return nil
}

func (v *NopViewer) Wait(ctx context.Context) error { return ctx.Err() }
func (v *NopViewer) Close() error                   { return nil }
