package pipeline

import (
	"errors"

	"tonal-otsu/internal/opencv/safe"
)

var (
	ErrDecodeFailed      = errors.New("failed to decode image")
	ErrUnsupportedFormat = errors.New("unsupported output format")
)

// Viewer receives intermediate images for preview. Implementations must
// copy what they need: img may be closed once Show returns.
type Viewer interface {
	Show(title string, img *safe.Mat) error
}

const component = "Segmenter"
