package segmentation

import "errors"

var (
	ErrNotGrayscale       = errors.New("image is not single-channel 8-bit")
	ErrTooFewEdges        = errors.New("at least two band edges are required")
	ErrBoundaryOutOfRange = errors.New("band boundary outside 0..255")
	ErrInvalidBlur        = errors.New("invalid blur parameters")
	ErrInvalidCutoff      = errors.New("threshold cutoff outside 0..255")
	ErrInvalidScale       = errors.New("preview scale must be positive")
	ErrNoResults          = errors.New("no band results to merge")
	ErrNotEnoughToMerge   = errors.New("not enough non-empty band results to merge")
	ErrSizeMismatch       = errors.New("band results differ in size")
)
