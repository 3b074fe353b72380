package segmentation

import (
	"fmt"
	"image"

	"tonal-otsu/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// BlurParams configures the Gaussian blur. KernelSize 0 lets OpenCV derive the
// kernel from Sigma; any other value must be positive and odd.
type BlurParams struct {
	KernelSize int     `yaml:"kernel_size"`
	Sigma      float64 `yaml:"sigma"`
}

// DefaultBlurParams matches the blur used for partitioning: auto kernel, sigma 1.
func DefaultBlurParams() BlurParams {
	return BlurParams{KernelSize: 0, Sigma: 1.0}
}

func (p BlurParams) Validate() error {
	if p.KernelSize < 0 || (p.KernelSize > 0 && p.KernelSize%2 == 0) {
		return fmt.Errorf("%w: kernel size must be 0 or a positive odd number, got %d", ErrInvalidBlur, p.KernelSize)
	}
	if p.Sigma < 0 {
		return fmt.Errorf("%w: sigma must not be negative, got %g", ErrInvalidBlur, p.Sigma)
	}
	if p.KernelSize == 0 && p.Sigma == 0 {
		return fmt.Errorf("%w: sigma must be positive when the kernel is auto-sized", ErrInvalidBlur)
	}
	return nil
}

// Grayscale converts a BGR or BGRA image to a single channel. Gray input is
// cloned.
func Grayscale(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "grayscale conversion"); err != nil {
		return nil, err
	}

	if src.Channels() == 1 {
		return src.Clone()
	}

	var code gocv.ColorConversionCode
	switch src.Channels() {
	case 3:
		code = gocv.ColorBGRToGray
	case 4:
		code = gocv.ColorBGRAToGray
	default:
		return nil, fmt.Errorf("unsupported channel count for grayscale conversion: %d", src.Channels())
	}

	dst, err := safe.NewMat(src.Rows(), src.Cols(), gocv.MatTypeCV8UC1)
	if err != nil {
		return nil, fmt.Errorf("destination Mat creation failed: %w", err)
	}

	dstMat := dst.GetMat()
	gocv.CvtColor(src.GetMat(), &dstMat, code)

	return dst, nil
}

// Blur applies a separable Gaussian with equal horizontal and vertical sigma.
func Blur(src *safe.Mat, params BlurParams) (*safe.Mat, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := safe.ValidateMatForOperation(src, "gaussian blur"); err != nil {
		return nil, err
	}

	dst, err := safe.NewMat(src.Rows(), src.Cols(), src.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	ksize := image.Point{X: params.KernelSize, Y: params.KernelSize}
	dstMat := dst.GetMat()
	gocv.GaussianBlur(src.GetMat(), &dstMat, ksize, params.Sigma, params.Sigma, gocv.BorderConstant)

	return dst, nil
}

// Reblur re-applies the blur with a new sigma and an auto-sized kernel, for
// interactive adjustment.
func Reblur(src *safe.Mat, sigma float64) (*safe.Mat, error) {
	if sigma <= 0 {
		return nil, fmt.Errorf("%w: sigma must be positive, got %g", ErrInvalidBlur, sigma)
	}
	return Blur(src, BlurParams{KernelSize: 0, Sigma: sigma})
}
