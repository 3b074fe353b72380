package segmentation

import (
	"fmt"

	"tonal-otsu/internal/opencv/safe"

	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

// Threshold is a per-band Otsu cutoff. Valid is false for empty bands.
type Threshold struct {
	Value float64
	Valid bool
}

// BandResults holds the outputs of ThresholdBands, indexed by band.
type BandResults struct {
	// Masked is the original grayscale image with every pixel outside the band
	// set to zero.
	Masked     []*safe.Mat
	Thresholds []Threshold
	// Binary is nil for bands listed in Empty.
	Binary []*safe.Mat
	Empty  []int
}

// Close releases every Mat held by r.
func (r *BandResults) Close() error {
	if r == nil {
		return nil
	}

	var err error
	for _, m := range r.Masked {
		err = multierr.Append(err, m.Close())
	}
	for _, m := range r.Binary {
		err = multierr.Append(err, m.Close())
	}
	return err
}

// ThresholdBands binarizes each band of gray with an Otsu cutoff computed
// from that band's pixels only. Empty bands are recorded in Empty and get
// neither a threshold nor a binary image.
func ThresholdBands(gray *safe.Mat, bands []ToneBand) (*BandResults, error) {
	if err := safe.ValidateGray(gray, "band threshold"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotGrayscale, err)
	}

	rows, cols := gray.Rows(), gray.Cols()
	results := &BandResults{
		Masked:     make([]*safe.Mat, 0, len(bands)),
		Thresholds: make([]Threshold, 0, len(bands)),
		Binary:     make([]*safe.Mat, 0, len(bands)),
	}

	for i, band := range bands {
		masked, threshold, binary, err := thresholdBand(gray, rows, cols, band)
		if err != nil {
			return nil, multierr.Combine(fmt.Errorf("band %d: %w", i, err), results.Close())
		}

		results.Masked = append(results.Masked, masked)
		results.Thresholds = append(results.Thresholds, threshold)
		results.Binary = append(results.Binary, binary)
		if binary == nil {
			results.Empty = append(results.Empty, i)
		}
	}

	return results, nil
}

func thresholdBand(gray *safe.Mat, rows, cols int, band ToneBand) (*safe.Mat, Threshold, *safe.Mat, error) {
	mask, err := BandMask(rows, cols, band)
	if err != nil {
		return nil, Threshold{}, nil, err
	}
	defer mask.Close()

	masked, err := safe.NewMat(rows, cols, grayType)
	if err != nil {
		return nil, Threshold{}, nil, err
	}
	maskedMat := masked.GetMat()
	gocv.BitwiseAndWithMask(gray.GetMat(), gray.GetMat(), &maskedMat, mask.GetMat())

	if band.Empty() {
		return masked, Threshold{}, nil, nil
	}

	hist, err := MaskedHistogram(gray, mask)
	if err != nil {
		return nil, Threshold{}, nil, multierr.Combine(err, masked.Close())
	}

	value, ok := OtsuThreshold(hist)
	if !ok {
		return masked, Threshold{}, nil, nil
	}

	binary, err := binarize(masked, value)
	if err != nil {
		return nil, Threshold{}, nil, multierr.Combine(err, masked.Close())
	}

	return masked, Threshold{Value: value, Valid: true}, binary, nil
}

// Rethreshold binarizes img at cutoff without recomputing Otsu. Samples above
// the cutoff become 255, all others 0. Multi-channel images are thresholded per
// channel and keep their type.
func Rethreshold(img *safe.Mat, cutoff float64) (*safe.Mat, error) {
	if cutoff < minIntensity || cutoff > maxIntensity {
		return nil, fmt.Errorf("%w: %g", ErrInvalidCutoff, cutoff)
	}
	if err := safe.ValidateMatForOperation(img, "rethreshold"); err != nil {
		return nil, err
	}
	return binarize(img, cutoff)
}

func binarize(src *safe.Mat, cutoff float64) (*safe.Mat, error) {
	dst, err := safe.NewMat(src.Rows(), src.Cols(), src.Type())
	if err != nil {
		return nil, err
	}

	dstMat := dst.GetMat()
	gocv.Threshold(src.GetMat(), &dstMat, float32(cutoff), white, gocv.ThresholdBinary)

	return dst, nil
}
