package segmentation

import (
	"fmt"

	"tonal-otsu/internal/opencv/safe"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/floats"
)

const (
	grayType = gocv.MatTypeCV8UC1
	histBins = 256
	white    = 255
)

// Histogram counts pixels per 8-bit intensity.
type Histogram [histBins]float64

// Total is the number of pixels counted.
func (h *Histogram) Total() float64 {
	return floats.Sum(h[:])
}

// MaskedHistogram counts intensities of gray where mask is non-zero. Masked-in
// pixels with value 0 are counted like any other.
func MaskedHistogram(gray, mask *safe.Mat) (*Histogram, error) {
	if err := safe.ValidateGray(gray, "masked histogram"); err != nil {
		return nil, err
	}
	if err := safe.ValidateGray(mask, "masked histogram mask"); err != nil {
		return nil, err
	}
	if err := safe.ValidateSameSize(gray, mask, "masked histogram"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSizeMismatch, err)
	}

	histMat := gocv.NewMat()
	defer histMat.Close()

	gocv.CalcHist([]gocv.Mat{gray.GetMat()}, []int{0}, mask.GetMat(), &histMat,
		[]int{histBins}, []float64{0, histBins}, false)

	if histMat.Rows() != histBins {
		return nil, fmt.Errorf("unexpected histogram size %d", histMat.Rows())
	}

	var hist Histogram
	for i := 0; i < histBins; i++ {
		hist[i] = float64(histMat.GetFloatAt(i, 0))
	}
	return &hist, nil
}

// OtsuThreshold picks the cutoff that maximises between-class variance over
// the populated intensity range. The returned value is the highest intensity
// of the lower class; ties resolve to the lowest candidate. A histogram with a
// single populated intensity returns that intensity. ok is false when the
// histogram is empty.
func OtsuThreshold(hist *Histogram) (threshold float64, ok bool) {
	low, high := -1, -1
	for i, c := range hist {
		if c > 0 {
			if low < 0 {
				low = i
			}
			high = i
		}
	}
	if low < 0 {
		return 0, false
	}
	if low == high {
		return float64(low), true
	}

	n := high - low + 1
	counts := hist[low : high+1]
	moments := make([]float64, n)
	for i, c := range counts {
		moments[i] = c * float64(low+i)
	}

	weight1 := floats.CumSum(make([]float64, n), counts)
	sum1 := floats.CumSum(make([]float64, n), moments)
	total, totalMoment := weight1[n-1], sum1[n-1]

	// Candidate i splits [low, low+i] from [low+i+1, high].
	variances := make([]float64, n-1)
	for i := range variances {
		weight2 := total - weight1[i]
		diff := sum1[i]/weight1[i] - (totalMoment-sum1[i])/weight2
		variances[i] = weight1[i] * weight2 * diff * diff
	}

	return float64(low + floats.MaxIdx(variances)), true
}
