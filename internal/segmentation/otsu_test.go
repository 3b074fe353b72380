package segmentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func histogramOf(values ...int) *Histogram {
	var h Histogram
	for _, v := range values {
		h[v]++
	}
	return &h
}

func TestOtsuThresholdEmpty(t *testing.T) {
	_, ok := OtsuThreshold(&Histogram{})
	assert.False(t, ok)
}

func TestOtsuThresholdSingleValue(t *testing.T) {
	v, ok := OtsuThreshold(histogramOf(42, 42, 42))
	require.True(t, ok)
	assert.Equal(t, 42.0, v)
}

func TestOtsuThresholdBimodalPicksLowerPeak(t *testing.T) {
	v, ok := OtsuThreshold(histogramOf(10, 10, 10, 200, 200, 200))
	require.True(t, ok)
	assert.Equal(t, 10.0, v)
}

func TestOtsuThresholdEvenSpread(t *testing.T) {
	v, ok := OtsuThreshold(histogramOf(10, 15, 20, 25, 30, 35, 40, 45))
	require.True(t, ok)
	assert.Equal(t, 25.0, v)

	v, ok = OtsuThreshold(histogramOf(150, 160, 170, 180, 200, 210, 220, 230))
	require.True(t, ok)
	assert.Equal(t, 180.0, v)
}

func TestOtsuThresholdSeparatesClusters(t *testing.T) {
	values := []int{}
	for i := 0; i < 50; i++ {
		values = append(values, 40+i%5)
	}
	for i := 0; i < 30; i++ {
		values = append(values, 180+i%7)
	}

	v, ok := OtsuThreshold(histogramOf(values...))
	require.True(t, ok)
	assert.GreaterOrEqual(t, v, 44.0)
	assert.Less(t, v, 180.0)
}

func TestHistogramTotal(t *testing.T) {
	assert.Equal(t, 3.0, histogramOf(1, 2, 2).Total())
}

func TestMaskedHistogramCountsOnlyMaskedPixels(t *testing.T) {
	gray := grayMat(t, [][]uint8{{0, 7, 7}, {9, 0, 200}})
	mask := grayMat(t, [][]uint8{{255, 255, 0}, {0, 255, 255}})

	hist, err := MaskedHistogram(gray, mask)
	require.NoError(t, err)

	assert.Equal(t, 2.0, hist[0])
	assert.Equal(t, 1.0, hist[7])
	assert.Equal(t, 0.0, hist[9])
	assert.Equal(t, 1.0, hist[200])
	assert.Equal(t, 4.0, hist.Total())
}

func TestMaskedHistogramSizeMismatch(t *testing.T) {
	gray := grayMat(t, [][]uint8{{1, 2}})
	mask := grayMat(t, [][]uint8{{255}, {255}})

	_, err := MaskedHistogram(gray, mask)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}
