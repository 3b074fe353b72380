package segmentation

import (
	"testing"

	"tonal-otsu/internal/opencv/safe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSingleBandReturnsCopy(t *testing.T) {
	only := grayMat(t, [][]uint8{{0, 255}})

	merged, err := Merge([]*safe.Mat{only})
	require.NoError(t, err)
	defer merged.Close()

	assert.Equal(t, [][]uint8{{0, 255}}, pixels(t, merged))
	assert.NotEqual(t, only.ID(), merged.ID())
}

func TestMergeSkipsEmptyResults(t *testing.T) {
	a := grayMat(t, [][]uint8{{255, 0, 0}})
	b := grayMat(t, [][]uint8{{0, 255, 0}})
	c := grayMat(t, [][]uint8{{0, 0, 255}})

	merged, err := Merge([]*safe.Mat{nil, a, nil, b, nil, c, nil})
	require.NoError(t, err)
	defer merged.Close()

	assert.Equal(t, [][]uint8{{255, 255, 255}}, pixels(t, merged))
}

func TestMergeOrderIndependent(t *testing.T) {
	a := grayMat(t, [][]uint8{{255, 0}, {0, 0}})
	b := grayMat(t, [][]uint8{{0, 255}, {0, 0}})
	c := grayMat(t, [][]uint8{{255, 0}, {0, 255}})

	orders := [][]*safe.Mat{
		{a, b, c},
		{c, a, b},
		{b, nil, c, a},
	}

	var want [][]uint8
	for _, order := range orders {
		merged, err := Merge(order)
		require.NoError(t, err)
		got := pixels(t, merged)
		merged.Close()

		if want == nil {
			want = got
			continue
		}
		assert.Equal(t, want, got)
	}
	assert.Equal(t, [][]uint8{{255, 255}, {0, 255}}, want)
}

func TestMergeNotEnoughResults(t *testing.T) {
	a := grayMat(t, [][]uint8{{255}})

	_, err := Merge(nil)
	assert.ErrorIs(t, err, ErrNoResults)

	_, err = Merge([]*safe.Mat{nil})
	assert.ErrorIs(t, err, ErrNotEnoughToMerge)

	_, err = Merge([]*safe.Mat{nil, nil})
	assert.ErrorIs(t, err, ErrNotEnoughToMerge)

	_, err = Merge([]*safe.Mat{nil, a, nil})
	assert.ErrorIs(t, err, ErrNotEnoughToMerge)
}

func TestMergeSizeMismatch(t *testing.T) {
	a := grayMat(t, [][]uint8{{255, 0}})
	b := grayMat(t, [][]uint8{{255}, {0}})

	_, err := Merge([]*safe.Mat{a, b})
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestEndToEndFourByFour(t *testing.T) {
	gray := grayMat(t, sample4x4)

	blurred, err := Blur(gray, DefaultBlurParams())
	require.NoError(t, err)
	defer blurred.Close()
	assert.Equal(t, gray.Rows(), blurred.Rows())
	assert.Equal(t, gray.Cols(), blurred.Cols())

	// Bands come from the unblurred values here so the expected mask is exact.
	bands, err := Partition(gray, []int{0, 100, 255}, true)
	require.NoError(t, err)
	require.Len(t, bands, 2)
	assert.Equal(t, 16, PixelCount(bands))

	results, err := ThresholdBands(gray, bands)
	require.NoError(t, err)
	defer results.Close()

	merged, err := Merge(results.Binary)
	require.NoError(t, err)
	defer merged.Close()

	assert.Equal(t, [][]uint8{
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{255, 255, 255, 255},
		{255, 255, 255, 255},
	}, pixels(t, merged))
}
