package segmentation

import (
	"fmt"

	"tonal-otsu/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// Merge ORs the non-nil per-band results into one binary image.
//
// A single result is returned as a copy. With more than one band at least two
// results must be non-nil, otherwise ErrNotEnoughToMerge is returned.
func Merge(results []*safe.Mat) (*safe.Mat, error) {
	if len(results) == 0 {
		return nil, ErrNoResults
	}

	if len(results) == 1 {
		if results[0] == nil {
			return nil, fmt.Errorf("%w: the only band is empty", ErrNotEnoughToMerge)
		}
		return results[0].Clone()
	}

	first := nextNonEmpty(results, 0)
	if first == len(results) {
		return nil, fmt.Errorf("%w: all %d bands are empty", ErrNotEnoughToMerge, len(results))
	}
	second := nextNonEmpty(results, first+1)
	if second == len(results) {
		return nil, fmt.Errorf("%w: only band %d has a result", ErrNotEnoughToMerge, first)
	}

	merged, err := bitwiseOr(results[first], results[second])
	if err != nil {
		return nil, err
	}

	for i := nextNonEmpty(results, second+1); i < len(results); i = nextNonEmpty(results, i+1) {
		next, err := bitwiseOr(merged, results[i])
		merged.Close()
		if err != nil {
			return nil, err
		}
		merged = next
	}

	return merged, nil
}

func nextNonEmpty(results []*safe.Mat, from int) int {
	for from < len(results) && results[from] == nil {
		from++
	}
	return from
}

func bitwiseOr(a, b *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(a, "merge"); err != nil {
		return nil, err
	}
	if err := safe.ValidateMatForOperation(b, "merge"); err != nil {
		return nil, err
	}
	if err := safe.ValidateSameSize(a, b, "merge"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSizeMismatch, err)
	}

	dst, err := safe.NewMat(a.Rows(), a.Cols(), a.Type())
	if err != nil {
		return nil, err
	}

	dstMat := dst.GetMat()
	gocv.BitwiseOr(a.GetMat(), b.GetMat(), &dstMat)

	return dst, nil
}
