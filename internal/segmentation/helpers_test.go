package segmentation

import (
	"testing"

	"tonal-otsu/internal/opencv/conversion"
	"tonal-otsu/internal/opencv/safe"

	"github.com/stretchr/testify/require"
)

func grayMat(t *testing.T, rows [][]uint8) *safe.Mat {
	t.Helper()
	m, err := conversion.GrayFromRows(rows)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func pixels(t *testing.T, m *safe.Mat) [][]uint8 {
	t.Helper()
	rows, err := conversion.GrayToRows(m)
	require.NoError(t, err)
	return rows
}

func constant(rows, cols int, v uint8) [][]uint8 {
	out := make([][]uint8, rows)
	for r := range out {
		out[r] = make([]uint8, cols)
		for c := range out[r] {
			out[r][c] = v
		}
	}
	return out
}

// sample4x4 has a dark left half and a bright right half.
var sample4x4 = [][]uint8{
	{10, 20, 150, 160},
	{15, 25, 170, 180},
	{30, 40, 200, 210},
	{35, 45, 220, 230},
}
