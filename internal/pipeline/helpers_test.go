package pipeline

import (
	"path/filepath"
	"testing"

	"tonal-otsu/internal/opencv/conversion"
	"tonal-otsu/internal/opencv/safe"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type recordingViewer struct {
	titles []string
}

func (v *recordingViewer) Show(title string, img *safe.Mat) error {
	v.titles = append(v.titles, title)
	return nil
}

// splitImage is dark on the left and bright on the right with a little
// texture in each half.
func splitImage(rows, cols int) [][]uint8 {
	out := make([][]uint8, rows)
	for r := range out {
		out[r] = make([]uint8, cols)
		for c := range out[r] {
			base := 30
			if c >= cols/2 {
				base = 220
			}
			out[r][c] = uint8(base + (r*7+c*3)%20)
		}
	}
	return out
}

func grayMat(t *testing.T, rows [][]uint8) *safe.Mat {
	t.Helper()
	m, err := conversion.GrayFromRows(rows)
	require.NoError(t, err)
	return m
}

func writeImage(t *testing.T, name string, rows [][]uint8) string {
	t.Helper()
	m := grayMat(t, rows)
	defer m.Close()

	path := filepath.Join(t.TempDir(), name)
	require.True(t, gocv.IMWrite(path, m.GetMat()))
	return path
}

func readGray(t *testing.T, path string) [][]uint8 {
	t.Helper()
	mat := gocv.IMRead(path, gocv.IMReadGrayScale)
	require.False(t, mat.Empty(), "could not read %s", path)

	m, err := safe.Take(mat, "read_back")
	require.NoError(t, err)
	defer m.Close()

	rows, err := conversion.GrayToRows(m)
	require.NoError(t, err)
	return rows
}
