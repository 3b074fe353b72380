package segmentation

import (
	"fmt"

	"tonal-otsu/internal/opencv/safe"

	"github.com/samber/lo"
)

const (
	minIntensity = 0
	maxIntensity = 255
)

// Coord addresses one pixel.
type Coord struct {
	Row int
	Col int
}

// ToneBand is an inclusive intensity interval and the pixels whose blurred
// intensity was assigned to it.
type ToneBand struct {
	Index  int
	Low    int
	High   int
	Pixels []Coord
}

func (b ToneBand) Empty() bool {
	return len(b.Pixels) == 0
}

func (b ToneBand) String() string {
	return fmt.Sprintf("Tone %d - %d:%d", b.Index+1, b.Low, b.High)
}

// NormalizeEdges returns the band edges. With hasBeginning the boundaries are
// already the full edge list; otherwise 0 and 255 are added around them.
func NormalizeEdges(boundaries []int, hasBeginning bool) []int {
	if hasBeginning {
		return append([]int(nil), boundaries...)
	}

	edges := make([]int, 0, len(boundaries)+2)
	edges = append(edges, minIntensity)
	edges = append(edges, boundaries...)
	return append(edges, maxIntensity)
}

// Partition assigns every pixel of img to exactly one tone band.
//
// With two edges the whole image is a single band. Otherwise band i covers
// [edges[i], edges[i+1]] inclusive and a pixel on a shared edge goes to the
// lower band. Pixels below the first edge join the first band and pixels
// above the last edge join the last one, so the bands always cover the image.
// Pixels are visited column by column.
func Partition(img *safe.Mat, boundaries []int, hasBeginning bool) ([]ToneBand, error) {
	if err := safe.ValidateGray(img, "tone partition"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotGrayscale, err)
	}

	edges := NormalizeEdges(boundaries, hasBeginning)
	if len(edges) < 2 {
		return nil, fmt.Errorf("%w: got %v", ErrTooFewEdges, edges)
	}
	if bad, found := lo.Find(edges, func(e int) bool { return e < minIntensity || e > maxIntensity }); found {
		return nil, fmt.Errorf("%w: %d", ErrBoundaryOutOfRange, bad)
	}

	data, err := img.Bytes()
	if err != nil {
		return nil, err
	}
	rows, cols := img.Rows(), img.Cols()

	bands := make([]ToneBand, len(edges)-1)
	for i := range bands {
		bands[i] = ToneBand{Index: i, Low: edges[i], High: edges[i+1]}
	}

	if len(bands) == 1 {
		bands[0].Pixels = make([]Coord, 0, rows*cols)
		for col := 0; col < cols; col++ {
			for row := 0; row < rows; row++ {
				bands[0].Pixels = append(bands[0].Pixels, Coord{Row: row, Col: col})
			}
		}
		return bands, nil
	}

	for col := 0; col < cols; col++ {
		for row := 0; row < rows; row++ {
			i := bandFor(int(data[row*cols+col]), edges)
			bands[i].Pixels = append(bands[i].Pixels, Coord{Row: row, Col: col})
		}
	}

	return bands, nil
}

func bandFor(intensity int, edges []int) int {
	for i := 1; i < len(edges); i++ {
		if edges[i-1] <= intensity && intensity <= edges[i] {
			return i - 1
		}
	}
	if intensity < edges[0] {
		return 0
	}
	return len(edges) - 2
}

// BandMask returns a binary Mat of the given size with the band's pixels set
// to 255.
func BandMask(rows, cols int, band ToneBand) (*safe.Mat, error) {
	return paint(make([]byte, rows*cols), rows, cols, band.Pixels)
}

func paint(data []byte, rows, cols int, pixels []Coord) (*safe.Mat, error) {
	for _, p := range pixels {
		if err := safe.ValidateCoordinates(p.Row, p.Col, rows, cols, "paint band"); err != nil {
			return nil, err
		}
		data[p.Row*cols+p.Col] = maxIntensity
	}
	return safe.NewMatFromBytes(rows, cols, grayType, data)
}

// PixelCount is the total number of coordinates across bands.
func PixelCount(bands []ToneBand) int {
	return lo.SumBy(bands, func(b ToneBand) int { return len(b.Pixels) })
}
