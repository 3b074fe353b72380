package conversion

import (
	"fmt"
	"image"
	"image/color"

	"tonal-otsu/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// MatToImage converts a gray or BGR Mat to a standard Go image.
func MatToImage(src *safe.Mat) (image.Image, error) {
	if err := safe.ValidateMatForOperation(src, "Mat to image conversion"); err != nil {
		return nil, err
	}

	data, err := src.Bytes()
	if err != nil {
		return nil, err
	}

	rows, cols := src.Rows(), src.Cols()

	switch src.Channels() {
	case 1:
		img := image.NewGray(image.Rect(0, 0, cols, rows))
		copy(img.Pix, data)
		return img, nil
	case 3:
		return bgrToRGBA(data, rows, cols, 3), nil
	case 4:
		return bgrToRGBA(data, rows, cols, 4), nil
	default:
		return nil, fmt.Errorf("unsupported channel count: %d", src.Channels())
	}
}

func bgrToRGBA(data []byte, rows, cols, channels int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cols, rows))

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			i := (y*cols + x) * channels
			a := uint8(255)
			if channels == 4 {
				a = data[i+3]
			}
			img.SetRGBA(x, y, color.RGBA{R: data[i+2], G: data[i+1], B: data[i], A: a})
		}
	}

	return img
}

// GrayImageToMat converts an *image.Gray to a single-channel Mat.
func GrayImageToMat(img *image.Gray) (*safe.Mat, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	data := make([]byte, 0, width*height)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		start := img.PixOffset(bounds.Min.X, y)
		data = append(data, img.Pix[start:start+width]...)
	}

	return safe.NewMatFromBytes(height, width, gocv.MatTypeCV8UC1, data)
}

// GrayFromRows builds a single-channel Mat from a rectangular grid of
// intensities, row by row.
func GrayFromRows(rows [][]uint8) (*safe.Mat, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("empty pixel grid")
	}

	cols := len(rows[0])
	data := make([]byte, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}

	return safe.NewMatFromBytes(len(rows), cols, gocv.MatTypeCV8UC1, data)
}

// GrayToRows is the inverse of GrayFromRows.
func GrayToRows(src *safe.Mat) ([][]uint8, error) {
	if err := safe.ValidateGray(src, "GrayToRows"); err != nil {
		return nil, err
	}

	data, err := src.Bytes()
	if err != nil {
		return nil, err
	}

	rows, cols := src.Rows(), src.Cols()
	out := make([][]uint8, rows)
	for r := 0; r < rows; r++ {
		out[r] = append([]uint8(nil), data[r*cols:(r+1)*cols]...)
	}

	return out, nil
}
