package segmentation

import (
	"fmt"
	"image"
	"math"

	"tonal-otsu/internal/opencv/safe"

	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

// ToneSections is a preview of the partition: one downscaled copy of the
// image per band with the band painted white, and all of them side by side.
type ToneSections struct {
	Titles   []string
	Sections []*safe.Mat
	Combined *safe.Mat
}

func (s *ToneSections) Close() error {
	if s == nil {
		return nil
	}

	var err error
	for _, m := range s.Sections {
		err = multierr.Append(err, m.Close())
	}
	return multierr.Append(err, s.Combined.Close())
}

// RenderToneSections builds the partition preview at the given scale.
func RenderToneSections(img *safe.Mat, bands []ToneBand, scale float64) (*ToneSections, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("%w: %g", ErrInvalidScale, scale)
	}
	if err := safe.ValidateGray(img, "tone sections"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotGrayscale, err)
	}
	if len(bands) == 0 {
		return nil, fmt.Errorf("%w: no bands to render", ErrTooFewEdges)
	}

	data, err := img.Bytes()
	if err != nil {
		return nil, err
	}

	rows, cols := img.Rows(), img.Cols()
	size := image.Point{
		X: max(1, int(math.Round(float64(cols)*scale))),
		Y: max(1, int(math.Round(float64(rows)*scale))),
	}

	sections := &ToneSections{}
	for _, band := range bands {
		section, err := renderSection(data, rows, cols, band, size)
		if err != nil {
			return nil, multierr.Combine(err, sections.Close())
		}
		sections.Titles = append(sections.Titles, band.String())
		sections.Sections = append(sections.Sections, section)
	}

	combined, err := sections.Sections[0].Clone()
	if err != nil {
		return nil, multierr.Combine(err, sections.Close())
	}
	for _, section := range sections.Sections[1:] {
		next := gocv.NewMat()
		gocv.Hconcat(combined.GetMat(), section.GetMat(), &next)
		combined.Close()
		if combined, err = safe.Take(next, "tonal_sections"); err != nil {
			return nil, multierr.Combine(err, sections.Close())
		}
	}
	sections.Combined = combined

	return sections, nil
}

func renderSection(data []byte, rows, cols int, band ToneBand, size image.Point) (*safe.Mat, error) {
	painted, err := paint(append([]byte(nil), data...), rows, cols, band.Pixels)
	if err != nil {
		return nil, err
	}
	defer painted.Close()

	resized := gocv.NewMat()
	gocv.Resize(painted.GetMat(), &resized, size, 0, 0, gocv.InterpolationLinear)

	return safe.Take(resized, band.String())
}
