package pipeline

import (
	"context"
	"fmt"

	"tonal-otsu/internal/debug/timing"
	"tonal-otsu/internal/logger"
	"tonal-otsu/internal/opencv/safe"
	"tonal-otsu/internal/segmentation"

	"go.uber.org/multierr"
)

// Options controls one segmentation run.
type Options struct {
	Blur segmentation.BlurParams
	// HasBeginning means the boundaries already include the outer edges.
	HasBeginning bool
	Preview      bool
	SectionScale float64
}

// Result owns every image produced by a run.
type Result struct {
	Original    *safe.Mat
	Gray        *safe.Mat
	Blurred     *safe.Mat
	Tones       []segmentation.ToneBand
	Thresholded *segmentation.BandResults
	Merged      *safe.Mat
}

func (r *Result) Close() error {
	if r == nil {
		return nil
	}
	return multierr.Combine(
		r.Original.Close(),
		r.Gray.Close(),
		r.Blurred.Close(),
		r.Thresholded.Close(),
		r.Merged.Close(),
	)
}

type Segmenter struct {
	loader  *Loader
	viewer  Viewer
	logger  logger.Logger
	timing  *timing.Tracker
	options Options
}

func NewSegmenter(opts Options, viewer Viewer, log logger.Logger, tracker *timing.Tracker) *Segmenter {
	if tracker == nil {
		tracker = timing.NewTracker()
	}
	return &Segmenter{
		loader:  NewLoader(log),
		viewer:  viewer,
		logger:  log,
		timing:  tracker,
		options: opts,
	}
}

// Run loads path and segments it.
func (s *Segmenter) Run(ctx context.Context, path string, boundaries []int) (*Result, error) {
	var original *safe.Mat
	err := s.stage(ctx, "load", func() (err error) {
		original, err = s.loader.Load(path)
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.Segment(ctx, original, boundaries)
}

// Segment runs the four stages on an already decoded image. The returned
// Result takes ownership of original, also on error.
func (s *Segmenter) Segment(ctx context.Context, original *safe.Mat, boundaries []int) (*Result, error) {
	res := &Result{Original: original}
	fail := func(err error) (*Result, error) {
		return nil, multierr.Combine(err, res.Close())
	}

	s.show("ORIGINAL", res.Original)

	err := s.stage(ctx, "grayscale", func() (err error) {
		res.Gray, err = segmentation.Grayscale(res.Original)
		return err
	})
	if err != nil {
		return fail(err)
	}
	s.show("GRAY_SCALE", res.Gray)

	err = s.stage(ctx, "blur", func() (err error) {
		res.Blurred, err = segmentation.Blur(res.Gray, s.options.Blur)
		return err
	})
	if err != nil {
		return fail(err)
	}
	s.show("BLURRED", res.Blurred)

	err = s.stage(ctx, "partition", func() (err error) {
		res.Tones, err = segmentation.Partition(res.Blurred, boundaries, s.options.HasBeginning)
		return err
	})
	if err != nil {
		return fail(err)
	}
	s.logBands(res.Tones)
	s.showSections(res.Blurred, res.Tones)

	err = s.stage(ctx, "threshold", func() (err error) {
		res.Thresholded, err = segmentation.ThresholdBands(res.Gray, res.Tones)
		return err
	})
	if err != nil {
		return fail(err)
	}
	s.logThresholds(res.Thresholded)

	err = s.stage(ctx, "merge", func() (err error) {
		res.Merged, err = segmentation.Merge(res.Thresholded.Binary)
		return err
	})
	if err != nil {
		return fail(err)
	}
	s.show("Result", res.Merged)

	s.logger.Info(component, "segmentation completed", map[string]interface{}{
		"bands":       len(res.Tones),
		"empty_bands": len(res.Thresholded.Empty),
		"width":       res.Merged.Cols(),
		"height":      res.Merged.Rows(),
	})

	return res, nil
}

// AdjustThreshold loads path and binarizes its grayscale at cutoff.
func (s *Segmenter) AdjustThreshold(ctx context.Context, path string, cutoff float64) (*safe.Mat, error) {
	return s.adjust(ctx, path, "rethreshold", "After change of threshold", func(gray *safe.Mat) (*safe.Mat, error) {
		return segmentation.Rethreshold(gray, cutoff)
	})
}

// AdjustBlur loads path and blurs its grayscale with sigma.
func (s *Segmenter) AdjustBlur(ctx context.Context, path string, sigma float64) (*safe.Mat, error) {
	return s.adjust(ctx, path, "reblur", "After change of blur parameters", func(gray *safe.Mat) (*safe.Mat, error) {
		return segmentation.Reblur(gray, sigma)
	})
}

func (s *Segmenter) adjust(ctx context.Context, path, name, title string, fn func(*safe.Mat) (*safe.Mat, error)) (*safe.Mat, error) {
	var original, gray, out *safe.Mat
	defer func() {
		original.Close()
		gray.Close()
	}()

	err := s.stage(ctx, "load", func() (err error) {
		original, err = s.loader.Load(path)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = s.stage(ctx, "grayscale", func() (err error) {
		gray, err = segmentation.Grayscale(original)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = s.stage(ctx, name, func() (err error) {
		out, err = fn(gray)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.show(title, out)
	return out, nil
}

func (s *Segmenter) stage(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	timed := s.timing.StartTiming(ctx, name)
	err := fn()
	elapsed := s.timing.EndTiming(timed)

	if err != nil {
		s.logger.Error(component, err, map[string]interface{}{"stage": name})
		return fmt.Errorf("%s: %w", name, err)
	}

	s.logger.Debug(component, "stage completed", map[string]interface{}{
		"stage":       name,
		"duration_ms": elapsed.Milliseconds(),
	})
	return nil
}

func (s *Segmenter) show(title string, img *safe.Mat) {
	if !s.options.Preview || s.viewer == nil {
		return
	}
	if err := s.viewer.Show(title, img); err != nil {
		s.logger.Warning(component, "preview failed", map[string]interface{}{
			"title": title,
			"error": err.Error(),
		})
	}
}

func (s *Segmenter) showSections(img *safe.Mat, bands []segmentation.ToneBand) {
	if !s.options.Preview || s.viewer == nil {
		return
	}

	sections, err := segmentation.RenderToneSections(img, bands, s.options.SectionScale)
	if err != nil {
		s.logger.Warning(component, "tone section preview failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	defer sections.Close()

	for i, section := range sections.Sections {
		s.show(sections.Titles[i], section)
	}
	s.show("Tonal sections", sections.Combined)
}

func (s *Segmenter) logBands(bands []segmentation.ToneBand) {
	for _, band := range bands {
		s.logger.Debug(component, "tone band", map[string]interface{}{
			"band":   band.Index,
			"low":    band.Low,
			"high":   band.High,
			"pixels": len(band.Pixels),
		})
	}
}

func (s *Segmenter) logThresholds(results *segmentation.BandResults) {
	for i, t := range results.Thresholds {
		if !t.Valid {
			s.logger.Info(component, "band is empty, skipped", map[string]interface{}{"band": i})
			continue
		}
		s.logger.Debug(component, "band threshold", map[string]interface{}{
			"band":      i,
			"threshold": t.Value,
		})
	}
}
