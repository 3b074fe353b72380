package pipeline

import (
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"

	"tonal-otsu/internal/logger"
	"tonal-otsu/internal/opencv/conversion"
	"tonal-otsu/internal/opencv/safe"

	"go.uber.org/multierr"
	"gocv.io/x/gocv"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

type Saver struct {
	logger     logger.Logger
	defaultExt string
}

func NewSaver(log logger.Logger, defaultExt string) *Saver {
	return &Saver{logger: log, defaultExt: defaultExt}
}

// Save writes img to path, picking the encoder from the extension. A path
// without extension gets the default one. It returns the path written.
func (s *Saver) Save(path string, img *safe.Mat) (written string, err error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		ext = s.defaultExt
		path += ext
	}

	if !Supported(ext) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			err = multierr.Append(err, closeErr)
		}
	}()

	if err := s.Encode(f, img, ext); err != nil {
		return "", multierr.Combine(err, f.Close(), os.Remove(path))
	}

	s.logger.Info("ImageSaver", "image saved", map[string]interface{}{
		"path":   path,
		"format": strings.TrimPrefix(ext, "."),
	})

	return path, nil
}

// Supported reports whether ext (with leading dot) can be written.
func Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".png", ".bmp", ".tif", ".tiff", ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}

// Encode writes img to w in the format named by ext. PNG output is bilevel.
func (s *Saver) Encode(w io.Writer, img *safe.Mat, ext string) error {
	if err := safe.ValidateMatForOperation(img, "save"); err != nil {
		return err
	}

	ext = strings.ToLower(ext)
	if ext == ".png" {
		return encodeBilevelPNG(w, img)
	}

	goImg, err := conversion.MatToImage(img)
	if err != nil {
		return err
	}

	switch ext {
	case ".bmp":
		err = bmp.Encode(w, goImg)
	case ".tif", ".tiff":
		err = tiff.Encode(w, goImg, &tiff.Options{Compression: tiff.Uncompressed})
	case ".jpg", ".jpeg":
		err = jpeg.Encode(w, goImg, &jpeg.Options{Quality: 95})
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if err != nil {
		s.logger.Error("ImageSaver", err, map[string]interface{}{"format": ext})
		return fmt.Errorf("failed to encode %s: %w", ext, err)
	}
	return nil
}

func encodeBilevelPNG(w io.Writer, img *safe.Mat) error {
	buf, err := gocv.IMEncodeWithParams(gocv.PNGFileExt, img.GetMat(), []int{int(gocv.IMWritePngBilevel), 1})
	if err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	defer buf.Close()

	_, err = w.Write(buf.GetBytes())
	return err
}
