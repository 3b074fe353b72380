package pipeline

import (
	"fmt"
	"os"

	"tonal-otsu/internal/logger"
	"tonal-otsu/internal/opencv/safe"

	"gocv.io/x/gocv"
)

type Loader struct {
	logger logger.Logger
}

func NewLoader(log logger.Logger) *Loader {
	return &Loader{logger: log}
}

// Load decodes the file at path as a 3-channel BGR image.
func (l *Loader) Load(path string) (*safe.Mat, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrDecodeFailed, path)
	}

	l.logger.Debug("ImageLoader", "loading image", map[string]interface{}{
		"path":       path,
		"size_bytes": info.Size(),
	})

	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("%w: %s", ErrDecodeFailed, path)
	}

	img, err := safe.Take(mat, "loaded_image")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	l.logger.Info("ImageLoader", "image loaded successfully", map[string]interface{}{
		"width":    img.Cols(),
		"height":   img.Rows(),
		"channels": img.Channels(),
	})

	return img, nil
}
