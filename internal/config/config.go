package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"tonal-otsu/internal/logger"
	"tonal-otsu/internal/segmentation"

	"gopkg.in/yaml.v3"
)

const (
	ViewerCV   = "cv"
	ViewerFyne = "fyne"
	ViewerNone = "none"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Blur      segmentation.BlurParams `yaml:"blur"`
	Partition PartitionConfig         `yaml:"partition"`
	Preview   PreviewConfig           `yaml:"preview"`
	Output    OutputConfig            `yaml:"output"`
	Logging   LoggingConfig           `yaml:"logging"`
}

type PartitionConfig struct {
	// WrapEdges adds 0 and 255 around the boundaries given on the command line.
	WrapEdges bool `yaml:"wrap_edges"`
}

type PreviewConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Viewer       string  `yaml:"viewer"`
	SectionScale float64 `yaml:"section_scale"`
}

type OutputConfig struct {
	Path       string `yaml:"path"`
	DefaultExt string `yaml:"default_ext"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func Default() *Config {
	return &Config{
		Blur: segmentation.DefaultBlurParams(),
		Preview: PreviewConfig{
			Enabled:      true,
			Viewer:       ViewerCV,
			SectionScale: 0.2,
		},
		Output: OutputConfig{
			DefaultExt: ".bmp",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file on top of the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overrides settings from LOG_LEVEL, DEBUG and TONAL_OTSU_VIEWER.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if level := getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if getenv("DEBUG") == "1" {
		c.Logging.Level = "debug"
	}
	if viewer := getenv("TONAL_OTSU_VIEWER"); viewer != "" {
		c.Preview.Viewer = viewer
	}
}

func (c *Config) Validate() error {
	if err := c.Blur.Validate(); err != nil {
		return fmt.Errorf("%w: blur: %v", ErrInvalidConfig, err)
	}

	switch c.Preview.Viewer {
	case ViewerCV, ViewerFyne, ViewerNone:
	default:
		return fmt.Errorf("%w: unknown viewer %q", ErrInvalidConfig, c.Preview.Viewer)
	}

	if c.Preview.SectionScale <= 0 || c.Preview.SectionScale > 1 {
		return fmt.Errorf("%w: preview section_scale must be in (0, 1], got %g", ErrInvalidConfig, c.Preview.SectionScale)
	}

	if !strings.HasPrefix(c.Output.DefaultExt, ".") {
		return fmt.Errorf("%w: output default_ext must start with a dot, got %q", ErrInvalidConfig, c.Output.DefaultExt)
	}

	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return nil
}
