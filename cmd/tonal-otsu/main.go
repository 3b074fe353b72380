package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"tonal-otsu/internal/config"
	"tonal-otsu/internal/debug/timing"
	"tonal-otsu/internal/logger"
	"tonal-otsu/internal/opencv/safe"
	"tonal-otsu/internal/pipeline"
	"tonal-otsu/internal/presentation"

	"fyne.io/fyne/v2/app"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
)

const (
	AppName    = "tonal-otsu"
	AppVersion = "1.0.0"

	exploreArg = "explore"
	savePrompt = "Do you want to save the result? [Y/n]"
	usageText  = "usage: tonal-otsu [flags] <image-path|explore> [boundary...]"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		// A second signal falls through to the default handler and kills
		// the process.
		<-ctx.Done()
		stop()
	}()

	if err := newApp(os.Stdin, os.Stdout).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(in io.Reader, out io.Writer) *cli.App {
	return &cli.App{
		Name:      AppName,
		Version:   AppVersion,
		Usage:     "segment an image by tone bands with a per-band Otsu threshold",
		UsageText: "tonal-otsu [flags] <image-path|explore> [boundary...]\ntonal-otsu [flags] rethreshold <image-path> <cutoff>\ntonal-otsu [flags] reblur <image-path> <sigma>",
		Reader:    in,
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags:     flags(),
		Action:    segment,
		Commands: []*cli.Command{
			{
				Name:      "rethreshold",
				Usage:     "binarize the grayscale image at a fixed cutoff",
				ArgsUsage: "<image-path> <cutoff>",
				Action:    rethreshold,
			},
			{
				Name:      "reblur",
				Usage:     "blur the grayscale image with a new sigma",
				ArgsUsage: "<image-path> <sigma>",
				Action:    reblur,
			},
		},
		HideHelpCommand: true,
	}
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML configuration file"},
		&cli.Float64Flag{Name: "sigma", Usage: "Gaussian blur sigma"},
		&cli.IntFlag{Name: "kernel-size", Usage: "Gaussian kernel size, 0 derives it from sigma"},
		&cli.BoolFlag{Name: "wrap-edges", Usage: "add 0 and 255 around the boundaries"},
		&cli.StringFlag{Name: "viewer", Usage: "preview backend: cv, fyne or none"},
		&cli.BoolFlag{Name: "no-preview", Usage: "do not show intermediate images"},
		&cli.Float64Flag{Name: "preview-scale", Usage: "scale of the tone section previews"},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "save the result to this path without asking"},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
	}
}

// loadConfig layers the config file, the environment and the flags, in that
// order.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)

	if c.IsSet("sigma") {
		cfg.Blur.Sigma = c.Float64("sigma")
	}
	if c.IsSet("kernel-size") {
		cfg.Blur.KernelSize = c.Int("kernel-size")
	}
	if c.IsSet("wrap-edges") {
		cfg.Partition.WrapEdges = c.Bool("wrap-edges")
	}
	if c.IsSet("viewer") {
		cfg.Preview.Viewer = c.String("viewer")
	}
	if c.Bool("no-preview") {
		cfg.Preview.Enabled = false
	}
	if c.IsSet("preview-scale") {
		cfg.Preview.SectionScale = c.Float64("preview-scale")
	}
	if c.IsSet("output") {
		cfg.Output.Path = c.String("output")
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session holds everything one command invocation needs.
type session struct {
	cfg       *config.Config
	logger    logger.Logger
	viewer    presentation.Viewer
	confirmer presentation.Confirmer
	picker    presentation.Picker
	ui        *presentation.FyneUI
	saver     *pipeline.Saver
	timing    *timing.Tracker
	out       io.Writer
}

func newSession(c *cli.Context) (*session, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, cli.Exit(err.Error(), 1)
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	log := logger.NewConsole(c.App.ErrWriter, level)

	kind := cfg.Preview.Viewer
	if !cfg.Preview.Enabled {
		kind = config.ViewerNone
	}
	s := &session{
		cfg:    cfg,
		logger: log,
		saver:  pipeline.NewSaver(log, cfg.Output.DefaultExt),
		timing: timing.NewTracker(),
		out:    c.App.Writer,
	}

	if kind == config.ViewerFyne {
		s.ui = presentation.NewFyneUI(app.NewWithID(presentation.AppID), log)
		s.viewer, s.confirmer, s.picker = s.ui, s.ui, s.ui
	} else {
		if s.viewer, err = presentation.NewViewer(kind, log); err != nil {
			return nil, err
		}
		prompter := presentation.NewPrompter(c.App.Reader, c.App.Writer)
		s.confirmer, s.picker = prompter, presentation.NewTerminalPicker(prompter)
	}

	log.Info("Main", "starting", map[string]interface{}{
		"version":    AppVersion,
		"go_version": runtime.Version(),
		"viewer":     kind,
		"log_level":  level.String(),
	})

	return s, nil
}

// run executes work, inside the fyne event loop when the fyne front end is
// active. Closing the window counts as declining.
func (s *session) run(ctx context.Context, work func(context.Context) error) error {
	if s.ui == nil {
		return work(ctx)
	}

	err := s.ui.Run(ctx, work)
	if errors.Is(err, presentation.ErrCancelled) {
		s.logger.Info("Main", "window closed", nil)
		return nil
	}
	return err
}

func (s *session) segmenter(hasBeginning bool) *pipeline.Segmenter {
	opts := pipeline.Options{
		Blur:         s.cfg.Blur,
		HasBeginning: hasBeginning,
		Preview:      s.cfg.Preview.Enabled,
		SectionScale: s.cfg.Preview.SectionScale,
	}
	return pipeline.NewSegmenter(opts, s.viewer, s.logger, s.timing)
}

// finish waits for the previews to be dismissed and then saves result,
// asking first unless an output path is configured.
func (s *session) finish(ctx context.Context, result *safe.Mat) error {
	if err := s.viewer.Wait(ctx); err != nil {
		return err
	}

	path := s.cfg.Output.Path
	if path == "" {
		save, err := s.confirmer.Confirm(ctx, savePrompt)
		if err != nil {
			return err
		}
		if !save {
			return nil
		}

		path, err = s.picker.PickSavePath(ctx, s.cfg.Output.DefaultExt)
		if errors.Is(err, presentation.ErrCancelled) {
			s.logger.Info("Main", "save cancelled", nil)
			return nil
		}
		if err != nil {
			return err
		}
	}

	written, err := s.saver.Save(path, result)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Saved %s\n", written)
	return nil
}

func (s *session) close() error {
	err := s.viewer.Close()

	fields := map[string]interface{}{}
	for stage, d := range s.timing.Summary() {
		fields[stage+"_ms"] = d.Milliseconds()
	}
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	fields["go_memory_mb"] = mem.Alloc / 1024 / 1024

	mats := safe.Allocations().GetStats()
	fields["opencv_allocs"] = mats.AllocationCount
	fields["opencv_live"] = mats.CurrentlyActive
	s.logger.Debug("Main", "run statistics", fields)

	for _, leak := range safe.Allocations().DetectLeaks(0) {
		s.logger.Warning("Main", "Mat still open at exit", map[string]interface{}{
			"id":    leak.ID,
			"tag":   leak.Tag,
			"bytes": leak.Size,
		})
	}
	return err
}

func segment(c *cli.Context) (err error) {
	if c.NArg() < 1 {
		return cli.Exit(usageText, 1)
	}

	boundaries, err := parseBoundaries(c.Args().Tail())
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, s.close())
	}()

	hasBeginning := true
	if len(boundaries) == 0 {
		boundaries = []int{0, 255}
	} else if s.cfg.Partition.WrapEdges {
		hasBeginning = false
	}

	return s.run(c.Context, func(ctx context.Context) (err error) {
		path := c.Args().First()
		if path == exploreArg {
			if path, err = s.picker.PickOpenPath(ctx); err != nil {
				return err
			}
		}

		result, err := s.segmenter(hasBeginning).Run(ctx, path, boundaries)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, result.Close())
		}()

		return s.finish(ctx, result.Merged)
	})
}

// parseBoundaries turns the positional arguments into tone edges.
func parseBoundaries(args []string) ([]int, error) {
	boundaries := make([]int, 0, len(args))
	for _, arg := range args {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid boundary %q: %w", arg, err)
		}
		boundaries = append(boundaries, v)
	}
	return boundaries, nil
}

func rethreshold(c *cli.Context) error {
	return adjust(c, "cutoff", func(ctx context.Context, seg *pipeline.Segmenter, path string, v float64) (*safe.Mat, error) {
		return seg.AdjustThreshold(ctx, path, v)
	})
}

func reblur(c *cli.Context) error {
	return adjust(c, "sigma", func(ctx context.Context, seg *pipeline.Segmenter, path string, v float64) (*safe.Mat, error) {
		return seg.AdjustBlur(ctx, path, v)
	})
}

func adjust(c *cli.Context, what string, fn func(context.Context, *pipeline.Segmenter, string, float64) (*safe.Mat, error)) (err error) {
	if c.NArg() != 2 {
		return cli.Exit(fmt.Sprintf("usage: tonal-otsu [flags] %s <image-path> <%s>", c.Command.Name, what), 1)
	}

	value, err := strconv.ParseFloat(c.Args().Get(1), 64)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid %s %q: %v", what, c.Args().Get(1), err), 1)
	}

	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, s.close())
	}()

	return s.run(c.Context, func(ctx context.Context) (err error) {
		out, err := fn(ctx, s.segmenter(true), c.Args().First(), value)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, out.Close())
		}()

		return s.finish(ctx, out)
	})
}
