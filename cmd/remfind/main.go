package main

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"remphot/internal/logger"
	"remphot/pkg/config"
	"remphot/pkg/locate"
	"remphot/pkg/remfits"
)

const usage = `usage: remfind <command> [flags] args...

commands:
  blind    find every object in an image
  find     locate the objects of a catalog vicinity in an image
  apply    apply an edit log to a saved result set
  overlay  render a result set over its image as JPEG
  config   print the effective configuration`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%s", usage)
	}
	cfg, home, err := config.LoadHome()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log.Mode); err != nil {
		return fmt.Errorf("initialising logger: %w", err)
	}
	defer logger.Sync()
	logger.L.Debug("configuration loaded", zap.String("home", home))

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "blind":
		return runBlind(cfg, rest)
	case "find":
		return runFind(cfg, rest)
	case "apply":
		return runApply(cfg, rest)
	case "overlay":
		return runOverlay(cfg, rest)
	case "config":
		return runConfig(cfg, rest)
	}
	return fmt.Errorf("unknown command %q\n%s", cmd, usage)
}

// loadImage reads a processed image and applies the configured trim.
func loadImage(cfg *config.Config, path string) (*remfits.Image, error) {
	img, err := remfits.LoadFile(path, remfits.TypeImage)
	if err != nil {
		return nil, fmt.Errorf("reading FITS: %w", err)
	}
	if cfg.Geometry.Trim != (remfits.TrimSpec{}) {
		if err := img.Trim(cfg.Geometry.Trim); err != nil {
			img.Close()
			return nil, err
		}
	}
	logger.L.Info("image loaded",
		zap.String("path", path),
		zap.Int("cols", img.Cols()),
		zap.Int("rows", img.Rows()),
		zap.Stringer("filter", img.Filter()),
		zap.Float64("mean", img.Mean()),
		zap.Float64("std", img.Std()))
	return img, nil
}

// searchParams returns the configured search parameters, replaced by a
// SEARCHPAR document when path is set.
func searchParams(cfg *config.Config, path string) (*locate.Params, error) {
	if path == "" {
		p := cfg.Search
		return &p, nil
	}
	return config.LoadSearchParams(path)
}

// outputPath derives name.ext from the input path when out is empty.
func outputPath(out, input, ext string) string {
	if out != "" {
		return out
	}
	for _, suffix := range []string{".fits.gz", ".fits", ".fit"} {
		if strings.HasSuffix(strings.ToLower(input), suffix) {
			return input[:len(input)-len(suffix)] + ext
		}
	}
	return input + ext
}
