// Package config holds the per-run settings for a batch conversion and
// validates them before the engine starts. A RunConfig is built once by the
// front-end (flags over environment over defaults) and never mutated after
// Validate succeeds.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	MinMegapixels = 2
	MaxMegapixels = 64

	MinQuality = 1
	MaxQuality = 12

	DefaultMegapixels = 12
	DefaultQuality    = 10
	DefaultWorkers    = 4

	// DefaultOutputDirName is joined to the input root when no explicit
	// output directory is configured.
	DefaultOutputDirName = "output"
)

// RunConfig describes one batch conversion run.
type RunConfig struct {
	// InputDir is the root directory scanned for source images.
	InputDir string

	// Recurse controls whether subdirectories of InputDir are scanned too.
	Recurse bool

	// OutputDir receives the converted tree. Empty means
	// <InputDir>/output; Validate fills it in.
	OutputDir string

	// Megapixels is the target pixel budget in millions of pixels.
	// Images above the budget are scaled down, images at or below it are
	// re-encoded at their original dimensions.
	Megapixels int

	// Quality is the user-facing 1-12 quality setting. Encoders map it
	// linearly onto their native scale.
	Quality int

	// Workers is the number of files converted in parallel.
	Workers int

	// ExportHeif requests HEIF output. It is honored only when the HEIF
	// encode capability is compiled in; otherwise the run silently falls
	// back to JPEG.
	ExportHeif bool

	// HeifCompression is the 1-12 quality setting for HEIF output. Only
	// consulted when ExportHeif is honored.
	HeifCompression int
}

// Default returns a RunConfig with the stock settings. InputDir must still
// be filled in by the caller.
func Default() RunConfig {
	return RunConfig{
		Recurse:         true,
		Megapixels:      DefaultMegapixels,
		Quality:         DefaultQuality,
		Workers:         DefaultWorkers,
		HeifCompression: DefaultQuality,
	}
}

// ApplyEnv overlays MPCAP_* environment variables onto c. Unset or
// malformed values leave the corresponding field untouched; range checks
// are left to Validate.
func (c *RunConfig) ApplyEnv() {
	if v := os.Getenv("MPCAP_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v, err := strconv.Atoi(os.Getenv("MPCAP_MEGAPIXELS")); err == nil {
		c.Megapixels = v
	}
	if v, err := strconv.Atoi(os.Getenv("MPCAP_QUALITY")); err == nil {
		c.Quality = v
	}
	if v, err := strconv.Atoi(os.Getenv("MPCAP_WORKERS")); err == nil {
		c.Workers = v
	}
}

// Validate checks ranges and paths and fills in the derived output
// directory. It is the only place configuration errors are raised; the
// engine assumes a validated config.
func (c *RunConfig) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("input directory is required")
	}

	info, err := os.Stat(c.InputDir)
	if err != nil {
		return fmt.Errorf("input directory %s: %w", c.InputDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("input path %s is not a directory", c.InputDir)
	}

	if c.Megapixels < MinMegapixels || c.Megapixels > MaxMegapixels {
		return fmt.Errorf(
			"megapixels must be between %d and %d, got %d",
			MinMegapixels, MaxMegapixels, c.Megapixels,
		)
	}
	if c.Quality < MinQuality || c.Quality > MaxQuality {
		return fmt.Errorf(
			"quality must be between %d and %d, got %d",
			MinQuality, MaxQuality, c.Quality,
		)
	}
	if c.ExportHeif &&
		(c.HeifCompression < MinQuality || c.HeifCompression > MaxQuality) {
		return fmt.Errorf(
			"heif compression must be between %d and %d, got %d",
			MinQuality, MaxQuality, c.HeifCompression,
		)
	}
	if c.Workers < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", c.Workers)
	}

	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.InputDir, DefaultOutputDirName)
	}

	return nil
}

// TargetPixels converts the megapixel setting to an absolute pixel budget.
// Computed once at run start; the engine caches the result.
func (c *RunConfig) TargetPixels() int64 {
	return int64(c.Megapixels) * 1_000_000
}
