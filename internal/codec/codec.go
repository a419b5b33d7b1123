// Package codec decodes source images and encodes resized output. Standard
// raster formats are always available; RAW demosaic and HEIF encoding are
// optional capabilities supplied by build-tag gated bindings and probed once
// at startup. All call sites branch on the probed booleans instead of
// discovering missing libraries mid-run.
package codec

import (
	"image"
	"log/slog"
	"path/filepath"
	"strings"
)

// Native encoder quality range is 1-100; the user-facing 1-12 scale maps
// linearly onto 8-96.
const qualityStep = 8

// MapQuality converts the user-facing 1-12 quality setting to the encoder's
// native scale.
func MapQuality(quality int) int {
	return quality * qualityStep
}

// Camera RAW extensions (lowercase, with leading dot). Everything else that
// discovery admits is treated as standard raster.
var rawExtensions = map[string]bool{
	".raw": true,
	".cr2": true,
	".cr3": true,
	".nef": true,
	".arw": true,
	".dng": true,
}

// IsRaw reports whether path carries a camera RAW extension.
func IsRaw(path string) bool {
	return rawExtensions[strings.ToLower(filepath.Ext(path))]
}

// Capabilities describes the optional codec features compiled into this
// binary.
type Capabilities struct {
	RawDecode  bool
	HeifEncode bool
}

// Probe reports the optional capabilities. The binding function values are
// populated (or left nil) by build-tag files, so the answer is fixed for
// the lifetime of the process.
func Probe() Capabilities {
	return Capabilities{
		RawDecode:  rawDecode != nil,
		HeifEncode: heifEncode != nil,
	}
}

// Registry is the codec adapter handed to the engine. It owns the probed
// capabilities and picks the decode variant per file.
type Registry struct {
	caps Capabilities
}

func NewRegistry() *Registry {
	return &Registry{caps: Probe()}
}

func (r *Registry) Capabilities() Capabilities {
	return r.caps
}

// Decode reads and decodes one source file into an RGB image. RAW files go
// through the demosaic binding; if it is absent the file fails with a
// missing-capability error rather than being silently skipped.
func (r *Registry) Decode(path string) (image.Image, error) {
	if IsRaw(path) {
		if !r.caps.RawDecode {
			return nil, failf(
				KindMissingCapability, path,
				"RAW decoding is not compiled into this build (libraw binding required)",
			)
		}
		img, err := rawDecode(path)
		if err != nil {
			return nil, failf(KindDecodeFailure, path, "demosaic: %w", err)
		}
		return ToRGB(img), nil
	}
	return decodeRaster(path)
}

// Encoder writes one processed image to disk under a fixed extension.
type Encoder interface {
	// Ext is the output extension including the leading dot.
	Ext() string
	Encode(img image.Image, path string) error
}

// NewEncoder selects the encode variant for a run. HEIF is honored only
// when requested and compiled in; otherwise the run degrades to JPEG at the
// same output base path. quality and heifQuality are on the user-facing
// 1-12 scale.
func (r *Registry) NewEncoder(exportHeif bool, quality, heifQuality int) Encoder {
	if exportHeif {
		if r.caps.HeifEncode {
			return &heifEncoder{quality: MapQuality(heifQuality)}
		}
		slog.Warn(
			"HEIF export requested but not compiled into this build, falling back to JPEG",
		)
	}
	return &jpegEncoder{quality: MapQuality(quality)}
}
