//go:build libheif

package codec

import (
	"image"

	"github.com/strukturag/libheif/go/heif"
)

// Built with -tags libheif: HEIF output is produced through the libheif
// binding (HEVC compression).
var heifEncode func(img image.Image, quality int, path string) error = func(img image.Image, quality int, path string) error {
	ctx, err := heif.EncodeFromImage(
		img,
		heif.CompressionHEVC,
		quality,
		heif.LosslessModeDisabled,
		heif.LoggingLevelNone,
	)
	if err != nil {
		return err
	}
	return ctx.WriteToFile(path)
}
