package codec

import (
	"image"
	"image/jpeg"
	"os"
)

// jpegEncoder writes JPEG output. Always available; it is both the default
// encode variant and the fallback when HEIF export cannot be honored.
type jpegEncoder struct {
	quality int // native 1-100 scale, already mapped
}

func (e *jpegEncoder) Ext() string {
	return ".jpg"
}

func (e *jpegEncoder) Encode(img image.Image, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return failf(KindIOFailure, path, "create: %w", err)
	}

	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: e.quality}); err != nil {
		out.Close()
		os.Remove(path)
		return failf(KindEncodeFailure, path, "jpeg encode: %w", err)
	}

	if err := out.Close(); err != nil {
		return failf(KindIOFailure, path, "close: %w", err)
	}
	return nil
}
