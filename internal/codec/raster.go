package codec

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"os"

	// Register the standard raster decoders with image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/h2non/filetype"
)

// decodeRaster reads a standard-format file into memory and decodes it. On
// decode errors the file header is sniffed so the message can say what the
// bytes actually are, which catches the common renamed-extension case.
func decodeRaster(path string) (image.Image, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, failf(KindIOFailure, path, "read: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		if kind, matchErr := filetype.Match(buf); matchErr == nil && kind != filetype.Unknown {
			return nil, failf(
				KindDecodeFailure, path,
				"decode: %w (file content looks like %s)", err, kind.Extension,
			)
		}
		return nil, failf(KindDecodeFailure, path, "decode: %w", err)
	}

	return ToRGB(img), nil
}

// ToRGB returns img backed by plain RGB pixels. The encode step only deals
// in RGB, so paletted, grayscale, CMYK and alpha-carrying images are drawn
// into an RGBA buffer first. Images already in an RGB-family model pass
// through untouched so the no-resize path re-encodes original pixel data.
func ToRGB(img image.Image) image.Image {
	switch img.ColorModel() {
	case color.RGBAModel, color.NRGBAModel, color.YCbCrModel:
		return img
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}
