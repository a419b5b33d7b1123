//go:build libraw

package codec

import (
	"image"

	"github.com/enricod/golibraw"
)

// Built with -tags libraw: camera RAW files are demosaiced through the
// libraw binding, which yields an RGB pixel buffer.
var rawDecode func(path string) (image.Image, error) = func(path string) (image.Image, error) {
	return golibraw.Raw2Image(path)
}
