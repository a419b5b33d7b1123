//go:build !libheif

package codec

import "image"

// Default build: no HEIF encoding. Probe reports the capability as absent
// and runs requesting HEIF degrade to JPEG output.
var heifEncode func(img image.Image, quality int, path string) error
