//go:build !libraw

package codec

import "image"

// Default build: no RAW demosaic. Probe reports the capability as absent
// and RAW files fail with a missing-capability error.
var rawDecode func(path string) (image.Image, error)
