package codec

import "image"

// heifEncoder writes HEIF output through the gated binding. Only
// constructed when the capability probe says encoding is available.
type heifEncoder struct {
	quality int // native 0-100 scale, already mapped
}

func (e *heifEncoder) Ext() string {
	return ".heic"
}

func (e *heifEncoder) Encode(img image.Image, path string) error {
	if err := heifEncode(img, e.quality, path); err != nil {
		return failf(KindEncodeFailure, path, "heif encode: %w", err)
	}
	return nil
}
