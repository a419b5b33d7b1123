// Package discover walks an input tree and collects the image files a run
// will process.
package discover

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// Supported source extensions (lowercase, with leading dot). Raster formats
// are decoded directly; the raw camera formats go through the demosaic
// capability when it is compiled in.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
	".raw":  true,
	".cr2":  true,
	".cr3":  true,
	".nef":  true,
	".arw":  true,
	".dng":  true,
}

// Supported reports whether path carries a supported image extension.
func Supported(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// Find walks root and returns the absolute paths of all supported image
// files. With recurse false only direct entries of root are considered.
// Unreadable subdirectories are skipped rather than failing the walk; the
// traversal order of filepath.WalkDir is lexical, so repeated runs over an
// unchanged tree yield the same sequence.
func Find(root string, recurse bool) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			// Unreadable entry below the root: drop it and move on.
			return nil
		}
		if d.IsDir() {
			if !recurse && path != absRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if Supported(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
