package engine

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileTask is one unit of work: a source file, its derived destination, and
// the worker slot used for progress display. The slot index is a display
// label assigned round-robin, not a lock.
type FileTask struct {
	InputPath  string
	OutputPath string
	Slot       int
}

// newFileTask derives the output path for inputPath: its location relative
// to inputRoot is mirrored under outputRoot with the extension replaced by
// the encoder's.
func newFileTask(inputRoot, outputRoot, inputPath, outExt string, slot int) (FileTask, error) {
	rel, err := filepath.Rel(inputRoot, inputPath)
	if err != nil {
		return FileTask{}, fmt.Errorf("relativize %s: %w", inputPath, err)
	}

	stem := strings.TrimSuffix(rel, filepath.Ext(rel))
	return FileTask{
		InputPath:  inputPath,
		OutputPath: filepath.Join(outputRoot, stem+outExt),
		Slot:       slot,
	}, nil
}
