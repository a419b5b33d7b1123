package engine

import (
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/rolivares/mpcap/internal/codec"
	"github.com/rolivares/mpcap/internal/scale"
)

// Pipeline milestones reported per slot: start, post-decode, post-resize,
// post-write.
const (
	progressStart   = 0
	progressDecoded = 30
	progressResized = 70
	progressWritten = 100
)

// process runs the full decode, scale, encode pipeline for one file inside
// a pool slot. Any returned error is a per-file failure; the batch goes on.
func (e *Engine) process(task FileTask, encoder codec.Encoder, targetPixels int64) error {
	name := filepath.Base(task.InputPath)
	e.emit(SlotProgress{Slot: task.Slot, File: name, Percent: progressStart})

	img, err := e.codecs.Decode(task.InputPath)
	if err != nil {
		return err
	}
	e.emit(SlotProgress{Slot: task.Slot, File: name, Percent: progressDecoded})

	bounds := img.Bounds()
	width, height, resize := scale.FitBudget(bounds.Dx(), bounds.Dy(), targetPixels)
	if resize {
		img = imaging.Resize(img, width, height, imaging.Lanczos)
	}
	e.emit(SlotProgress{Slot: task.Slot, File: name, Percent: progressResized})

	if err := os.MkdirAll(filepath.Dir(task.OutputPath), 0o755); err != nil {
		return &codec.Failure{
			Kind: codec.KindIOFailure,
			Path: task.OutputPath,
			Err:  err,
		}
	}
	if err := encoder.Encode(img, task.OutputPath); err != nil {
		return err
	}

	e.emit(SlotProgress{Slot: task.Slot, File: name, Percent: progressWritten})
	return nil
}
