// Package engine runs one batch conversion: it discovers source files,
// fans them out over a bounded worker pool, and relays progress to an
// observer through an ordered event channel.
//
// Aggregate run state is owned by the orchestrating goroutine alone;
// workers communicate exclusively through the results and event channels.
// The cancellation flag is the one field written from outside and is
// checked before every task submission and before accepting every result.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rolivares/mpcap/internal/codec"
	"github.com/rolivares/mpcap/internal/config"
	"github.com/rolivares/mpcap/internal/discover"
	"github.com/rolivares/mpcap/internal/telemetry"
	"github.com/rolivares/mpcap/internal/telemetry/metrics"
)

// State is the coordinator's lifecycle position. Completed and Cancelled
// are terminal; a new run takes a fresh Engine.
type State int32

const (
	StateIdle State = iota
	StateDiscovering
	StateDispatching
	StateRunning
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateDispatching:
		return "dispatching"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Summary aggregates the outcome of a run.
type Summary struct {
	Total     int
	Processed int
	Errors    []FileError
}

// Engine coordinates one batch run.
type Engine struct {
	cfg       config.RunConfig
	codecs    *codec.Registry
	telemetry *telemetry.TelemetrySvc

	runID     uuid.UUID
	events    chan Event
	state     atomic.Int32
	cancelled atomic.Bool
}

type fileResult struct {
	task FileTask
	err  error
}

// New creates an engine for a validated config. The engine is single-use:
// one Run per instance.
func New(
	cfg config.RunConfig,
	codecs *codec.Registry,
	telemetry *telemetry.TelemetrySvc,
) *Engine {
	return &Engine{
		cfg:       cfg,
		codecs:    codecs,
		telemetry: telemetry,
		runID:     uuid.New(),
		events:    make(chan Event, 256),
	}
}

// RunID identifies this run on notifications and log lines.
func (e *Engine) RunID() uuid.UUID {
	return e.runID
}

// Events is the ordered progress stream. It is closed when Run returns;
// the observer must drain it for the run to make progress.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// State reports the coordinator's current lifecycle position.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Cancel requests a cooperative stop. Idempotent and safe at any time:
// no further tasks are submitted and no further results are accepted, but
// a task already mid-pipeline is allowed to finish.
func (e *Engine) Cancel() {
	if e.cancelled.CompareAndSwap(false, true) {
		slog.Info("Cancellation requested", "runId", e.runID)
	}
}

// Run executes the batch to completion or cancellation. The returned error
// is non-nil only when the run could not start at all; per-file failures
// are reported as FileError events and in the summary instead.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	defer close(e.events)

	inputRoot, err := filepath.Abs(e.cfg.InputDir)
	if err != nil {
		return Summary{}, fmt.Errorf("resolve input root: %w", err)
	}

	// Fixed for the whole run; never recomputed.
	targetPixels := e.cfg.TargetPixels()

	e.state.Store(int32(StateDiscovering))
	e.emit(DiscoveryStatus{Message: "Finding image files..."})

	files, err := discover.Find(inputRoot, e.cfg.Recurse)
	if err != nil {
		e.state.Store(int32(StateIdle))
		return Summary{}, fmt.Errorf("discover input files: %w", err)
	}

	total := len(files)
	if total == 0 {
		e.state.Store(int32(StateCompleted))
		e.emit(DiscoveryStatus{Message: "No image files found"})
		e.emit(RunComplete{Processed: 0})
		return Summary{}, nil
	}

	slog.Info(
		"Starting batch run",
		"runId", e.runID,
		"files", total,
		"targetPixels", targetPixels,
		"workers", e.cfg.Workers,
	)
	e.emit(DiscoveryStatus{Message: fmt.Sprintf("Processing %d files...", total)})
	e.emit(OverallProgress{Done: 0, Total: total})

	encoder := e.codecs.NewEncoder(
		e.cfg.ExportHeif,
		e.cfg.Quality,
		e.cfg.HeifCompression,
	)

	e.state.Store(int32(StateDispatching))
	results := make(chan fileResult)
	go e.dispatch(ctx, inputRoot, files, encoder, targetPixels, results)

	e.state.Store(int32(StateRunning))
	summary := Summary{Total: total}
	for res := range results {
		if e.cancelled.Load() {
			// Drain without accepting so in-flight workers can exit.
			continue
		}

		if res.err != nil {
			failure := FileError{
				File:   filepath.Base(res.task.InputPath),
				Reason: res.err.Error(),
			}
			summary.Errors = append(summary.Errors, failure)
			e.emit(failure)
			e.telemetry.Metrics().Increment(metrics.ImageFailed, map[string]string{
				"file": failure.File,
			})
			slog.Error("File failed", "runId", e.runID, "file", failure.File, "reason", failure.Reason)
		} else {
			summary.Processed++
			e.emit(OverallProgress{Done: summary.Processed, Total: total})
			e.telemetry.Metrics().Increment(metrics.ImageProcessed, nil)
		}
		e.emit(SlotIdle{Slot: res.task.Slot})
	}

	if e.cancelled.Load() {
		e.state.Store(int32(StateCancelled))
		e.emit(RunCancelled{Processed: summary.Processed})
		slog.Info("Run cancelled", "runId", e.runID, "processed", summary.Processed)
		return summary, nil
	}

	e.state.Store(int32(StateCompleted))
	e.emit(RunComplete{Processed: summary.Processed})
	e.telemetry.Metrics().Increment(metrics.RunCompleted, map[string]string{
		"files": fmt.Sprintf("%d", summary.Processed),
	})
	slog.Info(
		"Run complete",
		"runId", e.runID,
		"processed", summary.Processed,
		"failed", len(summary.Errors),
	)
	return summary, nil
}

// dispatch submits every discovered file to the bounded pool and closes
// results once all workers are done. The cancellation flag is re-checked
// before each submission; errgroup's limit means a submission blocks until
// a pool slot frees up, so at most Workers pipelines run at once.
func (e *Engine) dispatch(
	ctx context.Context,
	inputRoot string,
	files []string,
	encoder codec.Encoder,
	targetPixels int64,
	results chan<- fileResult,
) {
	defer close(results)

	g := new(errgroup.Group)
	g.SetLimit(e.cfg.Workers)

	for i, path := range files {
		if ctx.Err() != nil {
			e.Cancel()
		}
		if e.cancelled.Load() {
			break
		}

		task, err := newFileTask(inputRoot, e.cfg.OutputDir, path, encoder.Ext(), i%e.cfg.Workers)
		if err != nil {
			results <- fileResult{task: FileTask{InputPath: path}, err: err}
			continue
		}

		g.Go(func() error {
			results <- fileResult{task: task, err: e.process(task, encoder, targetPixels)}
			return nil
		})
	}

	g.Wait()
}

func (e *Engine) emit(ev Event) {
	e.events <- ev
}
