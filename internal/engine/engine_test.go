package engine

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/rolivares/mpcap/internal/codec"
	"github.com/rolivares/mpcap/internal/config"
	"github.com/rolivares/mpcap/internal/telemetry"
)

func writePNG(t *testing.T, path string, width, height int) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 64, A: 255})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func newTestConfig(t *testing.T, inputDir string) config.RunConfig {
	t.Helper()

	cfg := config.Default()
	cfg.InputDir = inputDir
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate config: %v", err)
	}
	return cfg
}

func newTestEngine(t *testing.T, cfg config.RunConfig) *Engine {
	t.Helper()

	tel, err := telemetry.NewTelemetrySvc(context.Background())
	if err != nil {
		t.Fatalf("telemetry: %v", err)
	}
	return New(cfg, codec.NewRegistry(), tel)
}

// runAndCollect drains the event channel while Run executes, so the engine
// never blocks on a full buffer.
func runAndCollect(t *testing.T, eng *Engine) (Summary, []Event) {
	t.Helper()

	var events []Event
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range eng.Events() {
			events = append(events, ev)
		}
	}()

	summary, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	<-done
	return summary, events
}

func outputNames(t *testing.T, outputDir string) []string {
	t.Helper()

	var names []string
	err := filepath.WalkDir(outputDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, relErr := filepath.Rel(outputDir, path)
			if relErr != nil {
				return relErr
			}
			names = append(names, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk output dir: %v", err)
	}
	sort.Strings(names)
	return names
}

func TestRun_EmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	eng := newTestEngine(t, newTestConfig(t, dir))

	summary, events := runAndCollect(t, eng)

	if summary.Total != 0 || summary.Processed != 0 {
		t.Errorf("summary = %+v, want empty", summary)
	}
	if eng.State() != StateCompleted {
		t.Errorf("state = %s, want completed", eng.State())
	}
	last := events[len(events)-1]
	if done, ok := last.(RunComplete); !ok || done.Processed != 0 {
		t.Errorf("last event = %#v, want RunComplete{0}", last)
	}
}

func TestRun_ProcessesAllFiles(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 20, 20)
	writePNG(t, filepath.Join(dir, "b.png"), 20, 20)
	writePNG(t, filepath.Join(dir, "c.png"), 20, 20)
	writePNG(t, filepath.Join(dir, "album", "d.png"), 20, 20)
	writePNG(t, filepath.Join(dir, "album", "e.png"), 20, 20)

	cfg := newTestConfig(t, dir)
	eng := newTestEngine(t, cfg)
	summary, events := runAndCollect(t, eng)

	if summary.Total != 5 || summary.Processed != 5 || len(summary.Errors) != 0 {
		t.Fatalf("summary = %+v, want 5 processed, no errors", summary)
	}
	if eng.State() != StateCompleted {
		t.Errorf("state = %s, want completed", eng.State())
	}

	want := []string{"a.jpg", "album/d.jpg", "album/e.jpg", "b.jpg", "c.jpg"}
	got := outputNames(t, cfg.OutputDir)
	if len(got) != len(want) {
		t.Fatalf("output files = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("output[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if _, ok := events[0].(DiscoveryStatus); !ok {
		t.Errorf("first event = %#v, want DiscoveryStatus", events[0])
	}

	// Overall progress only ever moves forward.
	prev := -1
	for _, ev := range events {
		if op, ok := ev.(OverallProgress); ok {
			if op.Done < prev {
				t.Errorf("overall progress went backwards: %d after %d", op.Done, prev)
			}
			prev = op.Done
		}
	}
	if prev != 5 {
		t.Errorf("final overall progress = %d, want 5", prev)
	}
}

func TestRun_ResizesOverBudget(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "big.png"), 2000, 1500)

	cfg := newTestConfig(t, dir)
	cfg.Megapixels = 2
	eng := newTestEngine(t, cfg)
	summary, _ := runAndCollect(t, eng)

	if summary.Processed != 1 {
		t.Fatalf("processed = %d, want 1", summary.Processed)
	}

	f, err := os.Open(filepath.Join(cfg.OutputDir, "big.jpg"))
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	conf, err := jpeg.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if conf.Width != 1632 || conf.Height != 1224 {
		t.Errorf("output = %dx%d, want 1632x1224", conf.Width, conf.Height)
	}
}

func TestRun_FileErrorsDoNotAbortBatch(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 20, 20)
	writePNG(t, filepath.Join(dir, "b.png"), 20, 20)
	writePNG(t, filepath.Join(dir, "c.png"), 20, 20)
	if err := os.WriteFile(filepath.Join(dir, "broken.jpg"), []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	cfg := newTestConfig(t, dir)
	eng := newTestEngine(t, cfg)
	summary, events := runAndCollect(t, eng)

	if summary.Total != 4 || summary.Processed != 3 {
		t.Fatalf("summary = %+v, want total 4 processed 3", summary)
	}
	if len(summary.Errors) != 1 || summary.Errors[0].File != "broken.jpg" {
		t.Fatalf("errors = %+v, want one for broken.jpg", summary.Errors)
	}
	if eng.State() != StateCompleted {
		t.Errorf("state = %s, want completed", eng.State())
	}

	errEvents := 0
	for _, ev := range events {
		if fe, ok := ev.(FileError); ok {
			errEvents++
			if fe.File != "broken.jpg" {
				t.Errorf("FileError.File = %s, want broken.jpg", fe.File)
			}
			if fe.Reason == "" {
				t.Error("FileError.Reason is empty")
			}
		}
	}
	if errEvents != 1 {
		t.Errorf("FileError events = %d, want 1", errEvents)
	}
}

func TestRun_RawWithoutCapability(t *testing.T) {
	if codec.Probe().RawDecode {
		t.Skip("raw decoding compiled in")
	}

	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "ok.png"), 20, 20)
	if err := os.WriteFile(filepath.Join(dir, "shot.cr2"), []byte{0x00}, 0o644); err != nil {
		t.Fatalf("write raw file: %v", err)
	}

	cfg := newTestConfig(t, dir)
	eng := newTestEngine(t, cfg)
	summary, _ := runAndCollect(t, eng)

	if summary.Processed != 1 {
		t.Errorf("processed = %d, want 1", summary.Processed)
	}
	if len(summary.Errors) != 1 || summary.Errors[0].File != "shot.cr2" {
		t.Fatalf("errors = %+v, want one for shot.cr2", summary.Errors)
	}
}

func TestRun_HeifFallsBackToJpeg(t *testing.T) {
	if codec.Probe().HeifEncode {
		t.Skip("heif encoding compiled in")
	}

	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 20, 20)

	cfg := newTestConfig(t, dir)
	cfg.ExportHeif = true
	eng := newTestEngine(t, cfg)
	summary, _ := runAndCollect(t, eng)

	if summary.Processed != 1 {
		t.Fatalf("summary = %+v, want 1 processed", summary)
	}
	got := outputNames(t, cfg.OutputDir)
	if len(got) != 1 || got[0] != "a.jpg" {
		t.Errorf("output files = %v, want [a.jpg]", got)
	}
}

func TestRun_Cancellation(t *testing.T) {
	dir := t.TempDir()
	const total = 120
	for i := 0; i < total; i++ {
		writePNG(t, filepath.Join(dir, fmt.Sprintf("img%03d.png", i)), 8, 8)
	}

	cfg := newTestConfig(t, dir)
	cfg.Workers = 1
	eng := newTestEngine(t, cfg)

	var events []Event
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range eng.Events() {
			events = append(events, ev)
			if op, ok := ev.(OverallProgress); ok && op.Done >= 1 {
				eng.Cancel()
			}
		}
	}()

	summary, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	<-done

	if eng.State() != StateCancelled {
		t.Errorf("state = %s, want cancelled", eng.State())
	}
	if summary.Processed >= total {
		t.Errorf("processed = %d, want fewer than %d", summary.Processed, total)
	}
	last := events[len(events)-1]
	if rc, ok := last.(RunCancelled); !ok || rc.Processed != summary.Processed {
		t.Errorf("last event = %#v, want RunCancelled{%d}", last, summary.Processed)
	}
}

func TestCancel_Idempotent(t *testing.T) {
	dir := t.TempDir()
	eng := newTestEngine(t, newTestConfig(t, dir))

	eng.Cancel()
	eng.Cancel()
	// A cancel before Run leaves the engine usable only for draining; state
	// is decided when Run observes the flag.
}

func TestCancel_AfterCompletion(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 20, 20)

	eng := newTestEngine(t, newTestConfig(t, dir))
	runAndCollect(t, eng)

	if eng.State() != StateCompleted {
		t.Fatalf("state = %s, want completed", eng.State())
	}
	eng.Cancel()
	if eng.State() != StateCompleted {
		t.Errorf("state after late cancel = %s, want completed", eng.State())
	}
}
