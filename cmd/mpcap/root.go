package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rolivares/mpcap/internal/codec"
	"github.com/rolivares/mpcap/internal/config"
	"github.com/rolivares/mpcap/internal/engine"
	"github.com/rolivares/mpcap/internal/telemetry"
	"github.com/rolivares/mpcap/internal/tui"
)

var (
	flagOutput          string
	flagRecurse         bool
	flagMegapixels      int
	flagQuality         int
	flagWorkers         int
	flagHeif            bool
	flagHeifCompression int
	flagNoUI            bool
)

var rootCmd = &cobra.Command{
	Use:          "mpcap [flags] <input-dir>",
	Short:        "mpcap - batch convert image trees to resolution-capped JPEG or HEIF",
	Long: "mpcap walks a directory of raster and camera RAW images and rewrites\n" +
		"each one as a JPEG (or HEIF) capped to a megapixel budget, preserving\n" +
		"the directory structure under the output folder.",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         run,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "destination folder (default <input-dir>/output)")
	rootCmd.Flags().BoolVarP(&flagRecurse, "recurse", "r", true, "include subdirectories")
	rootCmd.Flags().IntVarP(&flagMegapixels, "megapixels", "m", config.DefaultMegapixels, "resolution budget in megapixels (2-64)")
	rootCmd.Flags().IntVarP(&flagQuality, "quality", "q", config.DefaultQuality, "output quality (1-12)")
	rootCmd.Flags().IntVarP(&flagWorkers, "workers", "w", config.DefaultWorkers, "concurrent conversion workers")
	rootCmd.Flags().BoolVar(&flagHeif, "heif", false, "export HEIF instead of JPEG when the encoder is available")
	rootCmd.Flags().IntVar(&flagHeifCompression, "heif-compression", config.DefaultQuality, "HEIF compression level (1-12)")
	rootCmd.Flags().BoolVar(&flagNoUI, "no-ui", false, "disable the interactive progress display")

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
}

func run(cmd *cobra.Command, args []string) error {
	loadEnv()
	setupLogging()

	cfg := config.Default()
	cfg.ApplyEnv()
	cfg.InputDir = args[0]
	cfg.Recurse = flagRecurse
	cfg.ExportHeif = flagHeif
	if cmd.Flags().Changed("output") {
		cfg.OutputDir = flagOutput
	}
	if cmd.Flags().Changed("megapixels") {
		cfg.Megapixels = flagMegapixels
	}
	if cmd.Flags().Changed("quality") {
		cfg.Quality = flagQuality
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = flagWorkers
	}
	if cmd.Flags().Changed("heif-compression") {
		cfg.HeifCompression = flagHeifCompression
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetrySvc, err := telemetry.NewTelemetrySvc(ctx)
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}

	registry := codec.NewRegistry()
	caps := registry.Capabilities()
	slog.Info(
		"Codec capabilities",
		"rawDecode", caps.RawDecode,
		"heifEncode", caps.HeifEncode,
	)

	notifier := prepareNotifier()
	if notifier != nil {
		defer notifier.Close()
	}

	eng := engine.New(cfg, registry, telemetrySvc)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s, ok := <-sigChan
		if !ok {
			return
		}
		slog.Info("Received OS signal, cancelling run...", "signal", s.String())
		eng.Cancel()
	}()

	var summary engine.Summary
	if flagNoUI {
		summary, err = runPlain(ctx, eng, notifier)
	} else {
		summary, err = runWithUI(ctx, eng, notifier, cfg.Workers)
	}
	signal.Stop(sigChan)
	close(sigChan)
	if err != nil {
		return err
	}

	printSummary(os.Stdout, cfg, eng, summary)

	if err := telemetrySvc.Shutdown(ctx); err != nil {
		slog.Error("Failed to shutdown telemetry services", "error", err)
	}
	return nil
}

func setupLogging() {
	var log_level slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "DEBUG", "debug":
		log_level = slog.LevelDebug
	case "WARN", "warn":
		log_level = slog.LevelWarn
	case "ERROR", "error":
		log_level = slog.LevelError
	default:
		log_level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     log_level,
		AddSource: false,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {

			// Format time to show only the time (HH:MM:SS)
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().Format("15:04:05"))
			}

			return a
		},
	}

	// stderr so log lines never interleave with the progress display
	logger := slog.New(slog.NewTextHandler(os.Stderr, handlerOpts))
	slog.SetDefault(logger)
}

func loadEnv() {
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		return
	}

	err := godotenv.Load(".env")
	if err != nil {
		slog.Error("Error loading .env file", "error", err)
		os.Exit(1)
	}
}

func printSummary(out *os.File, cfg config.RunConfig, eng *engine.Engine, summary engine.Summary) {
	rows := []tui.SummaryRow{
		{Label: "Files discovered", Value: fmt.Sprintf("%d", summary.Total)},
		{Label: "Files converted", Value: fmt.Sprintf("%d", summary.Processed)},
		{Label: "Failures", Value: fmt.Sprintf("%d", len(summary.Errors))},
		{Label: "Output directory", Value: cfg.OutputDir},
	}
	fmt.Fprintln(out, tui.RenderSummary(rows))

	for _, fe := range summary.Errors {
		fmt.Fprintf(out, "failed: %s: %s\n", fe.File, fe.Reason)
	}

	if eng.State() == engine.StateCancelled {
		fmt.Fprintln(out, "Run cancelled before all files were processed.")
	}
}
