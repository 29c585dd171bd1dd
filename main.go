// Command silentwav writes silent WAV and AIFF files.
//
// Usage:
//
//	silentwav -o out.wav -duration 2.5 [options]
//	silentwav -verify out.wav
//	silentwav -tui [-o out.wav]
//	silentwav -serve [-port 8080]
//	silentwav -manifest batch.yaml [-watch]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"silentwav/dsp"
	"silentwav/internal/inspect"
	"silentwav/internal/manifest"
	"silentwav/pkg/silence"
	"silentwav/web"
)

const (
	defaultLogFile  = "silentwav.log"
	defaultDuration = 1.0
	shutdownTimeout = 5 * time.Second
)

var (
	errMissingOutput   = errors.New("missing -o output path")
	errMissingDuration = errors.New("missing -duration")
	errNotSilent       = errors.New("file is not silent")
)

type config struct {
	spec        silence.Spec
	durationSet bool
	output      string
	container   string
	verify      string
	thresholdDB float64

	manifest string
	workers  int
	watch    bool

	tui         bool
	serve       bool
	port        int
	openBrowser bool
	logFile     string
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (config, error) {
	cfg := config{spec: silence.DefaultSpec(defaultDuration)}

	fs := flag.NewFlagSet("silentwav", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.output, "o", "", "Output file; .aif/.aiff selects AIFF, .aifc AIFF-C, anything else WAV")
	fs.StringVar(&cfg.container, "container", "", "Force the container (wav, aiff, aifc) instead of using the extension")
	fs.Float64Var(&cfg.spec.Duration, "duration", defaultDuration, "Duration in seconds")
	fs.IntVar(&cfg.spec.SampleRate, "rate", silence.DefaultSampleRate, "Sample rate in Hz")
	fs.IntVar(&cfg.spec.NumChannels, "channels", silence.DefaultNumChannels, "Number of channels")
	fs.IntVar(&cfg.spec.SampleWidth, "width", silence.DefaultSampleWidth, "Sample width in bytes (1-4)")
	fs.StringVar(&cfg.spec.CompressionType, "comptype", silence.DefaultCompressionType, "Compression type (NONE, or sowt for AIFF-C)")
	fs.StringVar(&cfg.spec.CompressionName, "compname", silence.DefaultCompressionName, "Compression name stored in AIFF-C files")
	fs.StringVar(&cfg.verify, "verify", "", "Read a file back and report whether it is silent")
	fs.Float64Var(&cfg.thresholdDB, "threshold", dsp.DefaultSilenceThresholdDB, "Silence threshold in dBFS for -verify")
	fs.StringVar(&cfg.manifest, "manifest", "", "Generate every file listed in a YAML manifest")
	fs.IntVar(&cfg.workers, "workers", runtime.NumCPU(), "Files written in parallel with -manifest")
	fs.BoolVar(&cfg.watch, "watch", false, "Regenerate whenever the manifest changes (with -manifest)")
	fs.BoolVar(&cfg.tui, "tui", false, "Edit parameters in an interactive terminal UI")
	fs.BoolVar(&cfg.serve, "serve", false, "Serve the web UI and download API")
	fs.IntVar(&cfg.port, "port", 8080, "Web server port")
	fs.BoolVar(&cfg.openBrowser, "open", false, "Open the web UI in a browser (with -serve)")
	fs.StringVar(&cfg.logFile, "log", defaultLogFile, "Log file path (empty disables logging)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "silentwav writes silent WAV and AIFF files.\n\n")
		fmt.Fprintf(stderr, "Usage: silentwav [options]\n\n")
		fmt.Fprintf(stderr, "Examples:\n")
		fmt.Fprintf(stderr, "  silentwav -o silence.wav -duration 2.5\n")
		fmt.Fprintf(stderr, "  silentwav -o pad.aifc -duration 0.5 -rate 48000 -channels 2 -comptype sowt\n")
		fmt.Fprintf(stderr, "  silentwav -verify silence.wav\n")
		fmt.Fprintf(stderr, "  silentwav -manifest pads.yaml -watch\n")
		fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "duration" {
			cfg.durationSet = true
		}
	})

	return cfg, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	cfg, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}

	if err != nil {
		return err
	}

	closeLog, err := setupLogging(cfg.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	slog.Info("Starting silentwav", "args", args)

	container, err := cfg.resolveContainer()
	if err != nil {
		return err
	}

	switch {
	case cfg.manifest != "":
		return runManifest(cfg, stdout)
	case cfg.serve:
		return serve(cfg)
	case cfg.tui:
		return runTUI(newTUIState(cfg.spec, cfg.output, container))
	}

	if cfg.output == "" && cfg.verify == "" {
		return errMissingOutput
	}

	if cfg.output != "" {
		if !cfg.durationSet {
			return errMissingDuration
		}

		if err := generate(cfg, container, stdout); err != nil {
			return err
		}
	}

	if cfg.verify != "" {
		return verify(cfg.verify, cfg.thresholdDB, stdout)
	}

	return nil
}

func (c config) resolveContainer() (silence.Container, error) {
	if c.container != "" {
		return silence.ParseContainer(c.container)
	}

	return silence.ContainerForPath(c.output), nil
}

// setupLogging points the default slog logger at path and returns a function
// that closes the file.
func setupLogging(path string) (func(), error) {
	if path == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return func() {}, nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(file, nil)))

	return func() { file.Close() }, nil
}

func generate(cfg config, container silence.Container, stdout io.Writer) error {
	start := time.Now()

	if err := silence.CreateAs(cfg.output, cfg.spec, container); err != nil {
		slog.Error("Failed to write silence", "output", cfg.output, "error", err)
		return err
	}

	frames := cfg.spec.FrameCount()
	size := silence.FileSize(cfg.spec, container)

	slog.Info("Wrote silence",
		"output", cfg.output,
		"container", container,
		"frames", frames,
		"bytes", size,
		"elapsed", time.Since(start))

	fmt.Fprintf(stdout, "Wrote %s (%s, %d frames, %d bytes)\n", cfg.output, container, frames, size)

	return nil
}

// verify passes a file whose payload is all zero bytes or whose level is at
// or below thresholdDB.
func verify(path string, thresholdDB float64, stdout io.Writer) error {
	res, err := inspect.File(path, nil)
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", path, err)
	}

	slog.Info("Verified file",
		"path", path,
		"zeroPayload", res.ZeroPayload,
		"peakDB", res.Report.PeakDB,
		"spectralPeakDB", res.Report.SpectralPeakDB)

	fmt.Fprintln(stdout, res)

	if !res.Silent(thresholdDB, false) {
		return fmt.Errorf("%w: %s", errNotSilent, path)
	}

	return nil
}

// runManifest writes every file in the manifest, then with -watch keeps
// regenerating on each change until interrupted. A broken edit is reported
// and the watch continues.
func runManifest(cfg config, stdout io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := manifest.Load(cfg.manifest)
	if err != nil {
		return err
	}

	if err := generateManifest(ctx, m, cfg.workers, stdout); err != nil {
		return err
	}

	if !cfg.watch {
		return nil
	}

	fmt.Fprintf(stdout, "Watching %s for changes\n", cfg.manifest)

	return manifest.Watch(ctx, cfg.manifest, func(m *manifest.Manifest, err error) {
		if err == nil {
			err = generateManifest(ctx, m, cfg.workers, stdout)
		}

		if err != nil {
			slog.Error("Manifest regeneration failed", "manifest", cfg.manifest, "error", err)
			fmt.Fprintf(stdout, "Error: %v\n", err)
		}
	})
}

func generateManifest(ctx context.Context, m *manifest.Manifest, workers int, stdout io.Writer) error {
	jobs, err := m.Jobs()
	if err != nil {
		return err
	}

	results, err := manifest.Run(ctx, jobs, workers)
	if err != nil {
		return err
	}

	var total int64

	for _, r := range results {
		fmt.Fprintf(stdout, "Wrote %s (%s, %d frames, %d bytes)\n", r.Path, r.Container, r.Spec.FrameCount(), r.Bytes)
		total += r.Bytes
	}

	fmt.Fprintf(stdout, "Wrote %d files, %d bytes\n", len(results), total)

	return nil
}

func serve(cfg config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := web.NewServer(cfg.spec, cfg.port)

	errCh := make(chan error, 1)

	go func() {
		errCh <- server.Start()
	}()

	if cfg.openBrowser {
		url := fmt.Sprintf("http://localhost:%d", cfg.port)
		if err := web.OpenBrowser(ctx, url); err != nil {
			slog.Warn("Failed to open browser", "url", url, "error", err)
		}
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down web server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
