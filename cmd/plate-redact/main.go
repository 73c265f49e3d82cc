package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ironsheep/plate-redact/internal/batch"
	"github.com/ironsheep/plate-redact/internal/config"
	"github.com/ironsheep/plate-redact/internal/detection"
	"github.com/ironsheep/plate-redact/internal/logger"
	"github.com/ironsheep/plate-redact/internal/metrics"
	"github.com/ironsheep/plate-redact/internal/ocr"
	"github.com/ironsheep/plate-redact/internal/pipeline"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("plate-redact", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		opts        batch.Options
		configPath  string
		metricsAddr string
		showVersion bool
	)
	fs.BoolVar(&opts.InPlace, "in-place", false, "Replace the inputs with their redacted copies")
	fs.BoolVar(&opts.Recursive, "recursive", false, "Descend into sub-directories")
	fs.BoolVar(&opts.Aggressive, "aggressive", false, "Relaxed geometry, larger expansion and a forced failsafe")
	fs.BoolVar(&opts.StrictOnly, "strict-only", false, "Only try the strict variant")
	fs.BoolVar(&opts.OCROnly, "ocr-only", false, "Only try the OCR-only variant")
	fs.BoolVar(&opts.SkipExisting, "skip-existing", false, "Skip inputs whose output already exists")
	fs.IntVar(&opts.LogEvery, "log-every", 0, "Log progress every N files (0 disables)")
	fs.StringVar(&configPath, "config", "", "YAML configuration file")
	fs.StringVar(&metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address while running")
	fs.BoolVar(&showVersion, "version", false, "Print version information")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: plate-redact [flags] <input-dir> [output-dir]")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Blurs licence plates in every image of a folder. Outputs are written")
		fmt.Fprintln(stderr, "as <name>"+batch.Suffix+"<ext>; inputs with that suffix are skipped.")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Flags:")
		fs.PrintDefaults()
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Environment variables (also read from .env):")
		fmt.Fprintln(stderr, "  PLATE_PIPELINE=legacy|hosted    PLATE_DETECTOR_ENABLED=true|false")
		fmt.Fprintln(stderr, "  PLATE_API_KEY, PLATE_PROJECT, PLATE_VERSION, PLATE_API_URL")
		fmt.Fprintln(stderr, "  PLATE_CONFIDENCE, PLATE_OVERLAP, PLATE_TIMEOUT, PLATE_EXPAND_RATIO")
		fmt.Fprintln(stderr, "  PLATE_MODEL_PATH, PLATE_OCR_LANG, PLATE_LOG_LEVEL")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if showVersion {
		fmt.Fprintf(stdout, "plate-redact %s\n", Version)
		fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
		return exitOK
	}
	if err := opts.Validate(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitUsage
	}

	rest := fs.Args()
	if len(rest) < 1 || len(rest) > 2 {
		fs.Usage()
		return exitUsage
	}
	inDir, outDir := rest[0], ""
	if len(rest) == 2 {
		if opts.InPlace {
			fmt.Fprintln(stderr, "Error: -in-place does not take an output directory")
			return exitUsage
		}
		outDir = rest[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(stderr, "Error: invalid configuration:", err)
		return exitUsage
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogDev); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitUsage
	}
	defer logger.Sync()
	log := logger.Log()
	log.Debug("configuration loaded", zap.Any("config", cfg.Redacted()))

	if metricsAddr == "" {
		metricsAddr = cfg.MetricsAddr
	}
	m := metrics.New()
	if metricsAddr != "" {
		go m.Serve(ctx, metricsAddr, log)
	}

	deps, closeDeps := buildDeps(cfg, log)
	defer closeDeps()
	deps.Metrics = m

	p := pipeline.New(cfg.PipelineConfig(), deps)
	runner := batch.New(p, opts, stdout, log)
	if _, err := runner.Run(ctx, inDir, outDir); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		if errors.Is(err, batch.ErrInvalidInput) {
			return exitUsage
		}
		return exitError
	}
	return exitOK
}

// buildDeps creates the long-lived handles. A backend that cannot start is
// logged and left nil; the pipeline reports it as unavailable per image.
func buildDeps(cfg *config.Config, log *zap.Logger) (pipeline.Deps, func()) {
	deps := pipeline.Deps{Logger: log}
	var closers []func() error

	if tess, err := ocr.NewTesseract(cfg.OCR); err != nil {
		log.Warn("OCR unavailable, text stage disabled", zap.Error(err))
	} else {
		deps.Recognizer = tess
		closers = append(closers, tess.Close)
	}

	if cfg.LocalModel.Path != "" {
		if model, err := detection.NewONNXModel(cfg.LocalModel); err != nil {
			log.Warn("local model unavailable", zap.String("path", cfg.LocalModel.Path), zap.Error(err))
		} else {
			deps.Model = model
			closers = append(closers, model.Close)
		}
	}

	if hc := cfg.HostedConfig(); hc.Configured() {
		deps.Hosted = detection.NewHostedDetector(hc, log)
	}

	log.Info("pipeline ready",
		zap.String("pipeline", cfg.Pipeline),
		zap.Bool("detector_enabled", cfg.DetectorEnabled),
		zap.Bool("ocr", deps.Recognizer != nil),
		zap.Bool("local_model", deps.Model != nil),
		zap.Bool("hosted", deps.Hosted != nil),
	)
	return deps, func() {
		for _, c := range closers {
			_ = c()
		}
	}
}
