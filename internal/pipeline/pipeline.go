// Package pipeline runs the detector stages in policy order and renders the
// result.
//
// A Pipeline holds only read-only handles (the OCR engine, the local model
// and the hosted client) and is safe for concurrent use. Every call decodes
// its own image, so no state is shared between calls.
//
// Two policies are supported:
//
//	legacy: text -> edge -> color -> local-model -> hosted-model -> failsafe
//	hosted: hosted-model only, without the failsafe tier
//
// The first stage that blurs at least one region ends the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ironsheep/plate-redact/internal/classify"
	"github.com/ironsheep/plate-redact/internal/detection"
	"github.com/ironsheep/plate-redact/internal/imaging"
	"github.com/ironsheep/plate-redact/internal/logger"
	"github.com/ironsheep/plate-redact/internal/metrics"
	"github.com/ironsheep/plate-redact/internal/ocr"
	"github.com/ironsheep/plate-redact/internal/plate"
	"github.com/ironsheep/plate-redact/internal/redact"
)

// Mode selects the stage policy.
type Mode string

const (
	ModeLegacy Mode = "legacy"
	ModeHosted Mode = "hosted"
)

// Config is the pipeline part of the process configuration.
type Config struct {
	Mode Mode

	// Enabled false makes every call return its input unchanged.
	Enabled bool

	// ExpandRatio overrides the renderer expansion. Negative keeps the
	// default of the mode.
	ExpandRatio float64

	// HostedFailsafe adds the failsafe tier to the hosted policy.
	HostedFailsafe bool
}

// DefaultConfig is the enabled legacy policy with mode-default expansion.
func DefaultConfig() Config {
	return Config{Mode: ModeLegacy, Enabled: true, ExpandRatio: -1}
}

// Deps are the long-lived handles shared by every call. Nil members disable
// the corresponding stage: it reports itself unavailable, or is left out
// entirely for Hosted in the legacy policy.
type Deps struct {
	Recognizer ocr.Recognizer
	Model      detection.Model
	Hosted     detection.Detector

	LocalOptions detection.LocalOptions

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Options tunes a single call. The batch driver uses it to walk through its
// variants.
type Options struct {
	// Variant names the option set in the report.
	Variant string

	Geometry   detection.Geometry
	Classifier classify.Options

	// Stages restricts the run to these stages, in policy order. Empty runs
	// every stage of the policy.
	Stages []plate.Source

	// Failsafe blurs the fixed fallback region when nothing else was blurred.
	Failsafe bool

	// ExpandRatio overrides the renderer expansion when non-negative.
	ExpandRatio float64
}

// Pipeline is the ensemble orchestrator.
type Pipeline struct {
	cfg  Config
	deps Deps
	log  *zap.Logger
}

// New returns a pipeline for cfg. deps are used as given and never closed.
func New(cfg Config, deps Deps) *Pipeline {
	if cfg.Mode == "" {
		cfg.Mode = ModeLegacy
	}
	if len(deps.LocalOptions.Scales) == 0 {
		deps.LocalOptions = detection.DefaultLocalOptions()
	}
	log := deps.Logger
	if log == nil {
		log = logger.Log()
	}
	return &Pipeline{cfg: cfg, deps: deps, log: log.Named("pipeline")}
}

// Mode returns the policy the pipeline runs.
func (p *Pipeline) Mode() Mode { return p.cfg.Mode }

// DefaultOptions returns the strict option set for the pipeline's policy.
func (p *Pipeline) DefaultOptions() Options {
	return Options{
		Variant:     "strict",
		Geometry:    detection.StrictGeometry(),
		Classifier:  classify.DefaultOptions(),
		Failsafe:    p.cfg.Mode == ModeLegacy || p.cfg.HostedFailsafe,
		ExpandRatio: -1,
	}
}

// Redact runs the configured policy over one encoded image.
//
// The returned bytes are always a valid image: the redacted re-encoding when
// something was blurred, otherwise data itself. Failures are reported in the
// Report, never as an error or a panic.
func (p *Pipeline) Redact(ctx context.Context, data []byte, ext string) ([]byte, plate.Report) {
	return p.RedactWith(ctx, data, ext, p.DefaultOptions())
}

// RedactWith is Redact with explicit options.
func (p *Pipeline) RedactWith(ctx context.Context, data []byte, ext string, opts Options) (out []byte, rep plate.Report) {
	start := time.Now()
	rep = plate.Report{RequestID: uuid.NewString(), Variant: opts.Variant}
	log := p.log.With(zap.String("request_id", rep.RequestID))
	out = data

	defer func() {
		if r := recover(); r != nil {
			log.Error("redaction panicked", zap.Any("panic", r), zap.Stack("stack"))
			out = data
			rep.Status = plate.StatusError
			rep.Applied = 0
			rep.Error = fmt.Sprintf("panic: %v", r)
		}
		elapsed := time.Since(start)
		rep.DurationMS = elapsed.Milliseconds()
		p.deps.Metrics.Observe(string(rep.Status), string(rep.Stage), rep.Applied, elapsed)
		log.Info("redaction finished",
			zap.String("status", string(rep.Status)),
			zap.String("stage", string(rep.Stage)),
			zap.String("variant", rep.Variant),
			zap.Int("found", rep.Found),
			zap.Int("applied", rep.Applied),
			zap.Duration("elapsed", elapsed),
		)
	}()

	if !p.cfg.Enabled {
		rep.Status = plate.StatusNoPlates
		rep.Disabled = true
		return data, rep
	}

	src, err := imaging.Decode(data, ext)
	if err != nil {
		log.Warn("input could not be decoded", zap.Error(err))
		rep.Status = plate.StatusDecodeFailed
		rep.Error = err.Error()
		return data, rep
	}
	rep.Orientation = src.Orientation
	rep.Format = src.Format

	img := imaging.Clone(src.Image)
	render := p.renderOptions(opts)

	var (
		attempted   int
		unavailable int
		failed      int
		requestErr  error
	)
	for _, stage := range p.stages(opts, log) {
		if err := ctx.Err(); err != nil {
			rep.Status = plate.StatusError
			rep.Error = err.Error()
			return data, rep
		}

		cands, err := runStage(ctx, stage, src)
		attempted++
		trace := plate.StageTrace{Stage: stage.Name(), Found: len(cands)}
		if err != nil {
			trace.Error = err.Error()
			failed++
			switch {
			case errors.Is(err, detection.ErrUnavailable):
				unavailable++
				log.Debug("stage unavailable", zap.String("stage", string(stage.Name())))
			case detection.IsRequestError(err):
				requestErr = err
			default:
				log.Warn("stage failed", zap.String("stage", string(stage.Name())), zap.Error(err))
			}
		}

		rep.Found += len(cands)
		trace.Applied = redact.Apply(img, cands, render)
		rep.Stages = append(rep.Stages, trace)
		log.Debug("stage done",
			zap.String("stage", string(trace.Stage)),
			zap.Int("found", trace.Found),
			zap.Int("applied", trace.Applied),
		)

		if trace.Applied > 0 {
			rep.Applied = trace.Applied
			rep.Stage = stage.Name()
			if stage.Name() == plate.SourceText {
				rep.OCRPass = cands[0].Pass
			}
			break
		}
	}

	if rep.Applied == 0 && opts.Failsafe {
		c := redact.Failsafe(img, render)
		rep.Applied = 1
		rep.Stage = plate.SourceFailsafe
		rep.Failsafe = true
		rep.Stages = append(rep.Stages, plate.StageTrace{Stage: plate.SourceFailsafe, Found: 1, Applied: 1})
		log.Warn("no plate located, failsafe region blurred", zap.Any("box", c.Box))
	}

	if rep.Applied == 0 {
		switch {
		case requestErr != nil:
			rep.Status = plate.StatusDetectFailed
			rep.Error = requestErr.Error()
		case rep.Found > 0:
			rep.Status = plate.StatusNoValidROIs
		case attempted > 0 && unavailable == attempted:
			rep.Status = plate.StatusOpenCVMissing
			rep.Error = detection.ErrUnavailable.Error()
		case attempted > 0 && failed == attempted:
			rep.Status = plate.StatusError
			rep.Error = rep.Stages[len(rep.Stages)-1].Error
		default:
			rep.Status = plate.StatusNoPlates
		}
		if p.cfg.Mode == ModeHosted && !opts.Failsafe {
			rep.PolicyGap = true
			log.Warn("hosted policy found no plate and has no failsafe tier; image left unredacted",
				zap.String("status", string(rep.Status)))
		}
		return data, rep
	}

	encoded, format, err := imaging.Encode(img, imaging.OutputFormat(src.Ext, src.Format))
	if err != nil {
		log.Error("redacted image could not be encoded", zap.Error(err))
		rep.Status = plate.StatusError
		rep.Error = err.Error()
		rep.Applied = 0
		return data, rep
	}
	rep.Status = plate.StatusBlurred
	rep.OutputFormat = format
	return encoded, rep
}

func (p *Pipeline) renderOptions(opts Options) redact.Options {
	r := redact.LegacyOptions()
	if p.cfg.Mode == ModeHosted {
		r = redact.HostedOptions()
	}
	if p.cfg.ExpandRatio >= 0 {
		r.ExpandRatio = p.cfg.ExpandRatio
	}
	if opts.ExpandRatio >= 0 {
		r.ExpandRatio = opts.ExpandRatio
	}
	return r
}

// stages builds the ordered stage list for one call. Stages are cheap values
// around the shared handles in Deps.
func (p *Pipeline) stages(opts Options, log *zap.Logger) []detection.Detector {
	var all []detection.Detector
	if p.cfg.Mode == ModeLegacy {
		all = append(all,
			detection.NewTextDetector(p.deps.Recognizer, classify.New(opts.Classifier), log),
			detection.NewEdgeDetector(opts.Geometry, log),
			detection.NewColorDetector(opts.Geometry, log),
			detection.NewLocalDetector(p.deps.Model, p.deps.LocalOptions, log),
		)
	}
	if p.deps.Hosted != nil {
		all = append(all, p.deps.Hosted)
	} else if p.cfg.Mode == ModeHosted {
		all = append(all, unavailableStage{plate.SourceHosted})
	}

	if len(opts.Stages) == 0 {
		return all
	}
	want := make(map[plate.Source]bool, len(opts.Stages))
	for _, s := range opts.Stages {
		want[s] = true
	}
	out := all[:0]
	for _, d := range all {
		if want[d.Name()] {
			out = append(out, d)
		}
	}
	return out
}

// runStage calls d and turns a panic into an error so that one broken stage
// cannot abort the run.
func runStage(ctx context.Context, d detection.Detector, src *imaging.Source) (cands []plate.Candidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			cands = nil
			err = fmt.Errorf("stage %s panicked: %v", d.Name(), r)
		}
	}()
	return d.Detect(ctx, src)
}

// unavailableStage stands in for a stage whose backend was never built.
type unavailableStage struct {
	name plate.Source
}

func (u unavailableStage) Name() plate.Source { return u.name }

func (u unavailableStage) Detect(context.Context, *imaging.Source) ([]plate.Candidate, error) {
	return nil, detection.ErrUnavailable
}
