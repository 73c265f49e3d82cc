// Package batch drives the pipeline over a folder of images.
//
// Each image is tried with up to three option variants (strict, relaxed,
// ocr-only) and the first variant that changes the output wins. Outputs are
// written as <stem>_redacted<ext>; inputs already carrying that suffix are
// skipped, so repeated runs over the same folder are idempotent.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ironsheep/plate-redact/internal/classify"
	"github.com/ironsheep/plate-redact/internal/detection"
	"github.com/ironsheep/plate-redact/internal/logger"
	"github.com/ironsheep/plate-redact/internal/pipeline"
	"github.com/ironsheep/plate-redact/internal/plate"
)

// Suffix marks a file as processed.
const Suffix = "_redacted"

// Variant names.
const (
	VariantStrict  = "strict"
	VariantRelaxed = "relaxed"
	VariantOCROnly = "ocr-only"
	VariantHosted  = "hosted"
)

// aggressiveExpand is the renderer expansion used by -aggressive.
const aggressiveExpand = 0.25

// ErrInvalidInput is returned when the input folder cannot be used.
var ErrInvalidInput = errors.New("invalid input directory")

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// Redactor is the part of the pipeline the driver needs.
type Redactor interface {
	Mode() pipeline.Mode
	DefaultOptions() pipeline.Options
	RedactWith(ctx context.Context, data []byte, ext string, opts pipeline.Options) ([]byte, plate.Report)
}

// Options are the folder driver flags.
type Options struct {
	InPlace      bool
	Recursive    bool
	Aggressive   bool
	StrictOnly   bool
	OCROnly      bool
	SkipExisting bool

	// LogEvery logs a progress line every N files; 0 disables it.
	LogEvery int
}

// Validate rejects contradictory flags.
func (o Options) Validate() error {
	if o.StrictOnly && o.OCROnly {
		return errors.New("-strict-only and -ocr-only are mutually exclusive")
	}
	if o.LogEvery < 0 {
		return errors.New("-log-every must not be negative")
	}
	return nil
}

// Summary counts file outcomes.
type Summary struct {
	Processed int
	Blurred   int
	NoPlate   int
	Failed    int
	Skipped   int
}

func (s Summary) String() string {
	return fmt.Sprintf("processed=%d blurred=%d no_plate=%d failed=%d skipped=%d",
		s.Processed, s.Blurred, s.NoPlate, s.Failed, s.Skipped)
}

// Runner processes folders sequentially.
type Runner struct {
	p    Redactor
	opts Options
	out  io.Writer
	log  *zap.Logger
}

// New returns a Runner that prints one line per file to out.
func New(p Redactor, opts Options, out io.Writer, log *zap.Logger) *Runner {
	if log == nil {
		log = logger.Log()
	}
	if out == nil {
		out = io.Discard
	}
	return &Runner{p: p, opts: opts, out: out, log: log.Named("batch")}
}

// Variants returns the option sets tried for each image, in order. Only the
// last one carries the failsafe.
func (r *Runner) Variants() []pipeline.Options {
	base := r.p.DefaultOptions()
	failsafe := base.Failsafe || r.opts.Aggressive

	if r.p.Mode() == pipeline.ModeHosted {
		v := base
		v.Variant = VariantHosted
		v.Failsafe = failsafe
		if r.opts.Aggressive {
			v.ExpandRatio = aggressiveExpand
		}
		return []pipeline.Options{v}
	}

	strict := base
	strict.Variant = VariantStrict
	strict.Geometry = detection.StrictGeometry()
	strict.Classifier = classify.DefaultOptions()

	relaxed := base
	relaxed.Variant = VariantRelaxed
	relaxed.Geometry = detection.RelaxedGeometry()
	relaxed.Classifier = classify.RelaxedOptions()
	// The model stages ignore geometry and classifier options, so they run
	// once per image, in the strict variant.
	relaxed.Stages = []plate.Source{plate.SourceText, plate.SourceEdge, plate.SourceColor}

	ocrOnly := base
	ocrOnly.Variant = VariantOCROnly
	ocrOnly.Stages = []plate.Source{plate.SourceText}
	ocrOnly.Classifier = classify.RelaxedOptions()

	var vs []pipeline.Options
	switch {
	case r.opts.StrictOnly:
		vs = []pipeline.Options{strict}
	case r.opts.OCROnly:
		vs = []pipeline.Options{ocrOnly}
	default:
		vs = []pipeline.Options{strict, relaxed, ocrOnly}
	}

	for i := range vs {
		vs[i].Failsafe = false
		if r.opts.Aggressive {
			vs[i].Geometry = detection.RelaxedGeometry()
			vs[i].Classifier = classify.RelaxedOptions()
			vs[i].ExpandRatio = aggressiveExpand
		}
	}
	vs[len(vs)-1].Failsafe = failsafe
	return vs
}

// Run processes every image under inDir. outDir may be empty, in which case
// outputs are written next to their inputs. Per-file failures are counted,
// never returned.
func (r *Runner) Run(ctx context.Context, inDir, outDir string) (Summary, error) {
	var sum Summary

	info, err := os.Stat(inDir)
	if err != nil {
		return sum, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !info.IsDir() {
		return sum, fmt.Errorf("%w: %s is not a directory", ErrInvalidInput, inDir)
	}
	if r.opts.InPlace || outDir == "" {
		outDir = inDir
	}

	variants := r.Variants()
	seen := 0
	err = filepath.WalkDir(inDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			r.log.Warn("cannot read path", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() && path != inDir {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != inDir && !r.opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !imageExts[ext] {
			return nil
		}

		seen++
		r.processFile(ctx, path, inDir, outDir, variants, &sum)
		if r.opts.LogEvery > 0 && seen%r.opts.LogEvery == 0 {
			r.log.Info("progress",
				zap.Int("seen", seen),
				zap.Int("processed", sum.Processed),
				zap.Int("blurred", sum.Blurred),
				zap.Int("failed", sum.Failed),
				zap.Int("skipped", sum.Skipped),
			)
		}
		return nil
	})
	if err != nil {
		return sum, err
	}

	fmt.Fprintln(r.out, sum.String())
	return sum, nil
}

func (r *Runner) processFile(ctx context.Context, path, inDir, outDir string, variants []pipeline.Options, sum *Summary) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	if strings.HasSuffix(stem, Suffix) {
		sum.Skipped++
		return
	}

	rel, err := filepath.Rel(inDir, filepath.Dir(path))
	if err != nil {
		rel = "."
	}
	if r.opts.SkipExisting {
		if dst, ok := existingOutput(filepath.Join(outDir, rel, stem+Suffix), ext); ok {
			sum.Skipped++
			fmt.Fprintf(r.out, "%s: skipped existing %s\n", path, dst)
			return
		}
	}

	sum.Processed++
	data, err := os.ReadFile(path)
	if err != nil {
		sum.Failed++
		r.log.Warn("cannot read image", zap.String("path", path), zap.Error(err))
		fmt.Fprintf(r.out, "%s: %s found=0 applied=0 variant=-\n", path, plate.StatusError)
		return
	}

	var (
		out []byte
		rep plate.Report
	)
	for _, v := range variants {
		out, rep = r.p.RedactWith(ctx, data, ext, v)
		if rep.Status.Changed() || rep.Status == plate.StatusDecodeFailed || rep.Status == plate.StatusError {
			break
		}
	}
	fmt.Fprintf(r.out, "%s: %s found=%d applied=%d variant=%s\n", path, rep.Status, rep.Found, rep.Applied, rep.Variant)

	switch {
	case rep.Status.Changed():
		sum.Blurred++
	case rep.Status.Failed():
		sum.Failed++
		return
	default:
		sum.NoPlate++
	}

	dst := filepath.Join(outDir, rel, stem+Suffix+outputExt(ext, rep.OutputFormat))
	if err := writeFile(dst, out); err != nil {
		sum.Failed++
		if rep.Status.Changed() {
			sum.Blurred--
		} else {
			sum.NoPlate--
		}
		r.log.Error("cannot write output", zap.String("path", dst), zap.Error(err))
		return
	}
	if r.opts.InPlace {
		if err := os.Remove(path); err != nil {
			r.log.Warn("cannot remove original", zap.String("path", path), zap.Error(err))
		}
	}
}

// outputExt keeps the input extension unless the pipeline had to fall back
// to a different encoding.
func outputExt(ext, format string) string {
	if format != "jpeg" {
		return ext
	}
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return ext
	}
	return ".jpg"
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// existingOutput looks for a previous output of base under either name the
// writer may have used: the input extension or the JPEG fallback.
func existingOutput(base, ext string) (string, bool) {
	for _, e := range []string{ext, outputExt(ext, "jpeg")} {
		if exists(base + e) {
			return base + e, true
		}
	}
	return "", false
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
