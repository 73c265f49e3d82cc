package detection

import (
	"context"
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/ironsheep/plate-redact/internal/geometry"
	"github.com/ironsheep/plate-redact/internal/imaging"
	"github.com/ironsheep/plate-redact/internal/plate"
)

// RawBox is one detection in the pixel coordinates of the image the model
// was given.
type RawBox struct {
	X1, Y1, X2, Y2 float64
	Confidence     float64
	Class          int
}

// Model is a pretrained plate detector. Implementations must be safe for
// concurrent use.
type Model interface {
	Detect(ctx context.Context, img image.Image) ([]RawBox, error)
}

// ModelFunc adapts a function to the Model interface.
type ModelFunc func(ctx context.Context, img image.Image) ([]RawBox, error)

// Detect calls f.
func (f ModelFunc) Detect(ctx context.Context, img image.Image) ([]RawBox, error) {
	return f(ctx, img)
}

// LocalOptions tunes the multi-scale local stage.
type LocalOptions struct {
	// Scales are the resize factors the model is run at.
	Scales []float64

	// MinAR and MaxAR bound the aspect ratio of kept boxes.
	MinAR float64
	MaxAR float64

	// IoUThreshold is the NMS suppression threshold across scales.
	IoUThreshold float64
}

// DefaultLocalOptions runs at 1.0, 1.25 and 1.5 with an IoU threshold of 0.5.
func DefaultLocalOptions() LocalOptions {
	return LocalOptions{
		Scales:       []float64{1.0, 1.25, 1.5},
		MinAR:        1.5,
		MaxAR:        7.0,
		IoUThreshold: 0.5,
	}
}

// LocalDetector runs a Model at several scales and merges the results.
type LocalDetector struct {
	model Model
	opts  LocalOptions
	log   *zap.Logger
}

// NewLocalDetector returns a local stage. A nil model makes the stage report
// ErrUnavailable.
func NewLocalDetector(model Model, opts LocalOptions, log *zap.Logger) *LocalDetector {
	if len(opts.Scales) == 0 {
		opts.Scales = DefaultLocalOptions().Scales
	}
	if opts.IoUThreshold <= 0 {
		opts.IoUThreshold = 0.5
	}
	return &LocalDetector{model: model, opts: opts, log: orDefault(log)}
}

// Name implements Detector.
func (d *LocalDetector) Name() plate.Source { return plate.SourceLocal }

// Detect runs the model once per scale, maps each box back by dividing by the
// scale, drops boxes with a non-plate aspect ratio or a center above the
// middle of the frame, and merges duplicates with greedy NMS.
func (d *LocalDetector) Detect(ctx context.Context, src *imaging.Source) ([]plate.Candidate, error) {
	if d.model == nil {
		return nil, ErrUnavailable
	}

	var (
		boxes   []geometry.Box
		scores  []float64
		classes []int
		lastErr error
		failed  int
	)
	for _, s := range d.opts.Scales {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var img image.Image = src.Image
		if s != 1 {
			img = imaging.ScaleBy(src.Image, s)
		}

		raw, err := d.model.Detect(ctx, img)
		if errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		if err != nil {
			d.log.Warn("local model failed", zap.Float64("scale", s), zap.Error(err))
			lastErr = err
			failed++
			continue
		}

		for _, r := range raw {
			box := geometry.FromFloat(r.X1/s, r.Y1/s, r.X2/s, r.Y2/s).Clamp(src.Width, src.Height)
			if !d.keep(box, src.Height) {
				continue
			}
			boxes = append(boxes, box)
			scores = append(scores, r.Confidence)
			classes = append(classes, r.Class)
		}
	}
	if failed == len(d.opts.Scales) {
		return nil, fmt.Errorf("local model failed at every scale: %w", lastErr)
	}

	kept := geometry.NMS(boxes, scores, d.opts.IoUThreshold)
	out := make([]plate.Candidate, 0, len(kept))
	for _, i := range kept {
		out = append(out, plate.Candidate{
			Box:           boxes[i],
			Confidence:    scores[i],
			HasConfidence: true,
			Source:        plate.SourceLocal,
			Label:         fmt.Sprintf("class_%d", classes[i]),
		})
	}
	d.log.Debug("local stage merged", zap.Int("raw", len(boxes)), zap.Int("kept", len(out)))
	return out, nil
}

// keep applies the aspect ratio and lower-half position filter.
func (d *LocalDetector) keep(box geometry.Box, h int) bool {
	if box.Empty() {
		return false
	}
	ar := box.AspectRatio()
	if ar < d.opts.MinAR || ar > d.opts.MaxAR {
		return false
	}
	_, cy := box.Center()
	return cy >= float64(h)/2
}
