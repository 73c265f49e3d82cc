package detection

import (
	"context"
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/ironsheep/plate-redact/internal/classify"
	"github.com/ironsheep/plate-redact/internal/imaging"
	"github.com/ironsheep/plate-redact/internal/ocr"
	"github.com/ironsheep/plate-redact/internal/plate"
)

// OCR pass names, in the order they are tried.
const (
	PassOriginal = "original"
	PassContrast = "contrast"
	PassUpscale  = "upscale"
)

// contrastBoost is the AdjustContrast percentage for the contrast pass.
const contrastBoost = 40

// ocrPass prepares an image for the recognizer. scale maps boxes back:
// source = pass / scale.
type ocrPass struct {
	name    string
	prepare func(img image.Image) (image.Image, float64)
}

var ocrPasses = []ocrPass{
	{PassOriginal, func(img image.Image) (image.Image, float64) {
		return img, 1
	}},
	{PassContrast, func(img image.Image) (image.Image, float64) {
		return imaging.Contrast(img, contrastBoost), 1
	}},
	{PassUpscale, func(img image.Image) (image.Image, float64) {
		small, s := imaging.Downscale(img, analysisMaxSide)
		return imaging.ScaleBy(small, 2), 2 * s
	}},
}

// TextDetector turns recognized words into plate candidates.
type TextDetector struct {
	rec ocr.Recognizer
	cls *classify.Classifier
	log *zap.Logger
}

// NewTextDetector returns a text stage using rec and cls. A nil rec makes the
// stage report ErrUnavailable.
func NewTextDetector(rec ocr.Recognizer, cls *classify.Classifier, log *zap.Logger) *TextDetector {
	if cls == nil {
		cls = classify.New(classify.DefaultOptions())
	}
	return &TextDetector{rec: rec, cls: cls, log: orDefault(log)}
}

// Name implements Detector.
func (d *TextDetector) Name() plate.Source { return plate.SourceText }

// Detect runs the OCR passes in order and returns the accepted words of the
// first pass that has any. Each candidate carries the classifier padding.
//
// A recognizer error in one pass moves on to the next pass. The error is
// returned only when every pass failed.
func (d *TextDetector) Detect(ctx context.Context, src *imaging.Source) ([]plate.Candidate, error) {
	if d.rec == nil {
		return nil, ErrUnavailable
	}

	var lastErr error
	failed := 0
	for _, pass := range ocrPasses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, scale := pass.prepare(src.Image)
		dets, err := d.rec.Recognize(ctx, img)
		if errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		if err != nil {
			d.log.Warn("OCR pass failed", zap.String("pass", pass.name), zap.Error(err))
			lastErr = err
			failed++
			continue
		}

		cands := d.accept(dets, scale, src.Width, src.Height)
		d.log.Debug("OCR pass done",
			zap.String("pass", pass.name),
			zap.Int("words", len(dets)),
			zap.Int("accepted", len(cands)),
		)
		if len(cands) > 0 {
			for i := range cands {
				cands[i].Pass = pass.name
			}
			return cands, nil
		}
	}

	if failed == len(ocrPasses) {
		return nil, fmt.Errorf("all OCR passes failed: %w", lastErr)
	}
	return nil, nil
}

func (d *TextDetector) accept(dets []plate.TextDetection, scale float64, w, h int) []plate.Candidate {
	out := make([]plate.Candidate, 0)
	for _, det := range dets {
		if det.Confidence < classify.MinConfidence {
			continue
		}
		box := det.Box()
		if scale > 0 && scale != 1 {
			box = box.Scale(1 / scale)
		}
		res := d.cls.Classify(det.Text, box.AspectRatio())
		if !res.Accept {
			d.log.Debug("OCR word rejected",
				zap.String("text", res.Normalized),
				zap.String("reason", string(res.Reason)),
			)
			continue
		}

		box = box.Clamp(w, h)
		if box.Empty() {
			continue
		}
		px, py := classify.Padding(box.Width(), box.Height(), det.Confidence)
		out = append(out, plate.Candidate{
			Box:           box,
			Confidence:    det.Confidence,
			HasConfidence: true,
			Source:        plate.SourceText,
			Label:         res.Normalized,
			PadX:          px,
			PadY:          py,
		})
	}
	return out
}
