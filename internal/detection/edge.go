package detection

import (
	"context"

	"go.uber.org/zap"

	"github.com/ironsheep/plate-redact/internal/imaging"
	"github.com/ironsheep/plate-redact/internal/plate"
)

// Closing element for the gradient mask: wide enough to bridge the gap
// between two characters, short enough not to join text lines.
const (
	edgeCloseW = 17
	edgeCloseH = 3
)

// minBlobPixels drops specks before the geometry filter.
const minBlobPixels = 20

// EdgeDetector finds the largest plate-shaped blob of strong vertical
// strokes.
type EdgeDetector struct {
	Geometry Geometry

	// PadX and PadY are padding fractions of the blob width and height.
	PadX float64
	PadY float64

	log *zap.Logger
}

// NewEdgeDetector returns an EdgeDetector with 10% / 15% padding.
func NewEdgeDetector(g Geometry, log *zap.Logger) *EdgeDetector {
	return &EdgeDetector{Geometry: g, PadX: 0.10, PadY: 0.15, log: orDefault(log)}
}

// Name implements Detector.
func (d *EdgeDetector) Name() plate.Source { return plate.SourceEdge }

// Detect returns at most one candidate.
//
// # Algorithm
//
//  1. Horizontal Sobel gradient of the luminance
//  2. Otsu threshold
//  3. Morphological close with a 17x3 rectangle
//  4. Connected components, filtered by Geometry
//  5. Largest surviving blob, padded and mapped back
func (d *EdgeDetector) Detect(ctx context.Context, src *imaging.Source) ([]plate.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	small, scale := imaging.Downscale(src.Image, analysisMaxSide)
	w, h := small.Bounds().Dx(), small.Bounds().Dy()

	mask := imaging.Binarize(imaging.HorizontalGradient(small)).Close(edgeCloseW, edgeCloseH)
	comps := imaging.Components(mask, minBlobPixels)

	box, ok := bestBlob(comps, w, h, d.Geometry, 1)
	d.log.Debug("edge stage analyzed",
		zap.Int("components", len(comps)),
		zap.Bool("found", ok),
	)
	if !ok {
		return nil, nil
	}

	box = toSource(box, scale, d.PadX, d.PadY, src.Width, src.Height)
	if box.Empty() {
		return nil, nil
	}
	return []plate.Candidate{{Box: box, Source: plate.SourceEdge}}, nil
}
