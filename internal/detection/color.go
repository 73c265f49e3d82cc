package detection

import (
	"context"

	"go.uber.org/zap"

	"github.com/ironsheep/plate-redact/internal/imaging"
	"github.com/ironsheep/plate-redact/internal/plate"
)

const (
	colorCloseW = 15
	colorCloseH = 5

	// bottomHalfBias favors blobs in the lower half of the frame, where
	// plates are mounted.
	bottomHalfBias = 1.5
)

// colorMask is one plate background color to look for.
type colorMask struct {
	name string
	keep imaging.HSVPredicate
}

// plateColors are tried in order; the first color yielding a blob wins.
var plateColors = []colorMask{
	{name: "yellow", keep: imaging.YellowPlate},
	{name: "white", keep: imaging.WhitePlate},
}

// ColorDetector finds a plate-shaped patch of plate background color.
type ColorDetector struct {
	Geometry Geometry
	PadX     float64
	PadY     float64

	log *zap.Logger
}

// NewColorDetector returns a ColorDetector with 6% / 4% padding.
func NewColorDetector(g Geometry, log *zap.Logger) *ColorDetector {
	return &ColorDetector{Geometry: g, PadX: 0.06, PadY: 0.04, log: orDefault(log)}
}

// Name implements Detector.
func (d *ColorDetector) Name() plate.Source { return plate.SourceColor }

// Detect returns at most one candidate, labeled with the matching color.
func (d *ColorDetector) Detect(ctx context.Context, src *imaging.Source) ([]plate.Candidate, error) {
	small, scale := imaging.Downscale(src.Image, analysisMaxSide)
	w, h := small.Bounds().Dx(), small.Bounds().Dy()

	for _, c := range plateColors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		mask := imaging.HSVMask(small, c.keep).Close(colorCloseW, colorCloseH)
		box, ok := bestBlob(imaging.Components(mask, minBlobPixels), w, h, d.Geometry, bottomHalfBias)
		if !ok {
			continue
		}

		box = toSource(box, scale, d.PadX, d.PadY, src.Width, src.Height)
		if box.Empty() {
			continue
		}
		d.log.Debug("color stage matched", zap.String("color", c.name))
		return []plate.Candidate{{Box: box, Source: plate.SourceColor, Label: c.name}}, nil
	}
	return nil, nil
}
