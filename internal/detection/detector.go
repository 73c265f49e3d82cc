package detection

import (
	"context"

	"go.uber.org/zap"

	"github.com/ironsheep/plate-redact/internal/imaging"
	"github.com/ironsheep/plate-redact/internal/logger"
	"github.com/ironsheep/plate-redact/internal/plate"
)

// ErrUnavailable is returned by stages whose backend is not available.
var ErrUnavailable = plate.ErrUnavailable

// analysisMaxSide bounds the image the classical stages analyze.
const analysisMaxSide = 1280

// Detector is one detection stage.
type Detector interface {
	// Name identifies the stage in reports and logs.
	Name() plate.Source

	// Detect returns candidate boxes clamped to src's bounds. An empty result
	// with a nil error means the stage ran cleanly and found nothing.
	Detect(ctx context.Context, src *imaging.Source) ([]plate.Candidate, error)
}

func orDefault(log *zap.Logger) *zap.Logger {
	if log == nil {
		return logger.Log()
	}
	return log
}
