package ocr

import (
	"context"
	"image"
	"strings"

	"github.com/ironsheep/plate-redact/internal/geometry"
	"github.com/ironsheep/plate-redact/internal/plate"
)

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "eng"

// PlateWhitelist restricts recognition to the characters plates use.
const PlateWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-"

// Recognizer extracts words from an image.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) ([]plate.TextDetection, error)
}

// RecognizerFunc adapts a function to the Recognizer interface.
type RecognizerFunc func(ctx context.Context, img image.Image) ([]plate.TextDetection, error)

// Recognize calls f.
func (f RecognizerFunc) Recognize(ctx context.Context, img image.Image) ([]plate.TextDetection, error) {
	return f(ctx, img)
}

// Options configures the Tesseract recognizer.
type Options struct {
	// Language is a Tesseract language code such as "eng" or "eng+rus".
	Language string `yaml:"language"`

	// Whitelist limits the recognized characters. Empty disables the limit.
	Whitelist string `yaml:"whitelist"`

	// TessdataPrefix overrides the directory holding *.traineddata files.
	TessdataPrefix string `yaml:"tessdata_prefix"`
}

func (o Options) withDefaults() Options {
	if o.Language == "" {
		o.Language = DefaultLanguage
	}
	return o
}

// wordDetection converts one recognized word box into a TextDetection.
// Confidence arrives on Tesseract's 0-100 scale. Blank words yield ok=false.
func wordDetection(r image.Rectangle, word string, confidence float64) (plate.TextDetection, bool) {
	word = strings.TrimSpace(word)
	if word == "" || r.Empty() {
		return plate.TextDetection{}, false
	}
	conf := confidence / 100
	conf = min(max(conf, 0), 1)
	return plate.TextDetection{
		Quad:       plate.QuadOf(geometry.FromRect(r)),
		Text:       word,
		Confidence: conf,
	}, true
}
