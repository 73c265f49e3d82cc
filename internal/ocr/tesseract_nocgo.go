//go:build !cgo

package ocr

import (
	"context"
	"image"

	"github.com/ironsheep/plate-redact/internal/plate"
)

// Tesseract is unavailable in binaries built without cgo.
type Tesseract struct{}

// NewTesseract always fails with plate.ErrUnavailable.
func NewTesseract(Options) (*Tesseract, error) {
	return nil, plate.ErrUnavailable
}

// Recognize always fails with plate.ErrUnavailable.
func (*Tesseract) Recognize(context.Context, image.Image) ([]plate.TextDetection, error) {
	return nil, plate.ErrUnavailable
}

// Close is a no-op.
func (*Tesseract) Close() error { return nil }
