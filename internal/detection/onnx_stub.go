//go:build !gocv

package detection

import (
	"context"
	"image"
)

// ONNXModel needs the gocv build tag and an OpenCV installation.
type ONNXModel struct{}

// NewONNXModel always fails with ErrUnavailable.
func NewONNXModel(ModelOptions) (*ONNXModel, error) {
	return nil, ErrUnavailable
}

// Detect always fails with ErrUnavailable.
func (*ONNXModel) Detect(context.Context, image.Image) ([]RawBox, error) {
	return nil, ErrUnavailable
}

// Close is a no-op.
func (*ONNXModel) Close() error { return nil }
