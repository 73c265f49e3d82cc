//go:build gocv

package detection

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// ONNXModel runs a YOLO-style ONNX plate detector with the OpenCV DNN module.
type ONNXModel struct {
	mu   sync.Mutex
	net  gocv.Net
	opts ModelOptions
}

// NewONNXModel loads the network from opts.Path.
func NewONNXModel(opts ModelOptions) (*ONNXModel, error) {
	opts = opts.withDefaults()
	if opts.Path == "" {
		return nil, fmt.Errorf("no model path configured: %w", ErrUnavailable)
	}

	net := gocv.ReadNetFromONNX(opts.Path)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model %s", opts.Path)
	}
	return &ONNXModel{net: net, opts: opts}, nil
}

// Detect implements Model. The image is stretched to the square network
// input; boxes are scaled back to img.
func (m *ONNXModel) Detect(ctx context.Context, img image.Image) ([]RawBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	size := m.opts.InputSize
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	m.mu.Lock()
	m.net.SetInput(blob, "")
	out := m.net.Forward("")
	m.mu.Unlock()
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read model output: %w", err)
	}

	b := img.Bounds()
	sx := float64(b.Dx()) / float64(size)
	sy := float64(b.Dy()) / float64(size)
	return decodeYOLO(data, out.Size(), m.opts, sx, sy)
}

// Close releases the network.
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.net.Close()
}
