//go:build cgo

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/plate-redact/internal/plate"
)

// Tesseract recognizes words with a long-lived gosseract client.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
	opts   Options
}

// NewTesseract creates the client and applies the language, page segmentation
// and whitelist settings once.
func NewTesseract(opts Options) (*Tesseract, error) {
	opts = opts.withDefaults()

	client := gosseract.NewClient()
	if opts.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(opts.TessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if err := client.SetLanguage(opts.Language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	// Plates are isolated words scattered over a photo, not paragraphs.
	if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if opts.Whitelist != "" {
		if err := client.SetWhitelist(opts.Whitelist); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set whitelist: %w", err)
		}
	}

	return &Tesseract{client: client, opts: opts}, nil
}

// Recognize runs word-level OCR on img.
//
// Tesseract cannot be interrupted once started; ctx is checked before the
// call only.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) ([]plate.TextDetection, error) {
	if t == nil || t.client == nil {
		return nil, plate.ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image for OCR: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	out := make([]plate.TextDetection, 0, len(boxes))
	for _, b := range boxes {
		if d, ok := wordDetection(b.Box, b.Word, b.Confidence); ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// Close releases the native client.
func (t *Tesseract) Close() error {
	if t == nil || t.client == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	err := t.client.Close()
	t.client = nil
	return err
}
