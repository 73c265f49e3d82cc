package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ErrEmptyImage is returned when the input decodes to a zero-sized raster.
var ErrEmptyImage = errors.New("image has no pixels")

// Source is a decoded input image.
//
// A Source is created once per pipeline invocation and treated as read-only
// afterwards. Stages that need to modify pixels work on a clone.
type Source struct {
	// Image holds the upright pixels. EXIF rotation has already been applied.
	Image *image.NRGBA

	// Width and Height are the dimensions of Image in pixels.
	Width  int
	Height int

	// Format is the format detected from the bytes: "jpeg", "png", "gif",
	// "webp", "bmp" or "tiff".
	Format string

	// Ext is the extension the caller declared, lower-cased with a leading dot.
	Ext string

	// Orientation is the EXIF orientation tag (1-8) found in the input, or 1
	// when absent.
	Orientation int
}

// Bounds returns the image rectangle, always anchored at (0,0).
func (s *Source) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.Width, s.Height)
}

// Decode parses image bytes into a Source.
//
// Parameters:
//   - data: Raw image bytes. PNG, JPEG, GIF, WebP, BMP and TIFF are supported.
//   - ext: The file extension the caller declared (".jpg", "png", ...). It is
//     recorded for encoding the output and does not influence decoding.
//
// Returns:
//   - *Source: The decoded, upright image.
//   - error: Non-nil if the bytes are not a supported image or decode to an
//     empty raster.
//
// # Orientation
//
// The EXIF orientation tag is honored through imaging.AutoOrientation, so a
// photo taken in portrait mode is returned as portrait even when its raw
// pixels are stored sideways. The original tag value is kept in
// Source.Orientation for diagnostics.
func Decode(data []byte, ext string) (*Source, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("failed to decode image: %w", ErrEmptyImage)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("failed to decode image: %w", ErrEmptyImage)
	}

	return &Source{
		Image:       nrgba,
		Width:       b.Dx(),
		Height:      b.Dy(),
		Format:      format,
		Ext:         NormalizeExt(ext),
		Orientation: ReadOrientation(data),
	}, nil
}

// NormalizeExt lower-cases an extension and ensures a leading dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// OutputFormat picks the encoding used for a redacted image.
//
// The declared extension wins when it names an encodable format. Otherwise
// the detected input format is used, and JPEG is the final fallback (WebP
// input is re-encoded as JPEG because no pure-Go WebP encoder is available).
func OutputFormat(ext, detected string) imaging.Format {
	if ext != "" {
		if f, err := imaging.FormatFromExtension(ext); err == nil {
			return f
		}
	}
	if detected != "" {
		if f, err := imaging.FormatFromExtension(detected); err == nil {
			return f
		}
	}
	return imaging.JPEG
}

// Encode renders img in the given format.
//
// JPEG output uses quality 92; the other formats use their library defaults.
// The returned string is the lower-case format name, e.g. "jpeg".
func Encode(img image.Image, format imaging.Format) ([]byte, string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(92)); err != nil {
		return nil, "", fmt.Errorf("failed to encode %s image: %w", format, err)
	}
	return buf.Bytes(), strings.ToLower(format.String()), nil
}

// Downscale returns a copy of img whose longest side is at most maxSide, and
// the factor by which it was scaled (1 when no resize was needed).
//
// Multiply a box found on the copy by 1/scale to map it back.
func Downscale(img image.Image, maxSide int) (*image.NRGBA, float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := max(w, h)
	if maxSide <= 0 || longest <= maxSide {
		return imaging.Clone(img), 1
	}

	scale := float64(maxSide) / float64(longest)
	nw := max(1, int(float64(w)*scale+0.5))
	nh := max(1, int(float64(h)*scale+0.5))
	return imaging.Resize(img, nw, nh, imaging.Lanczos), float64(nw) / float64(w)
}

// ScaleBy resizes img by factor f with Lanczos resampling.
func ScaleBy(img image.Image, f float64) *image.NRGBA {
	b := img.Bounds()
	nw := max(1, int(float64(b.Dx())*f+0.5))
	nh := max(1, int(float64(b.Dy())*f+0.5))
	return imaging.Resize(img, nw, nh, imaging.Lanczos)
}

// Contrast returns a grayscale copy of img with contrast boosted by pct
// percent, the preprocessing used for the second OCR pass.
func Contrast(img image.Image, pct float64) *image.NRGBA {
	return imaging.AdjustContrast(imaging.Grayscale(img), pct)
}
