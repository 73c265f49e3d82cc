// Package imaging provides the raster operations used by the plate detectors
// and the redaction renderer.
//
// This package decodes and encodes image bytes, normalizes EXIF orientation,
// and implements the low-level analysis steps the classical detectors are
// built from: horizontal gradients, Otsu thresholding, rectangular
// morphology, HSV masks and connected components. It also applies the
// Gaussian blur used to obscure a region.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// Images returned by Decode are already rotated upright according to their
// EXIF orientation tag, so every detector sees pixels "as displayed".
//
// # Thread Safety
//
// All functions are stateless and may be called concurrently on different
// images. BlurRegion mutates its destination; callers must not share that
// image between goroutines while it runs.
//
// # Libraries
//
// Decoding, encoding, resizing and blurring use github.com/disintegration/imaging.
// Grayscale conversion, convolution and thresholding use
// github.com/anthonynsimon/bild. HSV conversion uses
// github.com/lucasb-eyer/go-colorful.
package imaging
