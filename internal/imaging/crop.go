package imaging

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// BlurRegion applies a Gaussian blur of the given sigma to the rectangle r of
// dst, in place, repeating it passes times.
//
// The region is cropped, blurred on its own and drawn back, so pixels outside
// r are never modified. Empty or out-of-bounds rectangles are ignored.
func BlurRegion(dst *image.NRGBA, r image.Rectangle, sigma float64, passes int) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() || sigma <= 0 {
		return
	}

	var sub image.Image = imaging.Crop(dst, r)
	for i := 0; i < max(passes, 1); i++ {
		sub = imaging.Blur(sub, sigma)
	}
	draw.Draw(dst, r, sub, image.Point{}, draw.Src)
}

// Clone returns a mutable copy of img.
func Clone(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}
