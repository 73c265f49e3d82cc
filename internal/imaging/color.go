package imaging

import (
	"image"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// HSV is a color in hue/saturation/value space.
type HSV struct {
	H float64 // Hue: 0-360 degrees
	S float64 // Saturation: 0-1
	V float64 // Value: 0-1
}

// HSVPredicate selects pixels for a color mask.
type HSVPredicate func(HSV) bool

// YellowPlate matches the saturated yellow of rear plates in several regions.
func YellowPlate(c HSV) bool {
	return c.H >= 20 && c.H <= 60 && c.S > 0.35 && c.V > 0.35
}

// WhitePlate matches bright, low-saturation pixels.
func WhitePlate(c HSV) bool {
	return c.S < 0.2 && c.V > 0.7
}

// ToHSV converts the pixel at (x, y) of img.
func ToHSV(img *image.NRGBA, x, y int) HSV {
	i := img.PixOffset(x, y)
	c := colorful.Color{
		R: float64(img.Pix[i]) / 255,
		G: float64(img.Pix[i+1]) / 255,
		B: float64(img.Pix[i+2]) / 255,
	}
	h, s, v := c.Hsv()
	return HSV{H: h, S: s, V: v}
}

// HSVMask marks every pixel of img whose HSV value satisfies keep.
func HSVMask(img *image.NRGBA, keep HSVPredicate) *Mask {
	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			if keep(ToHSV(img, x+b.Min.X, y+b.Min.Y)) {
				m.Pix[y*m.W+x] = true
			}
		}
	}
	return m
}
