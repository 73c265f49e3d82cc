package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

// stripeImage draws vertical black bars on white inside rect, the way
// characters on a plate look to a horizontal gradient.
func stripeImage(width, height int, rect image.Rectangle) *image.NRGBA {
	img := solidImage(width, height, color.White)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if (x-rect.Min.X)/4%2 == 0 {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

func TestHorizontalGradient(t *testing.T) {
	img := solidImage(40, 20, color.White)
	for y := 0; y < 20; y++ {
		for x := 20; x < 40; x++ {
			img.Set(x, y, color.Black)
		}
	}

	g := HorizontalGradient(img)
	assert.Equal(t, 40, g.Bounds().Dx())
	assert.Equal(t, uint8(0), g.GrayAt(5, 10).Y, "flat region has no gradient")
	assert.Equal(t, uint8(0), g.GrayAt(35, 10).Y, "flat region has no gradient")
	assert.Greater(t, g.GrayAt(20, 10).Y, uint8(200), "falling edge is detected")

	// Mirror image: rising edge.
	inv := solidImage(40, 20, color.Black)
	for y := 0; y < 20; y++ {
		for x := 20; x < 40; x++ {
			inv.Set(x, y, color.White)
		}
	}
	assert.Greater(t, HorizontalGradient(inv).GrayAt(20, 10).Y, uint8(200), "rising edge is detected")
}

func TestHorizontalGradient_IgnoresHorizontalLines(t *testing.T) {
	img := solidImage(40, 20, color.White)
	for x := 0; x < 40; x++ {
		img.Set(x, 10, color.Black)
	}
	g := HorizontalGradient(img)
	assert.Equal(t, uint8(0), g.GrayAt(20, 10).Y)
}

func TestOtsu(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := range g.Pix {
		if i < 50 {
			g.Pix[i] = 30
		} else {
			g.Pix[i] = 220
		}
	}
	th, ok := Otsu(g)
	assert.True(t, ok)
	assert.GreaterOrEqual(t, th, uint8(30))
	assert.Less(t, th, uint8(220))
}

func TestOtsu_Uniform(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 10, 10))
	_, ok := Otsu(g)
	assert.False(t, ok)
	assert.Equal(t, 0, Binarize(g).Count())
}

func TestBinarize(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := 0; i < 20; i++ {
		g.Pix[i] = 255
	}
	m := Binarize(g)
	assert.Equal(t, 20, m.Count())
	assert.True(t, m.At(0, 0))
	assert.False(t, m.At(5, 5))
}
