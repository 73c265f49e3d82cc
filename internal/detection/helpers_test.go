package detection

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/ironsheep/plate-redact/internal/imaging"
)

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func fill(img *image.NRGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

func sourceOf(img *image.NRGBA) *imaging.Source {
	b := img.Bounds()
	return &imaging.Source{Image: img, Width: b.Dx(), Height: b.Dy(), Format: "png", Ext: ".png", Orientation: 1}
}

// plateImage draws a white plate with black character bars on a gray frame.
func plateImage(w, h int, plateRect image.Rectangle) *image.NRGBA {
	img := solid(w, h, color.Gray{Y: 128})
	fill(img, plateRect, color.White)
	for x := plateRect.Min.X + 10; x+6 <= plateRect.Max.X-10; x += 12 {
		fill(img, image.Rect(x, plateRect.Min.Y+8, x+6, plateRect.Max.Y-8), color.Black)
	}
	return img
}
