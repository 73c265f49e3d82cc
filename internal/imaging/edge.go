package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/convolution"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
)

// sobelX is the horizontal Sobel operator. It responds to vertical strokes,
// which is what the characters on a plate are made of.
var sobelX = []float64{
	-1, 0, 1,
	-2, 0, 2,
	-1, 0, 1,
}

func kernel3(m []float64, sign float64) *convolution.Kernel {
	k := convolution.NewKernel(3, 3)
	for i, v := range m {
		k.Matrix[i] = v * sign
	}
	return k
}

// HorizontalGradient returns |dI/dx| of the luminance of img as an 8-bit
// grayscale image.
//
// # Algorithm
//
//  1. Grayscale conversion with bild's effect.Grayscale
//  2. Convolution with the Sobel-x kernel and with its negation
//  3. Per-pixel maximum of both responses
//
// Convolution output is clamped to [0,255], so the negated pass recovers the
// falling edges that the first pass clamps to zero.
func HorizontalGradient(img image.Image) *image.Gray {
	gray := effect.Grayscale(img)
	rising := convolution.Convolve(gray, kernel3(sobelX, 1), &convolution.Options{})
	falling := convolution.Convolve(gray, kernel3(sobelX, -1), &convolution.Options{})

	b := gray.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r := rising.Pix[rising.PixOffset(x+b.Min.X, y+b.Min.Y)]
			f := falling.Pix[falling.PixOffset(x+b.Min.X, y+b.Min.Y)]
			out.Pix[out.PixOffset(x, y)] = max(r, f)
		}
	}
	return out
}

// Otsu computes the threshold that maximizes between-class variance of the
// histogram of g. Pixels strictly greater than the returned value belong to
// the foreground.
//
// ok is false when the histogram has a single occupied bin (a uniform image),
// in which case no meaningful split exists.
func Otsu(g *image.Gray) (t uint8, ok bool) {
	var hist [256]int
	b := g.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := g.Pix[g.PixOffset(b.Min.X, y) : g.PixOffset(b.Min.X, y)+b.Dx()]
		for _, v := range row {
			hist[v]++
		}
	}

	total := b.Dx() * b.Dy()
	occupied := 0
	var sum float64
	for i, c := range hist {
		if c > 0 {
			occupied++
		}
		sum += float64(i * c)
	}
	if total == 0 || occupied < 2 {
		return 0, false
	}

	var sumB, best float64
	wB := 0
	for i := 0; i < 256; i++ {
		wB += hist[i]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(i * hist[i])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			t = uint8(i)
		}
	}
	return t, true
}

// Binarize thresholds g with Otsu's method and returns the foreground mask.
// A uniform image yields an empty mask.
func Binarize(g *image.Gray) *Mask {
	t, ok := Otsu(g)
	b := g.Bounds()
	if !ok || t == 255 {
		return NewMask(b.Dx(), b.Dy())
	}
	// segment.Threshold keeps pixels >= level; foreground is > t.
	return MaskFromGray(segment.Threshold(g, t+1))
}
