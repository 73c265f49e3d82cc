package imaging

import "image"

// Mask is a binary image. Pix is row-major with stride W.
type Mask struct {
	W, H int
	Pix  []bool
}

// NewMask returns an empty w x h mask.
func NewMask(w, h int) *Mask {
	return &Mask{W: w, H: h, Pix: make([]bool, w*h)}
}

// MaskFromGray marks every non-zero pixel of g.
func MaskFromGray(g *image.Gray) *Mask {
	b := g.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < m.H; y++ {
		off := g.PixOffset(b.Min.X, y+b.Min.Y)
		for x := 0; x < m.W; x++ {
			m.Pix[y*m.W+x] = g.Pix[off+x] != 0
		}
	}
	return m
}

// At reports whether (x, y) is set. Out-of-range points are unset.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.W || y >= m.H {
		return false
	}
	return m.Pix[y*m.W+x]
}

// Set marks (x, y).
func (m *Mask) Set(x, y int) {
	if x >= 0 && y >= 0 && x < m.W && y < m.H {
		m.Pix[y*m.W+x] = true
	}
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Close applies a morphological closing (dilation then erosion) with a kw x kh
// rectangular structuring element.
//
// A wide, short element bridges the gaps between the characters of a plate so
// that the whole plate becomes one connected blob.
func (m *Mask) Close(kw, kh int) *Mask {
	return m.Dilate(kw, kh).Erode(kw, kh)
}

// Dilate sets every pixel whose kw x kh neighborhood contains a set pixel.
// Pixels outside the mask count as unset.
func (m *Mask) Dilate(kw, kh int) *Mask {
	return m.rowPass(kw, false).colPass(kh, false)
}

// Erode keeps only pixels whose whole kw x kh neighborhood is set. Pixels
// outside the mask count as set, so blobs touching the border are not eaten.
func (m *Mask) Erode(kw, kh int) *Mask {
	return m.rowPass(kw, true).colPass(kh, true)
}

// rowPass runs a 1-D horizontal max (dilate) or min (erode) filter. The
// rectangular element is separable, so two 1-D passes are equivalent to the
// full 2-D one.
func (m *Mask) rowPass(k int, erode bool) *Mask {
	out := NewMask(m.W, m.H)
	before, after := (k-1)/2, k/2
	for y := 0; y < m.H; y++ {
		row := m.Pix[y*m.W : (y+1)*m.W]
		for x := 0; x < m.W; x++ {
			out.Pix[y*m.W+x] = window(row, x-before, x+after, erode)
		}
	}
	return out
}

func (m *Mask) colPass(k int, erode bool) *Mask {
	out := NewMask(m.W, m.H)
	before, after := (k-1)/2, k/2
	col := make([]bool, m.H)
	for x := 0; x < m.W; x++ {
		for y := 0; y < m.H; y++ {
			col[y] = m.Pix[y*m.W+x]
		}
		for y := 0; y < m.H; y++ {
			out.Pix[y*m.W+x] = window(col, y-before, y+after, erode)
		}
	}
	return out
}

// window evaluates any (dilate) or all (erode) over line[lo..hi], treating
// out-of-range positions as the neutral element of the operation.
func window(line []bool, lo, hi int, erode bool) bool {
	lo = max(lo, 0)
	hi = min(hi, len(line)-1)
	for i := lo; i <= hi; i++ {
		if line[i] != erode {
			return !erode
		}
	}
	return erode
}
