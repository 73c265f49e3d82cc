// Package geometry provides the axis-aligned box arithmetic shared by every
// detector stage and the redaction renderer.
//
// All coordinates are 0-based pixels with the origin at the top-left corner.
// A Box is inclusive at (X1, Y1) and exclusive at (X2, Y2), matching
// image.Rectangle, so Width = X2 - X1 and a box clamped to an image of size
// w x h satisfies 0 <= X1 <= X2 <= w and 0 <= Y1 <= Y2 <= h.
package geometry

import (
	"image"
	"math"
	"sort"
)

// Box is an axis-aligned rectangle in pixel coordinates.
type Box struct {
	X1 int `json:"x1"` // Left edge (inclusive)
	Y1 int `json:"y1"` // Top edge (inclusive)
	X2 int `json:"x2"` // Right edge (exclusive)
	Y2 int `json:"y2"` // Bottom edge (exclusive)
}

// FromRect converts an image.Rectangle into a Box.
func FromRect(r image.Rectangle) Box {
	r = r.Canon()
	return Box{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// FromQuad returns the axis-aligned bounding box of a quadrilateral.
func FromQuad(pts [4]image.Point) Box {
	b := Box{X1: pts[0].X, Y1: pts[0].Y, X2: pts[0].X, Y2: pts[0].Y}
	for _, p := range pts[1:] {
		b.X1 = min(b.X1, p.X)
		b.Y1 = min(b.Y1, p.Y)
		b.X2 = max(b.X2, p.X)
		b.Y2 = max(b.Y2, p.Y)
	}
	return b
}

// FromCenter builds a box from a center point and a width/height, the shape
// hosted detection services report.
func FromCenter(cx, cy, w, h float64) Box {
	return Box{
		X1: int(math.Round(cx - w/2)),
		Y1: int(math.Round(cy - h/2)),
		X2: int(math.Round(cx + w/2)),
		Y2: int(math.Round(cy + h/2)),
	}
}

// FromFloat rounds floating point corners to the nearest pixel.
func FromFloat(x1, y1, x2, y2 float64) Box {
	return Box{
		X1: int(math.Round(x1)),
		Y1: int(math.Round(y1)),
		X2: int(math.Round(x2)),
		Y2: int(math.Round(y2)),
	}
}

// Rect converts the box to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Width returns the horizontal extent of the box.
func (b Box) Width() int { return b.X2 - b.X1 }

// Height returns the vertical extent of the box.
func (b Box) Height() int { return b.Y2 - b.Y1 }

// Area returns Width * Height, or 0 for an empty box.
func (b Box) Area() int {
	if b.Empty() {
		return 0
	}
	return b.Width() * b.Height()
}

// Empty reports whether the box has no interior.
func (b Box) Empty() bool {
	return b.X2 <= b.X1 || b.Y2 <= b.Y1
}

// AspectRatio returns width / height, or 0 when the height is not positive.
func (b Box) AspectRatio() float64 {
	if b.Height() <= 0 {
		return 0
	}
	return float64(b.Width()) / float64(b.Height())
}

// Center returns the center point of the box.
func (b Box) Center() (float64, float64) {
	return float64(b.X1+b.X2) / 2, float64(b.Y1+b.Y2) / 2
}

// Normalize swaps corners so that X1 <= X2 and Y1 <= Y2.
func (b Box) Normalize() Box {
	if b.X1 > b.X2 {
		b.X1, b.X2 = b.X2, b.X1
	}
	if b.Y1 > b.Y2 {
		b.Y1, b.Y2 = b.Y2, b.Y1
	}
	return b
}

// Clamp constrains the box to an image of the given size. The result always
// satisfies 0 <= X1 <= X2 <= width and 0 <= Y1 <= Y2 <= height.
func (b Box) Clamp(width, height int) Box {
	b = b.Normalize()
	width = max(width, 0)
	height = max(height, 0)
	b.X1 = clampInt(b.X1, 0, width)
	b.X2 = clampInt(b.X2, 0, width)
	b.Y1 = clampInt(b.Y1, 0, height)
	b.Y2 = clampInt(b.Y2, 0, height)
	return b
}

// Pad grows the box by px pixels left and right and py pixels top and bottom.
func (b Box) Pad(px, py int) Box {
	return Box{X1: b.X1 - px, Y1: b.Y1 - py, X2: b.X2 + px, Y2: b.Y2 + py}
}

// Expand grows the box on every side by ratio times its own size.
func (b Box) Expand(ratio float64) Box {
	if ratio <= 0 {
		return b
	}
	return b.Pad(
		int(math.Round(float64(b.Width())*ratio)),
		int(math.Round(float64(b.Height())*ratio)),
	)
}

// Scale multiplies every coordinate by f. Use 1/s to map a box detected on an
// image resized by s back to the original coordinates.
func (b Box) Scale(f float64) Box {
	return FromFloat(float64(b.X1)*f, float64(b.Y1)*f, float64(b.X2)*f, float64(b.Y2)*f)
}

// Intersect returns the overlap of two boxes, which may be empty.
func (b Box) Intersect(o Box) Box {
	r := Box{
		X1: max(b.X1, o.X1),
		Y1: max(b.Y1, o.Y1),
		X2: min(b.X2, o.X2),
		Y2: min(b.Y2, o.Y2),
	}
	if r.Empty() {
		return Box{}
	}
	return r
}

// IoU returns the intersection-over-union of two boxes in [0, 1].
func IoU(a, b Box) float64 {
	inter := a.Intersect(b).Area()
	if inter == 0 {
		return 0
	}
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// NMS performs greedy non-maximum suppression and returns the indices of the
// kept boxes, highest score first.
//
// Boxes are visited by descending score; a box is dropped when its IoU with
// any already kept box is >= iouThreshold. Every pair of kept boxes therefore
// has IoU < iouThreshold.
func NMS(boxes []Box, scores []float64, iouThreshold float64) []int {
	order := make([]int, len(boxes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scoreAt(scores, order[i]) > scoreAt(scores, order[j])
	})

	kept := make([]int, 0, len(boxes))
	for _, idx := range order {
		suppressed := false
		for _, k := range kept {
			if IoU(boxes[idx], boxes[k]) >= iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, idx)
		}
	}
	return kept
}

func scoreAt(scores []float64, i int) float64 {
	if i < len(scores) {
		return scores[i]
	}
	return 0
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
