package imaging

import (
	"image"
	"sort"

	"github.com/ironsheep/plate-redact/internal/geometry"
)

// Component is one 8-connected blob of a mask.
type Component struct {
	// Box is the bounding box of the blob, exclusive at X2/Y2.
	Box geometry.Box

	// Pixels is the number of set pixels in the blob.
	Pixels int
}

// Components labels the 8-connected blobs of m and returns their bounding
// boxes, largest box area first. Blobs smaller than minPixels are dropped.
//
// The bounding box of a blob equals the bounding box of its external contour,
// which is all the plate detectors need.
func Components(m *Mask, minPixels int) []Component {
	visited := make([]bool, len(m.Pix))
	out := make([]Component, 0)

	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			i := y*m.W + x
			if !m.Pix[i] || visited[i] {
				continue
			}
			c := floodFill(m, visited, x, y)
			if c.Pixels >= minPixels {
				out = append(out, c)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Box.Area() > out[j].Box.Area()
	})
	return out
}

// floodFill performs iterative flood-fill from a starting point.
//
// Uses a stack-based approach (not recursive) to avoid stack overflow
// on large blobs. Uses 8-connectivity (includes diagonal neighbors).
func floodFill(m *Mask, visited []bool, startX, startY int) Component {
	stack := []image.Point{{X: startX, Y: startY}}
	minX, minY, maxX, maxY := startX, startY, startX, startY
	n := 0

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= m.W || p.Y < 0 || p.Y >= m.H {
			continue
		}
		i := p.Y*m.W + p.X
		if visited[i] || !m.Pix[i] {
			continue
		}
		visited[i] = true
		n++
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, image.Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}

	return Component{
		Box:    geometry.Box{X1: minX, Y1: minY, X2: maxX + 1, Y2: maxY + 1},
		Pixels: n,
	}
}
