package detection

import (
	"sort"

	"github.com/ironsheep/plate-redact/internal/geometry"
	"github.com/ironsheep/plate-redact/internal/imaging"
)

// Geometry bounds the shape of a plate-like blob.
type Geometry struct {
	// MinAR and MaxAR bound width / height.
	MinAR float64 `yaml:"min_ar"`
	MaxAR float64 `yaml:"max_ar"`

	// MinAreaFrac and MaxAreaFrac bound the blob box area as a fraction of
	// the image area.
	MinAreaFrac float64 `yaml:"min_area_frac"`
	MaxAreaFrac float64 `yaml:"max_area_frac"`

	// CenterBand is the fraction of the image height, centered vertically,
	// that must contain the blob center. 0.7 keeps the middle 70%.
	CenterBand float64 `yaml:"center_band"`
}

// StrictGeometry is the default plate shape window.
func StrictGeometry() Geometry {
	return Geometry{
		MinAR:       1.8,
		MaxAR:       8.0,
		MinAreaFrac: 0.0005,
		MaxAreaFrac: 0.12,
		CenterBand:  0.70,
	}
}

// RelaxedGeometry widens every bound for the second batch attempt.
func RelaxedGeometry() Geometry {
	return Geometry{
		MinAR:       1.5,
		MaxAR:       10.0,
		MinAreaFrac: 0.0002,
		MaxAreaFrac: 0.20,
		CenterBand:  0.90,
	}
}

// Accepts reports whether box, inside an image of size w x h, has a plate
// shape and position.
func (g Geometry) Accepts(box geometry.Box, w, h int) bool {
	if box.Empty() || w <= 0 || h <= 0 {
		return false
	}
	ar := box.AspectRatio()
	if ar < g.MinAR || ar > g.MaxAR {
		return false
	}
	frac := float64(box.Area()) / float64(w*h)
	if frac < g.MinAreaFrac || frac > g.MaxAreaFrac {
		return false
	}
	_, cy := box.Center()
	margin := (1 - g.CenterBand) / 2 * float64(h)
	return cy >= margin && cy <= float64(h)-margin
}

// blob is a component that survived the geometry filter.
type blob struct {
	box   geometry.Box
	score float64
}

// bestBlob filters comps with g and returns the highest ranked survivor.
//
// Rank is the box area, multiplied by bottomBias when the blob center lies in
// the lower half of the frame. A bias of 1 ranks purely by area.
func bestBlob(comps []imaging.Component, w, h int, g Geometry, bottomBias float64) (geometry.Box, bool) {
	kept := make([]blob, 0, len(comps))
	for _, c := range comps {
		if !g.Accepts(c.Box, w, h) {
			continue
		}
		score := float64(c.Box.Area())
		if _, cy := c.Box.Center(); cy >= float64(h)/2 && bottomBias > 0 {
			score *= bottomBias
		}
		kept = append(kept, blob{box: c.Box, score: score})
	}
	if len(kept) == 0 {
		return geometry.Box{}, false
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].score > kept[j].score
	})
	return kept[0].box, true
}

// toSource maps a box found on an analysis copy scaled by scale back to source
// pixels, pads it by fractions of its own size, and clamps it.
func toSource(box geometry.Box, scale, padX, padY float64, w, h int) geometry.Box {
	if scale > 0 && scale != 1 {
		box = box.Scale(1 / scale)
	}
	px := int(float64(box.Width())*padX + 0.5)
	py := int(float64(box.Height())*padY + 0.5)
	return box.Pad(px, py).Clamp(w, h)
}
