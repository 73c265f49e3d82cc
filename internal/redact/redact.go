// Package redact blurs plate candidates into an image.
package redact

import (
	"image"
	"math"

	"github.com/ironsheep/plate-redact/internal/geometry"
	"github.com/ironsheep/plate-redact/internal/imaging"
	"github.com/ironsheep/plate-redact/internal/plate"
)

// blurPasses is how many times each region is blurred.
const blurPasses = 2

// Options controls how candidates become blurred regions.
type Options struct {
	// ExpandRatio grows each box on every side by this fraction of its size.
	ExpandRatio float64

	// KernelFactor, KernelMin and KernelMax size the blur kernel from the
	// shorter side of the region.
	KernelFactor float64
	KernelMin    int
	KernelMax    int

	// MinSide is the smallest region width or height that is blurred.
	MinSide int
}

// LegacyOptions is the multi-stage ensemble profile.
func LegacyOptions() Options {
	return Options{ExpandRatio: 0.12, KernelFactor: 0.6, KernelMin: 7, KernelMax: 151, MinSide: 6}
}

// HostedOptions is the hosted-only profile. Hosted boxes are used as
// returned.
func HostedOptions() Options {
	return Options{ExpandRatio: 0, KernelFactor: 0.25, KernelMin: 7, KernelMax: 99, MinSide: 6}
}

// KernelSize returns the odd blur kernel side for a region of w x h pixels:
// round(min(w, h) * factor) clamped to [KernelMin, KernelMax].
func (o Options) KernelSize(w, h int) int {
	kmin, kmax := o.KernelMin, o.KernelMax
	if kmin < 1 {
		kmin = 1
	}
	if kmin%2 == 0 {
		kmin++
	}
	if kmax < kmin {
		kmax = kmin
	}

	k := int(math.Round(float64(min(w, h)) * o.KernelFactor))
	k = max(kmin, min(k, kmax))
	if k%2 == 0 {
		if k+1 <= kmax {
			k++
		} else {
			k--
		}
	}
	return k
}

// Sigma converts an odd kernel size into a Gaussian sigma with the relation
// OpenCV uses when only a kernel size is given.
func Sigma(k int) float64 {
	return 0.3*((float64(k)-1)*0.5-1) + 0.8
}

// Region computes the region that would be blurred for c in an image of
// w x h pixels. ok is false when the region is smaller than MinSide.
func (o Options) Region(c plate.Candidate, w, h int) (geometry.Box, bool) {
	box := c.Box.Pad(c.PadX, c.PadY).Expand(o.ExpandRatio).Clamp(w, h)
	if box.Width() < o.MinSide || box.Height() < o.MinSide {
		return box, false
	}
	return box, true
}

// Apply blurs every usable candidate into img in place and returns how many
// regions were blurred.
func Apply(img *image.NRGBA, cands []plate.Candidate, opts Options) int {
	b := img.Bounds()
	applied := 0
	for _, c := range cands {
		box, ok := opts.Region(c, b.Dx(), b.Dy())
		if !ok {
			continue
		}
		blurBox(img, box, opts)
		applied++
	}
	return applied
}

// Failsafe blurs FailsafeBox unconditionally and returns the candidate it
// used. MinSide does not apply.
func Failsafe(img *image.NRGBA, opts Options) plate.Candidate {
	b := img.Bounds()
	box := FailsafeBox(b.Dx(), b.Dy())
	blurBox(img, box, opts)
	return plate.Candidate{Box: box, Source: plate.SourceFailsafe}
}

// FailsafeBox is the region blurred when no stage found anything: 32% of the
// width by 12% of the height, centered horizontally, with its center at 68%
// of the height.
func FailsafeBox(w, h int) geometry.Box {
	bw := math.Max(1, float64(w)*0.32)
	bh := math.Max(1, float64(h)*0.12)
	return geometry.FromCenter(float64(w)/2, float64(h)*0.68, bw, bh).Clamp(w, h)
}

func blurBox(img *image.NRGBA, box geometry.Box, opts Options) {
	k := opts.KernelSize(box.Width(), box.Height())
	imaging.BlurRegion(img, box.Rect().Add(img.Bounds().Min), Sigma(k), blurPasses)
}
