package classify

import "math"

// smallBoxWidth separates fixed from proportional padding.
const smallBoxWidth = 100

// lowConfidence marks readings whose true plate region is likely larger than
// the text box.
const lowConfidence = 0.5

// Padding returns the horizontal and vertical padding, in pixels per side,
// for an accepted text box of width w and height h read with confidence conf.
//
//	width < 100:  8/6 px,   or 12/10 px below 0.5 confidence
//	otherwise:    10%/25%,  or 15%/30% below 0.5 confidence
func Padding(w, h int, conf float64) (int, int) {
	low := conf < lowConfidence
	if w < smallBoxWidth {
		if low {
			return 12, 10
		}
		return 8, 6
	}
	fx, fy := 0.10, 0.25
	if low {
		fx, fy = 0.15, 0.30
	}
	return int(math.Round(float64(w) * fx)), int(math.Round(float64(h) * fy))
}
