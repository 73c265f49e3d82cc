package detection

import "fmt"

// ModelOptions configures an ONNX plate model.
type ModelOptions struct {
	// Path is the .onnx file.
	Path string `yaml:"path"`

	// InputSize is the square network input side, e.g. 640.
	InputSize int `yaml:"input_size"`

	// Confidence is the minimum class score kept, 0-1.
	Confidence float64 `yaml:"confidence"`

	// Classes restricts the kept class ids. Empty keeps every class.
	Classes []int `yaml:"classes"`
}

func (o ModelOptions) withDefaults() ModelOptions {
	if o.InputSize <= 0 {
		o.InputSize = 640
	}
	if o.Confidence <= 0 {
		o.Confidence = 0.25
	}
	return o
}

func (o ModelOptions) wantClass(c int) bool {
	if len(o.Classes) == 0 {
		return true
	}
	for _, k := range o.Classes {
		if k == c {
			return true
		}
	}
	return false
}

// decodeYOLO converts a raw detector output tensor into boxes.
//
// Two layouts are recognized from the shape:
//
//	[1, 4+nc, N]  anchor-free heads: cx, cy, w, h, class scores per column
//	[1, N, 5+nc]  anchor heads: cx, cy, w, h, objectness, class scores per row
//
// Coordinates are in network input pixels; sx and sy scale them to the
// image the model was given.
func decodeYOLO(data []float32, shape []int, opts ModelOptions, sx, sy float64) ([]RawBox, error) {
	if len(shape) != 3 || shape[0] != 1 {
		return nil, fmt.Errorf("unexpected output shape %v", shape)
	}
	a, b := shape[1], shape[2]
	if len(data) < a*b {
		return nil, fmt.Errorf("output has %d values, shape %v needs %d", len(data), shape, a*b)
	}

	out := make([]RawBox, 0)
	emit := func(cx, cy, w, h, score float64, class int) {
		if score < opts.Confidence || !opts.wantClass(class) {
			return
		}
		out = append(out, RawBox{
			X1:         (cx - w/2) * sx,
			Y1:         (cy - h/2) * sy,
			X2:         (cx + w/2) * sx,
			Y2:         (cy + h/2) * sy,
			Confidence: score,
			Class:      class,
		})
	}

	if a < b {
		// channels-first: a = 4+nc attributes, b = N candidates
		if a < 5 {
			return nil, fmt.Errorf("output shape %v has no class scores", shape)
		}
		at := func(attr, i int) float64 { return float64(data[attr*b+i]) }
		for i := 0; i < b; i++ {
			best, cls := 0.0, 0
			for c := 0; c < a-4; c++ {
				if s := at(4+c, i); s > best {
					best, cls = s, c
				}
			}
			emit(at(0, i), at(1, i), at(2, i), at(3, i), best, cls)
		}
		return out, nil
	}

	// rows: a = N candidates, b = 5+nc attributes
	if b < 6 {
		return nil, fmt.Errorf("output shape %v has no class scores", shape)
	}
	for i := 0; i < a; i++ {
		row := data[i*b : (i+1)*b]
		obj := float64(row[4])
		best, cls := 0.0, 0
		for c := 0; c < b-5; c++ {
			if s := float64(row[5+c]); s > best {
				best, cls = s, c
			}
		}
		emit(float64(row[0]), float64(row[1]), float64(row[2]), float64(row[3]), obj*best, cls)
	}
	return out, nil
}
