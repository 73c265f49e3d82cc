// Package classify decides whether a piece of recognized text is a licence
// plate.
//
// The classifier is tuned for recall. OCR output is noisy, so every string is
// tried in a few character-confusion variants against a fixed list of
// regional plate formats before a weak length/shape heuristic gets the final
// say. A short denylist of badge and trim words keeps the usual false
// positives (brand names, model names, body types) out.
package classify

import (
	"regexp"
	"strings"
)

// MinConfidence is the OCR confidence below which a detection is ignored.
const MinConfidence = 0.01

// Reason explains a classifier decision.
type Reason string

const (
	ReasonPattern   Reason = "pattern"
	ReasonHeuristic Reason = "heuristic"
	ReasonDenylist  Reason = "denylist"
	ReasonEmpty     Reason = "empty"
	ReasonNoMatch   Reason = "no_match"
	ReasonShape     Reason = "aspect_ratio"
)

// Result is the outcome of classifying one string.
type Result struct {
	Accept     bool   `json:"accept"`
	Reason     Reason `json:"reason"`
	Normalized string `json:"normalized"`

	// Pattern and Variant are set when a plate format matched.
	Pattern string `json:"pattern,omitempty"`
	Variant string `json:"variant,omitempty"`
}

// Options tunes the fallback heuristic.
type Options struct {
	// WeakHeuristic enables the length/shape rule used when no format matches.
	WeakHeuristic bool

	// MinAR and MaxAR bound the aspect ratio of the text box for the heuristic.
	MinAR float64
	MaxAR float64
}

// DefaultOptions is the strict configuration.
func DefaultOptions() Options {
	return Options{WeakHeuristic: true, MinAR: 2.0, MaxAR: 8.0}
}

// RelaxedOptions widens the aspect window for the relaxed batch variant.
func RelaxedOptions() Options {
	return Options{WeakHeuristic: true, MinAR: 1.5, MaxAR: 10.0}
}

// formats lists the accepted plate layouts, newest first. Order matters only
// for the reported pattern name.
var formats = []struct {
	name string
	re   *regexp.Regexp
}{
	{"dd-l-ddd-ll", regexp.MustCompile(`^\d{2}[A-Z]\d{3}[A-Z]{2}$`)},
	{"ddddd-lll", regexp.MustCompile(`^\d{5}[A-Z]{3}$`)},
	{"l-ddd-ll-dd", regexp.MustCompile(`^[A-Z]\d{3}[A-Z]{2}\d{2,3}$`)},
	{"ll-dd-lll", regexp.MustCompile(`^[A-Z]{2}\d{2,4}[A-Z]{2,3}$`)},
	{"lll-dddd", regexp.MustCompile(`^[A-Z]{1,3}\d{3,4}$`)},
	{"dddd-lll", regexp.MustCompile(`^\d{3,4}[A-Z]{2,3}$`)},
	{"d-lll-ddd", regexp.MustCompile(`^\d[A-Z]{2,3}\d{3}$`)},
	{"dd-l-ddddd", regexp.MustCompile(`^\d{2}[A-Z]\d{5,6}$`)},
}

var stripper = strings.NewReplacer(
	" ", "", "\t", "", "\n", "",
	"-", "", "_", "",
	"(", "", ")", "", "[", "", "]", "", "{", "", "}", "",
	"|", "", ".", "", "·", "",
)

// Normalize removes separators and brackets and upper-cases s.
func Normalize(s string) string {
	return strings.ToUpper(stripper.Replace(strings.TrimSpace(s)))
}

// Classifier holds a fixed Options value.
type Classifier struct {
	opts Options
}

// New returns a Classifier with the given options.
func New(opts Options) *Classifier {
	return &Classifier{opts: opts}
}

// Classify decides with DefaultOptions.
func Classify(text string, aspectRatio float64) Result {
	return New(DefaultOptions()).Classify(text, aspectRatio)
}

// Classify decides whether text, read from a box with the given width/height
// aspect ratio, is a plate.
func (c *Classifier) Classify(text string, aspectRatio float64) Result {
	norm := Normalize(text)
	res := Result{Normalized: norm}
	if norm == "" {
		res.Reason = ReasonEmpty
		return res
	}
	if IsDenied(norm) {
		res.Reason = ReasonDenylist
		return res
	}

	for _, v := range Variants(norm) {
		for _, f := range formats {
			if f.re.MatchString(v) {
				res.Accept = true
				res.Reason = ReasonPattern
				res.Pattern = f.name
				res.Variant = v
				return res
			}
		}
	}

	if !c.opts.WeakHeuristic || !weakLooksLikePlate(norm) {
		res.Reason = ReasonNoMatch
		return res
	}
	if aspectRatio < c.opts.MinAR || aspectRatio > c.opts.MaxAR {
		res.Reason = ReasonShape
		return res
	}
	res.Accept = true
	res.Reason = ReasonHeuristic
	return res
}

// weakLooksLikePlate is the fallback text rule: 5-8 characters with at least
// one digit, and either a letter or at least 6 characters.
func weakLooksLikePlate(s string) bool {
	n := len([]rune(s))
	if n < 5 || n > 8 {
		return false
	}
	var digit, letter bool
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case r >= 'A' && r <= 'Z':
			letter = true
		}
	}
	return digit && (letter || n >= 6)
}
