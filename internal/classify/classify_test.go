package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		" ab-12 34 ":  "AB1234",
		"[12a345bc]":  "12A345BC",
		"x_1.2(3)":    "X123",
		"":            "",
		"\tkm 777\n":  "KM777",
		"{A}|B·1234 ": "AB1234",
	}
	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestClassify_StrictPatterns(t *testing.T) {
	plates := []string{
		"12A345BC",
		"12345ABC",
		"A123BC77",
		"A123BC777",
		"AB12CD",
		"AB1234CDE",
		"AB1234",
		"X123",
		"ABC1234",
		"1234AB",
		"123ABC",
		"1ABC234",
		"12A34567",
	}
	for _, p := range plates {
		// Aspect ratio is irrelevant for a pattern match.
		for _, ar := range []float64{0, 1, 4, 20} {
			res := Classify(p, ar)
			assert.True(t, res.Accept, "%s at AR %.1f", p, ar)
			assert.Equal(t, ReasonPattern, res.Reason, p)
			assert.NotEmpty(t, res.Pattern, p)
		}
	}
}

func TestClassify_FormattedInput(t *testing.T) {
	res := Classify("ab-1234", 4)
	require.True(t, res.Accept)
	assert.Equal(t, "AB1234", res.Normalized)
	assert.Equal(t, "lll-dddd", res.Pattern)
}

func TestClassify_Denylist(t *testing.T) {
	for word := range denylist {
		for _, ar := range []float64{1, 4, 6} {
			res := Classify(word, ar)
			assert.False(t, res.Accept, "%s must be rejected", word)
			assert.Equal(t, ReasonDenylist, res.Reason, word)
		}
	}
}

func TestClassify_DenylistConfusedDigits(t *testing.T) {
	for _, s := range []string{"T0Y0TA", "t o y o t a", "H0NDA", "G0LF", "C1VIC"} {
		res := Classify(s, 4)
		assert.False(t, res.Accept, s)
		assert.Equal(t, ReasonDenylist, res.Reason, s)
	}
}

func TestClassify_ConfusionVariants(t *testing.T) {
	tests := []struct {
		in      string
		variant string
	}{
		{"12O45KMH", "12045KMH"}, // letter O read for digit 0
		{"8X393", "BX393"},       // digit 8 read for letter B
		{"12834567", "12B34567"}, // all-digit reading, series letter recovered
	}
	for _, tt := range tests {
		res := Classify(tt.in, 0)
		require.True(t, res.Accept, tt.in)
		assert.Equal(t, ReasonPattern, res.Reason, tt.in)
		assert.Equal(t, tt.variant, res.Variant, tt.in)
	}
}

func TestClassify_WeakHeuristic(t *testing.T) {
	tests := []struct {
		text   string
		ar     float64
		accept bool
		reason Reason
	}{
		{"K9X7Z", 4, true, ReasonHeuristic},   // 5 chars, letter + digit
		{"987654", 3, true, ReasonHeuristic},  // digits only, length 6
		{"98765", 3, false, ReasonNoMatch},    // digits only, too short
		{"K9X7Z", 1.2, false, ReasonShape},    // square box
		{"K9X7Z", 9, false, ReasonShape},      // too elongated
		{"KXYZW", 4, false, ReasonNoMatch},    // no digit
		{"K9X7ZWVUY", 4, false, ReasonNoMatch}, // too long
		{"", 4, false, ReasonEmpty},
	}
	for _, tt := range tests {
		res := Classify(tt.text, tt.ar)
		assert.Equal(t, tt.accept, res.Accept, "%s at %.1f", tt.text, tt.ar)
		assert.Equal(t, tt.reason, res.Reason, "%s at %.1f", tt.text, tt.ar)
	}
}

func TestClassifier_Relaxed(t *testing.T) {
	strict := New(DefaultOptions())
	relaxed := New(RelaxedOptions())

	assert.False(t, strict.Classify("K9X7Z", 1.7).Accept)
	assert.True(t, relaxed.Classify("K9X7Z", 1.7).Accept)
	assert.True(t, relaxed.Classify("K9X7Z", 9.5).Accept)

	noHeuristic := New(Options{})
	assert.False(t, noHeuristic.Classify("K9X7Z", 4).Accept)
	assert.True(t, noHeuristic.Classify("AB1234", 4).Accept)
}

func TestVariants(t *testing.T) {
	assert.Equal(t, []string{"AB1234", "481234", "ABIZ3A"}, Variants("AB1234"))
	assert.Equal(t, []string{"12834567", "IZB3ASGT", "12B34567"}, Variants("12834567"))
	assert.Equal(t, []string{"KXM"}, Variants("KXM"))

	for _, s := range []string{"", "A", "OOOO", "123456789", "AB12CD34"} {
		v := Variants(s)
		assert.LessOrEqual(t, len(v), maxVariants, s)
		seen := map[string]bool{}
		for _, x := range v {
			assert.False(t, seen[x], "duplicate variant %q", x)
			seen[x] = true
		}
	}
}

func TestPadding(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		conf   float64
		px, py int
	}{
		{"small confident", 60, 20, 0.9, 8, 6},
		{"small low confidence", 60, 20, 0.3, 12, 10},
		{"large confident", 200, 40, 0.9, 20, 10},
		{"large low confidence", 200, 40, 0.3, 30, 12},
		{"boundary width", 100, 40, 0.5, 10, 10},
		{"just below boundary", 99, 40, 0.49, 12, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			px, py := Padding(tt.w, tt.h, tt.conf)
			assert.Equal(t, tt.px, px)
			assert.Equal(t, tt.py, py)
		})
	}
}
