package classify

import "strings"

// maxVariants bounds the candidate set tried against the plate formats.
const maxVariants = 4

// letterToDigit maps letters OCR commonly confuses with a digit.
var letterToDigit = map[rune]rune{
	'O': '0', 'Q': '0', 'D': '0',
	'I': '1', 'L': '1',
	'Z': '2',
	'A': '4',
	'S': '5',
	'G': '6',
	'T': '7',
	'B': '8',
}

// digitToLetter is the reverse direction. Where several letters map to one
// digit the most common misread wins.
var digitToLetter = map[rune]rune{
	'0': 'O',
	'1': 'I',
	'2': 'Z',
	'4': 'A',
	'5': 'S',
	'6': 'G',
	'7': 'T',
	'8': 'B',
}

// targetedLetterPos is the index retried as a letter in an all-digit 8-9
// character reading. In the dd-l-ddd-ll layout the third character is the
// series letter, which is the one most often read as a digit.
const targetedLetterPos = 2

// Variants returns the normalized string followed by its OCR-confusion
// variants: all letters read as digits, all digits read as letters, and a
// targeted variant for all-digit 8-9 character strings. The result is
// de-duplicated and holds at most maxVariants entries.
func Variants(norm string) []string {
	out := make([]string, 0, maxVariants)
	seen := make(map[string]bool, maxVariants)
	add := func(s string) {
		if s == "" || seen[s] || len(out) >= maxVariants {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	add(norm)
	add(substitute(norm, letterToDigit))
	add(substitute(norm, digitToLetter))
	add(targeted(norm))
	return out
}

func substitute(s string, table map[rune]rune) string {
	return strings.Map(func(r rune) rune {
		if to, ok := table[r]; ok {
			return to
		}
		return r
	}, s)
}

func targeted(s string) string {
	n := len(s)
	if n < 8 || n > 9 || !allDigits(s) {
		return ""
	}
	r := []rune(s)
	to, ok := digitToLetter[r[targetedLetterPos]]
	if !ok {
		return ""
	}
	r[targetedLetterPos] = to
	return string(r)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
