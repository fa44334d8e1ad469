// Package matcher implements the fuzzy string matching used for wake-word
// detection and command normalization.
package matcher

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Levenshtein returns the edit distance between a and b counted in runes.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Similarity is 1 - levenshtein/maxLen, in [0,1]. Two empty strings are identical.
func Similarity(a, b string) float64 {
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(Levenshtein(a, b))/float64(maxLen)
}

// edgePunctuation is trimmed from both ends of every token. Minus and the
// decimal point are kept so coordinates survive normalization.
const edgePunctuation = ",;:!?\"'()[]{}।॥"

func isCombiningDiacritic(r rune) bool {
	return r >= 0x0300 && r <= 0x036F
}

// Normalize lower-cases s, strips Latin combining diacritics, collapses
// whitespace and trims punctuation at token edges. Indic vowel signs are
// outside the stripped range and are preserved.
func Normalize(s string) string {
	// cases.Caser and transform chains are stateful, so build them per call.
	lowered := cases.Lower(language.Und).String(s)
	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.Predicate(isCombiningDiacritic)), norm.NFC),
		lowered,
	)
	if err != nil {
		stripped = norm.NFC.String(lowered)
	}

	fields := strings.FieldsFunc(stripped, unicode.IsSpace)
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, edgePunctuation)
		f = strings.TrimRight(f, ".")
		if f != "" {
			out = append(out, f)
		}
	}
	return strings.Join(out, " ")
}
