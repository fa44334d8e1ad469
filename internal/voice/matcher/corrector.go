package matcher

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	DefaultMinCorrectionSimilarity = 0.8
	minCorrectableRunes            = 4
)

// Corrector snaps misrecognized tokens onto a known command vocabulary.
type Corrector struct {
	vocabulary    []string
	known         map[string]struct{}
	minSimilarity float64
}

func NewCorrector(vocabulary []string, minSimilarity float64) *Corrector {
	c := &Corrector{
		known:         make(map[string]struct{}, len(vocabulary)),
		minSimilarity: minSimilarity,
	}
	for _, word := range vocabulary {
		for _, w := range strings.Fields(Normalize(word)) {
			if _, seen := c.known[w]; seen {
				continue
			}
			c.known[w] = struct{}{}
			c.vocabulary = append(c.vocabulary, w)
		}
	}
	// Sorted so equal-similarity candidates resolve the same way every run.
	sort.Strings(c.vocabulary)
	return c
}

// Correct replaces unknown tokens of at least four runes with the closest
// vocabulary word when the similarity reaches the configured minimum.
func (c *Corrector) Correct(text string) string {
	tokens := strings.Fields(text)
	for i, tok := range tokens {
		if _, ok := c.known[tok]; ok || utf8.RuneCountInString(tok) < minCorrectableRunes {
			continue
		}
		bestScore := 0.0
		bestWord := ""
		for _, word := range c.vocabulary {
			if score := Similarity(tok, word); score > bestScore {
				bestScore, bestWord = score, word
			}
		}
		if bestWord != "" && bestScore >= c.minSimilarity {
			tokens[i] = bestWord
		}
	}
	return strings.Join(tokens, " ")
}
