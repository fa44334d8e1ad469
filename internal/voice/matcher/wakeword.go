package matcher

import (
	"fmt"
	"strings"

	apperrors "crop-assist/internal/common/errors"
	"crop-assist/internal/models"
)

// AcceptanceFloor is the scaled confidence a wake phrase must exceed.
const AcceptanceFloor = 0.6

// WakeWordPattern holds the reference phrases for one language.
type WakeWordPattern struct {
	Language    models.Language
	Phrases     []string
	Sensitivity int // 0..100
}

type Detection struct {
	Detected   bool    `json:"detected"`
	Phrase     string  `json:"phrase,omitempty"`
	Confidence float64 `json:"confidence"`
	Remainder  string  `json:"remainder,omitempty"`
}

type compiledPhrase struct {
	text  string
	words int
}

type compiledPattern struct {
	phrases    []compiledPhrase
	multiplier float64
}

// Detector is immutable after construction and safe for concurrent use.
type Detector struct {
	patterns map[models.Language]compiledPattern
}

// DefaultWakeWords returns the built-in phrases for every supported language.
func DefaultWakeWords(sensitivity int) []WakeWordPattern {
	return []WakeWordPattern{
		{Language: models.LanguageEnglish, Phrases: []string{"hey krishi", "ok krishi", "hello krishi"}, Sensitivity: sensitivity},
		{Language: models.LanguageHindi, Phrases: []string{"हे कृषि", "नमस्ते कृषि", "सुनो कृषि"}, Sensitivity: sensitivity},
		{Language: models.LanguageTelugu, Phrases: []string{"హే కృషి", "నమస్కారం కృషి", "వినండి కృషి"}, Sensitivity: sensitivity},
	}
}

// NewDetector validates and normalizes the patterns. Every supported
// language must be covered exactly once.
func NewDetector(patterns []WakeWordPattern) (*Detector, error) {
	d := &Detector{patterns: make(map[models.Language]compiledPattern, len(patterns))}

	for _, p := range patterns {
		if !p.Language.Valid() {
			return nil, apperrors.NewUnsupportedLanguageError(string(p.Language))
		}
		if _, dup := d.patterns[p.Language]; dup {
			return nil, fmt.Errorf("duplicate wake word pattern for %s", p.Language)
		}
		if p.Sensitivity < 0 || p.Sensitivity > 100 {
			return nil, fmt.Errorf("wake word sensitivity for %s must be within 0..100, got %d", p.Language, p.Sensitivity)
		}
		if len(p.Phrases) == 0 {
			return nil, fmt.Errorf("no wake phrases for %s", p.Language)
		}

		cp := compiledPattern{multiplier: float64(p.Sensitivity) / 100}
		for _, phrase := range p.Phrases {
			normalized := Normalize(phrase)
			if normalized == "" {
				return nil, fmt.Errorf("empty wake phrase for %s", p.Language)
			}
			cp.phrases = append(cp.phrases, compiledPhrase{
				text:  normalized,
				words: len(strings.Fields(normalized)),
			})
		}
		d.patterns[p.Language] = cp
	}

	for _, lang := range models.SupportedLanguages {
		if _, ok := d.patterns[lang]; !ok {
			return nil, fmt.Errorf("missing wake word pattern for %s", lang)
		}
	}
	return d, nil
}

// Detect scores the utterance against each phrase of the language. Each phrase
// is compared with the whole utterance and with its leading words; the best of
// the two counts. Ties keep the earlier phrase.
func (d *Detector) Detect(text string, lang models.Language) (Detection, error) {
	pattern, ok := d.patterns[lang]
	if !ok {
		return Detection{}, apperrors.NewUnsupportedLanguageError(string(lang))
	}

	normalized := Normalize(text)
	tokens := strings.Fields(normalized)

	bestScore := -1.0
	var best compiledPhrase
	for _, phrase := range pattern.phrases {
		score := Similarity(normalized, phrase.text)
		if n := min(phrase.words, len(tokens)); n > 0 {
			score = max(score, Similarity(strings.Join(tokens[:n], " "), phrase.text))
		}
		if score > bestScore {
			bestScore = score
			best = phrase
		}
	}

	confidence := bestScore * pattern.multiplier
	detection := Detection{
		Detected:   confidence > AcceptanceFloor,
		Phrase:     best.text,
		Confidence: confidence,
	}
	if detection.Detected && len(tokens) > best.words {
		detection.Remainder = strings.Join(tokens[best.words:], " ")
	}
	return detection, nil
}
