// Package intent maps normalized utterances to actions with extracted
// parameters using per-language rule sets.
package intent

import (
	"fmt"
	"regexp"

	apperrors "crop-assist/internal/common/errors"
	"crop-assist/internal/models"
	"crop-assist/internal/voice/matcher"

	"golang.org/x/text/unicode/norm"
)

// MatchConfidence is reported for every pattern match. The classifier is a
// rule engine, so a match is binary.
const MatchConfidence = 0.9

type compiledRule struct {
	action   models.Action
	patterns []*regexp.Regexp
}

type compiledRuleSet struct {
	rules      []compiledRule
	extractor  *extractor
	corrector  *matcher.Corrector
	vocabulary []string
}

// Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	sets map[models.Language]*compiledRuleSet
}

// NewClassifier validates and compiles the rule sets. It fails when a
// supported language has no rule set, when a rule names an unknown action or
// has no patterns, or when a pattern does not compile.
func NewClassifier(sets []RuleSet) (*Classifier, error) {
	if err := ValidateRules(sets); err != nil {
		return nil, err
	}

	c := &Classifier{sets: make(map[models.Language]*compiledRuleSet, len(sets))}
	for _, set := range sets {
		compiled, err := compileRuleSet(set)
		if err != nil {
			return nil, fmt.Errorf("compile %s rules: %w", set.Language, err)
		}
		c.sets[set.Language] = compiled
	}
	return c, nil
}

// MustDefault builds the classifier from DefaultRules and panics if they are invalid.
func MustDefault() *Classifier {
	c, err := NewClassifier(DefaultRules())
	if err != nil {
		panic(err)
	}
	return c
}

// ValidateRules checks rule sets without compiling them.
func ValidateRules(sets []RuleSet) error {
	seen := make(map[models.Language]bool, len(sets))
	for _, set := range sets {
		if !set.Language.Valid() {
			return apperrors.NewUnsupportedLanguageError(string(set.Language))
		}
		if seen[set.Language] {
			return fmt.Errorf("duplicate rule set for %s", set.Language)
		}
		seen[set.Language] = true

		actions := make(map[models.Action]bool, len(set.Rules))
		for _, rule := range set.Rules {
			if !rule.Action.Known() {
				return fmt.Errorf("%s: unknown action %q", set.Language, rule.Action)
			}
			if actions[rule.Action] {
				return fmt.Errorf("%s: duplicate rule for %s", set.Language, rule.Action)
			}
			actions[rule.Action] = true
			if len(rule.Patterns) == 0 {
				return fmt.Errorf("%s: rule %s has no patterns", set.Language, rule.Action)
			}
		}
	}
	for _, lang := range models.SupportedLanguages {
		if !seen[lang] {
			return fmt.Errorf("missing rule set for %s", lang)
		}
	}
	return nil
}

func compilePattern(expr string) (*regexp.Regexp, error) {
	return regexp.Compile(norm.NFC.String(expr))
}

func compileRuleSet(set RuleSet) (*compiledRuleSet, error) {
	out := &compiledRuleSet{}
	for _, rule := range set.Rules {
		cr := compiledRule{action: rule.Action}
		for _, expr := range rule.Patterns {
			re, err := compilePattern(expr)
			if err != nil {
				return nil, fmt.Errorf("action %s: %w", rule.Action, err)
			}
			cr.patterns = append(cr.patterns, re)
		}
		out.rules = append(out.rules, cr)
	}

	ex, err := newExtractor(set)
	if err != nil {
		return nil, err
	}
	out.extractor = ex

	out.vocabulary = append(out.vocabulary, set.Vocabulary...)
	for _, kws := range [][]Keyword{set.Crops, set.Locations, set.Genres} {
		for _, kw := range kws {
			out.vocabulary = append(out.vocabulary, kw.Word)
		}
	}
	out.corrector = matcher.NewCorrector(out.vocabulary, matcher.DefaultMinCorrectionSimilarity)
	return out, nil
}

// Classify returns the first action whose patterns match the normalized text.
// When nothing matches, the text is passed through the vocabulary corrector
// and tried once more before falling back to ActionUnknown.
func (c *Classifier) Classify(text string, lang models.Language) (models.RecognizedIntent, error) {
	set, ok := c.sets[lang]
	if !ok {
		return models.RecognizedIntent{}, apperrors.NewUnsupportedLanguageError(string(lang))
	}

	normalized := matcher.Normalize(text)
	action, matched := set.match(normalized)
	if !matched {
		if corrected := set.corrector.Correct(normalized); corrected != normalized {
			if action, matched = set.match(corrected); matched {
				normalized = corrected
			}
		}
	}

	if !matched {
		return models.RecognizedIntent{
			Action:     models.ActionUnknown,
			Parameters: map[string]interface{}{},
			Language:   lang,
			Text:       normalized,
		}, nil
	}

	return models.RecognizedIntent{
		Action:            action,
		Parameters:        set.extractor.extract(action, normalized),
		Confidence:        MatchConfidence,
		RequiresExecution: action.RequiresExecution(),
		Language:          lang,
		Text:              normalized,
	}, nil
}

func (s *compiledRuleSet) match(text string) (models.Action, bool) {
	if text == "" {
		return models.ActionUnknown, false
	}
	for _, rule := range s.rules {
		for _, re := range rule.patterns {
			if re.MatchString(text) {
				return rule.action, true
			}
		}
	}
	return models.ActionUnknown, false
}
