package models

import (
	"strings"

	apperrors "crop-assist/internal/common/errors"
)

// Language is the closed set of languages the voice pipeline understands.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
	LanguageTelugu  Language = "te"
)

// SupportedLanguages lists every Language in a fixed order.
var SupportedLanguages = []Language{LanguageEnglish, LanguageHindi, LanguageTelugu}

var speechLocales = map[Language]string{
	LanguageEnglish: "en-IN",
	LanguageHindi:   "hi-IN",
	LanguageTelugu:  "te-IN",
}

// ParseLanguage accepts a bare tag ("hi") or a locale ("hi-IN"), case-insensitively.
func ParseLanguage(s string) (Language, error) {
	tag := strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	lang := Language(tag)
	if !lang.Valid() {
		return "", apperrors.NewUnsupportedLanguageError(s)
	}
	return lang, nil
}

func (l Language) Valid() bool {
	_, ok := speechLocales[l]
	return ok
}

// Code returns the speech locale used by recognition and text-to-speech.
func (l Language) Code() string {
	return speechLocales[l]
}

func (l Language) String() string {
	return string(l)
}
