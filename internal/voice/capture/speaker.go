package capture

import (
	"context"

	"crop-assist/internal/common/logger"
	"crop-assist/internal/models"
)

const (
	DefaultSpeechRate  = 0.9
	DefaultSpeechPitch = 1.0
)

// Speaker is the text-to-speech sink. Speak must not block the caller and
// reports nothing back.
type Speaker interface {
	Speak(ctx context.Context, text string, lang models.Language)
}

// LogSpeaker records utterances in the log, for headless deployments.
type LogSpeaker struct {
	Rate   float64
	Pitch  float64
	Logger logger.Logger
}

func NewLogSpeaker(rate, pitch float64, log logger.Logger) *LogSpeaker {
	if rate <= 0 {
		rate = DefaultSpeechRate
	}
	if pitch <= 0 {
		pitch = DefaultSpeechPitch
	}
	return &LogSpeaker{Rate: rate, Pitch: pitch, Logger: log}
}

func (s *LogSpeaker) Speak(ctx context.Context, text string, lang models.Language) {
	if text == "" {
		return
	}
	s.Logger.Info("speaking", map[string]interface{}{
		"locale": lang.Code(),
		"rate":   s.Rate,
		"pitch":  s.Pitch,
		"chars":  len([]rune(text)),
	})
}
