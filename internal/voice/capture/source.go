// Package capture is the boundary to speech recognition and text-to-speech.
// Sources deliver transcript events per utterance; sessions own the audio
// handle and must be closed on every path.
package capture

import (
	"context"
	"errors"
	"io"
	"strings"

	apperrors "crop-assist/internal/common/errors"
	"crop-assist/internal/models"
)

// Event is one recognition result for the current utterance.
type Event struct {
	Transcript string
	Final      bool
}

// Request selects what a session should recognize. AudioURL is empty for
// live microphone sources.
type Request struct {
	Language models.Language
	AudioURL string
}

// Session is an open capture handle. Next returns io.EOF once the utterance
// stream has ended.
type Session interface {
	Next(ctx context.Context) (Event, error)
	Close() error
}

// Source opens capture sessions.
type Source interface {
	Available() bool
	Open(ctx context.Context, req Request) (Session, error)
}

// Open acquires a session, mapping a missing capability to RECOGNITION_UNAVAILABLE.
func Open(ctx context.Context, src Source, req Request) (Session, error) {
	if src == nil || !src.Available() {
		return nil, apperrors.NewRecognitionUnavailableError("no speech recognition source is configured")
	}
	if !req.Language.Valid() {
		return nil, apperrors.NewUnsupportedLanguageError(string(req.Language))
	}
	sess, err := src.Open(ctx, req)
	if err != nil {
		if _, ok := apperrors.AsStandardError(err); ok {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperrors.NewRecognitionUnavailableError(err.Error())
	}
	return sess, nil
}

// Recognize reads the session until a final transcript arrives. When the
// stream ends without one, the last interim transcript is used.
func Recognize(ctx context.Context, sess Session) (string, error) {
	last := ""
	for {
		ev, err := sess.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			if _, ok := apperrors.AsStandardError(err); ok {
				return "", err
			}
			return "", apperrors.NewTransientProcessingError("recognize", err)
		}
		text := strings.TrimSpace(ev.Transcript)
		if ev.Final && text != "" {
			return text, nil
		}
		if text != "" {
			last = text
		}
	}
	if last == "" {
		return "", apperrors.NewInputInvalidError("no speech was recognized")
	}
	return last, nil
}
