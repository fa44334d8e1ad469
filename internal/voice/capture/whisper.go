package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	apperrors "crop-assist/internal/common/errors"
	apphttp "crop-assist/internal/common/http"
	"crop-assist/internal/common/logger"
)

type transcribeRequest struct {
	AudioURL string `json:"audioUrl"`
	Language string `json:"language"`
}

type transcribeResponse struct {
	Transcription string  `json:"transcription"`
	Confidence    float64 `json:"confidence"`
	Error         string  `json:"error,omitempty"`
}

// WhisperSource transcribes recorded audio through an offline Whisper
// server. Each session issues one request and yields one final event.
type WhisperSource struct {
	client  *apphttp.Client
	baseURL string
	logger  logger.Logger
}

func NewWhisperSource(client *apphttp.Client, baseURL string, log logger.Logger) *WhisperSource {
	return &WhisperSource{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log,
	}
}

func (w *WhisperSource) Available() bool {
	return w != nil && w.baseURL != ""
}

func (w *WhisperSource) Open(ctx context.Context, req Request) (Session, error) {
	if req.AudioURL == "" {
		return nil, apperrors.NewInputInvalidError("audioUrl is required for recorded audio")
	}
	return &whisperSession{source: w, req: req}, nil
}

type whisperSession struct {
	source *WhisperSource
	req    Request

	mu   sync.Mutex
	done bool
}

func (s *whisperSession) Next(ctx context.Context) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return Event{}, io.EOF
	}
	s.done = true

	var resp transcribeResponse
	err := s.source.client.PostJSON(ctx, s.source.baseURL+"/transcribe", transcribeRequest{
		AudioURL: s.req.AudioURL,
		Language: string(s.req.Language),
	}, &resp)
	if err != nil {
		var statusErr *apphttp.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode >= 500 {
			return Event{}, apperrors.NewRecognitionUnavailableError(statusErr.Error())
		}
		return Event{}, fmt.Errorf("whisper transcribe: %w", err)
	}
	if resp.Error != "" {
		return Event{}, fmt.Errorf("whisper transcribe: %s", resp.Error)
	}

	s.source.logger.Debug("audio transcribed", map[string]interface{}{
		"language":   string(s.req.Language),
		"confidence": resp.Confidence,
	})
	return Event{Transcript: resp.Transcription, Final: true}, nil
}

func (s *whisperSession) Close() error {
	return nil
}
