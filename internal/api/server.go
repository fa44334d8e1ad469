// Package api exposes the assessment and voice pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"crop-assist/internal/assessment"
	apperrors "crop-assist/internal/common/errors"
	"crop-assist/internal/common/logger"
	"crop-assist/internal/common/validation"
	"crop-assist/internal/pipeline"
)

const maxBodyBytes = 1 << 20

type Analyzer interface {
	Analyze(ctx context.Context, req assessment.Request) (*assessment.Assessment, error)
}

type Pipeline interface {
	Run(ctx context.Context, in pipeline.Input) *pipeline.Result
	Get(ctx context.Context, runID string) (*pipeline.Result, error)
}

// ReadyFunc reports whether the service can answer assessments.
type ReadyFunc func() bool

type Server struct {
	analyzer Analyzer
	pipeline Pipeline
	ready    ReadyFunc
	logger   logger.Logger

	analysisSchema *validation.Validator
	voiceSchema    *validation.Validator

	handler http.Handler
}

func NewServer(analyzer Analyzer, p Pipeline, ready ReadyFunc, log logger.Logger) *Server {
	if ready == nil {
		ready = func() bool { return true }
	}
	s := &Server{
		analyzer:       analyzer,
		pipeline:       p,
		ready:          ready,
		logger:         log.WithFields(map[string]interface{}{"component": "api"}),
		analysisSchema: validation.MustCompile("analysis request", validation.AnalysisRequestSchema()),
		voiceSchema:    validation.MustCompile("voice command", validation.VoiceCommandSchema()),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/analysis", s.handleAnalysis)
	mux.HandleFunc("POST /api/v1/voice/commands", s.handleVoiceCommand)
	mux.HandleFunc("GET /api/v1/runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.handler = recoverPanics(s.logger, instrument(mux))
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

type analysisResponse struct {
	Success bool `json:"success"`
	*assessment.Assessment
}

type errorResponse struct {
	Success bool                     `json:"success"`
	Error   *apperrors.StandardError `json:"error"`
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r, s.analysisSchema)
	if !ok {
		return
	}

	var req assessment.Request
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, apperrors.NewInputInvalidError(err.Error()))
		return
	}

	res, err := s.analyzer.Analyze(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, analysisResponse{Success: true, Assessment: res})
}

func (s *Server) handleVoiceCommand(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r, s.voiceSchema)
	if !ok {
		return
	}

	var in pipeline.Input
	if err := json.Unmarshal(body, &in); err != nil {
		s.writeError(w, apperrors.NewInputInvalidError(err.Error()))
		return
	}

	res := s.pipeline.Run(r.Context(), in)
	status := http.StatusOK
	if !res.Success && res.Error != nil {
		status = apperrors.HTTPStatus(res.Error.Code)
	}
	writeJSON(w, s.logger, status, res)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	res, err := s.pipeline.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready() {
		writeJSON(w, s.logger, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"time":   time.Now().Format(time.RFC3339),
		})
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// readBody reads and schema-checks the request body, writing the error
// response itself when the body is rejected.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request, schema *validation.Validator) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, apperrors.NewInputInvalidError("request body too large or unreadable"))
		return nil, false
	}
	if err := schema.ValidateJSON(body).Err(); err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return body, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	stdErr := apperrors.Normalize(err)
	status := apperrors.HTTPStatus(stdErr.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"error":     stdErr.Error(),
		})
	}
	writeJSON(w, s.logger, status, errorResponse{Success: false, Error: stdErr})
}

// writeJSON encodes v before the header is sent so an unencodable body can
// still be answered with a 500.
func writeJSON(w http.ResponseWriter, log logger.Logger, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error("response encoding failed", map[string]interface{}{
			"status": status,
			"error":  err.Error(),
		})
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{
			Error: apperrors.NewInternalError(fmt.Errorf("encode response: %w", err)),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		log.Debug("response write failed", map[string]interface{}{"error": err.Error()})
	}
}
