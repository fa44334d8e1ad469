// Package pipeline sequences a voice or text command through capture,
// recognition, classification, decision and explanation, tracking the status
// and timing of every stage.
package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"crop-assist/internal/assessment"
	"crop-assist/internal/assessment/decision"
	"crop-assist/internal/assessment/explain"
	"crop-assist/internal/audit"
	apperrors "crop-assist/internal/common/errors"
	"crop-assist/internal/common/logger"
	"crop-assist/internal/common/metrics"
	"crop-assist/internal/common/observability"
	"crop-assist/internal/models"
	"crop-assist/internal/voice/capture"
	"crop-assist/internal/voice/intent"
)

const (
	DefaultStageTimeout = 10 * time.Second
	DefaultCropType     = "rice"
)

type Config struct {
	StageTimeout    time.Duration
	DefaultLanguage models.Language
	DefaultCropType string
}

// Deps are the collaborators of a run. Source, Store, Executor, Speaker,
// Audit and Observability are optional.
type Deps struct {
	Source        capture.Source
	Classifier    *intent.Classifier
	Analyzer      *assessment.Analyzer
	Store         RunStore
	Executor      Executor
	Speaker       capture.Speaker
	Audit         audit.Sink
	Observability *observability.Observability
}

// Input is one command. Text input bypasses audio capture; coordinates and
// crop type fill in what the utterance does not mention.
type Input struct {
	Text         string          `json:"text,omitempty"`
	AudioURL     string          `json:"audioUrl,omitempty"`
	Language     models.Language `json:"language,omitempty"`
	Latitude     *float64        `json:"latitude,omitempty"`
	Longitude    *float64        `json:"longitude,omitempty"`
	CropType     string          `json:"cropType,omitempty"`
	AreaHectares float64         `json:"areaHectares,omitempty"`
}

type Result struct {
	RunID         string                   `json:"runId"`
	Transcription string                   `json:"transcription"`
	Language      models.Language          `json:"language"`
	Intent        *models.RecognizedIntent `json:"intent,omitempty"`
	Executed      bool                     `json:"executed,omitempty"`
	Decision      *decision.DecisionResult `json:"decision,omitempty"`
	Explanation   *explain.Explanation     `json:"explanation,omitempty"`
	Narrative     string                   `json:"narrative,omitempty"`
	Stages        []Stage                  `json:"stages"`
	Error         *apperrors.StandardError `json:"error,omitempty"`
	Success       bool                     `json:"success"`
	StartedAt     time.Time                `json:"startedAt"`
	DurationMS    float64                  `json:"durationMs"`
}

// FailedStage returns the stage that halted the run, if any.
func (r *Result) FailedStage() (Stage, bool) {
	for _, s := range r.Stages {
		if s.Status == StatusError {
			return s, true
		}
	}
	return Stage{}, false
}

type Orchestrator struct {
	deps   Deps
	cfg    Config
	obs    *observability.Observability
	logger logger.Logger
	now    func() time.Time
}

func NewOrchestrator(deps Deps, cfg Config, log logger.Logger) *Orchestrator {
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = DefaultStageTimeout
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = models.LanguageEnglish
	}
	if cfg.DefaultCropType == "" {
		cfg.DefaultCropType = DefaultCropType
	}
	if deps.Store == nil {
		deps.Store = NopRunStore{}
	}
	if deps.Audit == nil {
		deps.Audit = audit.NopSink{}
	}
	obs := deps.Observability
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &Orchestrator{
		deps:   deps,
		cfg:    cfg,
		obs:    obs,
		logger: log.WithFields(map[string]interface{}{"component": "pipeline"}),
		now:    time.Now,
	}
}

// Run executes one command to completion and returns its result. It never
// returns nil; failures are reported in Result.Error and on the failed stage.
func (o *Orchestrator) Run(ctx context.Context, in Input) *Result {
	return o.Prepare(in).Execute(ctx)
}

// Get returns a stored result.
func (o *Orchestrator) Get(ctx context.Context, runID string) (*Result, error) {
	return o.deps.Store.Get(ctx, runID)
}

// Prepare creates a run whose stages can be observed while it executes.
func (o *Orchestrator) Prepare(in Input) *Execution {
	return &Execution{
		o:       o,
		id:      uuid.New().String(),
		input:   in,
		tracker: newStageTracker(o.now),
	}
}

// Execution is a single run. It is executed at most once.
type Execution struct {
	o       *Orchestrator
	id      string
	input   Input
	tracker *stageTracker
	started atomic.Bool
}

func (e *Execution) ID() string { return e.id }

// Stages returns a snapshot of the stage list; safe to call during Execute.
func (e *Execution) Stages() []Stage { return e.tracker.snapshot() }

func (e *Execution) Execute(ctx context.Context) *Result {
	o := e.o
	begin := o.now()
	result := &Result{RunID: e.id, StartedAt: begin.UTC(), Language: e.input.Language}
	if result.Language == "" {
		result.Language = o.cfg.DefaultLanguage
	}

	if !e.started.CompareAndSwap(false, true) {
		result.Error = apperrors.NewInternalError(errors.New("run " + e.id + " already executed"))
		result.Stages = e.Stages()
		return result
	}

	ctx, span := o.obs.StartSpan(ctx, "pipeline.run",
		attribute.String("run.id", e.id),
		attribute.String("run.language", string(result.Language)),
	)
	log := o.logger.WithFields(map[string]interface{}{"runId": e.id})

	err := e.execute(ctx, result, log)

	result.Stages = e.Stages()
	result.DurationMS = float64(o.now().Sub(begin).Microseconds()) / 1000
	result.Success = err == nil
	outcome, code := "success", ""
	if err != nil {
		result.Error = apperrors.Normalize(err)
		outcome, code = "error", string(result.Error.Code)
		log.Warn("pipeline run failed", map[string]interface{}{
			"errorCode": code,
			"details":   result.Error.Details,
		})
	} else {
		log.Info("pipeline run completed", map[string]interface{}{
			"action":     actionOf(result.Intent),
			"durationMs": result.DurationMS,
		})
	}
	metrics.PipelineRuns.WithLabelValues(outcome, code).Inc()
	observability.EndSpan(span, err)

	// Persistence and audit outlive a canceled caller.
	bg := context.WithoutCancel(ctx)
	e.record(bg, result, log)
	if err := o.deps.Store.Save(bg, result); err != nil {
		log.Warn("run result not stored", map[string]interface{}{"error": err.Error()})
	}
	return result
}

func (e *Execution) execute(ctx context.Context, result *Result, log logger.Logger) error {
	o := e.o
	in := e.input
	lang := result.Language
	text := strings.TrimSpace(in.Text)

	var session capture.Session
	defer func() {
		if session != nil {
			if err := session.Close(); err != nil {
				log.Warn("capture session close failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}()

	if text != "" {
		e.tracker.skip(StageCapture)
	} else {
		sess, err := runStage(ctx, e, StageCapture, func(ctx context.Context) (capture.Session, error) {
			return capture.Open(ctx, o.deps.Source, capture.Request{Language: lang, AudioURL: in.AudioURL})
		})
		if err != nil {
			return err
		}
		session = sess
	}

	transcript, err := runStage(ctx, e, StageRecognize, func(ctx context.Context) (string, error) {
		if !lang.Valid() {
			return "", apperrors.NewUnsupportedLanguageError(string(lang))
		}
		if session == nil {
			return text, nil
		}
		return capture.Recognize(ctx, session)
	})
	if err != nil {
		return err
	}
	result.Transcription = transcript

	recognized, err := runStage(ctx, e, StageClassify, func(ctx context.Context) (models.RecognizedIntent, error) {
		return o.deps.Classifier.Classify(transcript, lang)
	})
	if err != nil {
		return err
	}
	result.Intent = &recognized
	metrics.IntentsClassified.WithLabelValues(string(lang), string(recognized.Action)).Inc()

	if recognized.RequiresExecution && o.deps.Executor != nil {
		if err := o.deps.Executor.Execute(ctx, recognized); err != nil {
			log.Warn("command execution failed", map[string]interface{}{
				"action": string(recognized.Action),
				"error":  err.Error(),
			})
		} else {
			result.Executed = true
		}
	}

	if !recognized.Action.GeoBearing() {
		e.tracker.skip(StageDecide)
		e.tracker.skip(StageExplain)
		return nil
	}

	req := e.assessmentRequest(recognized, lang)
	d, err := runStage(ctx, e, StageDecide, func(ctx context.Context) (*decision.DecisionResult, error) {
		if req == nil {
			return nil, apperrors.NewInputInvalidError("coordinates are required for " + string(recognized.Action))
		}
		return o.deps.Analyzer.Decide(ctx, *req)
	})
	if err != nil {
		return err
	}
	result.Decision = d

	exp, err := runStage(ctx, e, StageExplain, func(ctx context.Context) (*explain.Explanation, error) {
		return o.deps.Analyzer.Explain(d)
	})
	if err != nil {
		return err
	}
	result.Explanation = exp
	result.Narrative = exp.Narrative[lang]

	if o.deps.Speaker != nil {
		o.deps.Speaker.Speak(ctx, result.Narrative, lang)
	}
	return nil
}

// assessmentRequest merges utterance parameters over the request defaults.
// It returns nil when no coordinates are known.
func (e *Execution) assessmentRequest(recognized models.RecognizedIntent, lang models.Language) *assessment.Request {
	in := e.input
	lat, lon, ok := recognized.Coordinates()
	if !ok {
		if in.Latitude == nil || in.Longitude == nil {
			return nil
		}
		lat, lon = *in.Latitude, *in.Longitude
	}

	crop := recognized.StringParam(models.ParamCropType)
	if crop == "" {
		crop = in.CropType
	}
	if crop == "" {
		crop = e.o.cfg.DefaultCropType
	}

	return &assessment.Request{
		Latitude:     lat,
		Longitude:    lon,
		CropType:     crop,
		Language:     lang,
		AreaHectares: in.AreaHectares,
	}
}

func (e *Execution) record(ctx context.Context, result *Result, log logger.Logger) {
	entry := audit.Entry{
		Kind:      audit.KindPipelineRun,
		RunID:     result.RunID,
		Language:  string(result.Language),
		Intent:    actionOf(result.Intent),
		Success:   result.Success,
		Timestamp: result.StartedAt,
	}
	if d := result.Decision; d != nil {
		entry.CropType = d.CropType
		entry.Latitude = d.MatchedLatitude
		entry.Longitude = d.MatchedLongitude
		entry.District = d.District
		entry.Eligible = &d.Eligible
		entry.PredictedLoss = d.PredictedLoss
		entry.Threshold = d.Threshold
	}
	if result.Error != nil {
		entry.ErrorCode = string(result.Error.Code)
	}
	if err := e.o.deps.Audit.Record(ctx, entry); err != nil {
		log.Warn("audit record failed", map[string]interface{}{"error": err.Error()})
	}
}

type stageOutcome[T any] struct {
	value T
	err   error
}

// runStage runs fn as the named stage under the stage timeout. A stage that
// overruns is abandoned; its late result is discarded.
func runStage[T any](ctx context.Context, e *Execution, name StageName, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	o := e.o

	started, ok := e.tracker.begin(name)
	if !ok {
		return zero, apperrors.NewInternalError(errors.New("stage " + string(name) + " started out of order"))
	}

	stageCtx, cancel := context.WithTimeout(ctx, o.cfg.StageTimeout)
	defer cancel()
	stageCtx, span := o.obs.StartSpan(stageCtx, "pipeline."+string(name))

	done := make(chan stageOutcome[T], 1)
	go func() {
		v, err := fn(stageCtx)
		done <- stageOutcome[T]{value: v, err: err}
	}()

	var out stageOutcome[T]
	select {
	case out = <-done:
	case <-stageCtx.Done():
		select {
		case out = <-done:
		default:
			out.err = stageCtx.Err()
			go releaseLate(done)
		}
	}

	var stdErr *apperrors.StandardError
	switch {
	case out.err == nil:
	case ctx.Err() != nil:
		stdErr = apperrors.NewTransientProcessingError(string(name), ctx.Err())
	case errors.Is(stageCtx.Err(), context.DeadlineExceeded):
		stdErr = apperrors.NewStageTimeoutError(string(name), o.cfg.StageTimeout)
	default:
		stdErr = apperrors.Normalize(out.err)
	}

	elapsed := o.now().Sub(started)
	status := string(StatusCompleted)
	if stdErr != nil {
		status = string(StatusError)
		e.tracker.fail(name, started, stdErr)
	} else {
		e.tracker.complete(name, started)
	}
	metrics.PipelineStageDuration.WithLabelValues(string(name), status).Observe(elapsed.Seconds())
	o.obs.RecordStage(ctx, string(name), status, elapsed)

	if stdErr != nil {
		observability.EndSpan(span, stdErr)
		return zero, stdErr
	}
	observability.EndSpan(span, nil)
	return out.value, nil
}

// releaseLate closes a resource produced by a stage after it was abandoned.
func releaseLate[T any](done <-chan stageOutcome[T]) {
	out := <-done
	if out.err != nil {
		return
	}
	if c, ok := any(out.value).(io.Closer); ok {
		_ = c.Close()
	}
}

func actionOf(i *models.RecognizedIntent) string {
	if i == nil {
		return ""
	}
	return string(i.Action)
}
