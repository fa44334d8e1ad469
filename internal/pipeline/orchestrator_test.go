package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crop-assist/internal/assessment"
	"crop-assist/internal/assessment/decision"
	"crop-assist/internal/assessment/explain"
	"crop-assist/internal/assessment/geo"
	"crop-assist/internal/audit"
	apperrors "crop-assist/internal/common/errors"
	"crop-assist/internal/common/logger"
	"crop-assist/internal/models"
	"crop-assist/internal/voice/capture"
	"crop-assist/internal/voice/intent"
)

// ==========================
// Test Helper Functions
// ==========================

type recordingSpeaker struct {
	mu     sync.Mutex
	spoken []string
}

func (s *recordingSpeaker) Speak(ctx context.Context, text string, lang models.Language) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, string(lang)+":"+text)
}

func (s *recordingSpeaker) Spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

type recordingExecutor struct {
	mu      sync.Mutex
	intents []models.RecognizedIntent
	err     error
}

func (e *recordingExecutor) Execute(ctx context.Context, i models.RecognizedIntent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.intents = append(e.intents, i)
	return e.err
}

type recordingSink struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (s *recordingSink) Record(ctx context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *recordingSink) Entries() []audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Entry(nil), s.entries...)
}

// blockingSource hands out sessions whose Next blocks until released or the
// context ends.
type blockingSource struct {
	entered chan struct{}
	release chan struct{}
	onEnter func()
	closed  chan struct{}
}

func newBlockingSource() *blockingSource {
	return &blockingSource{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		closed:  make(chan struct{}, 1),
	}
}

func (b *blockingSource) Available() bool { return true }

func (b *blockingSource) Open(ctx context.Context, req capture.Request) (capture.Session, error) {
	return &blockingSession{src: b}, nil
}

type blockingSession struct {
	src  *blockingSource
	done bool
}

func (s *blockingSession) Next(ctx context.Context) (capture.Event, error) {
	if s.done {
		return capture.Event{}, io.EOF
	}
	s.src.entered <- struct{}{}
	if s.src.onEnter != nil {
		s.src.onEnter()
	}
	select {
	case <-s.src.release:
		s.done = true
		return capture.Event{Transcript: "play some devotional songs", Final: true}, nil
	case <-ctx.Done():
		return capture.Event{}, ctx.Err()
	}
}

func (s *blockingSession) Close() error {
	s.src.closed <- struct{}{}
	return nil
}

func ptr(v float64) *float64 { return &v }

func testRecords() []geo.GeoRecord {
	return []geo.GeoRecord{
		{Latitude: 17.38, Longitude: 78.48, District: "Hyderabad", NDVIBefore: 0.7, NDVIAfter: 0.6,
			PrecipitationMM: 900, LossPercentage: 20, HealthIndex: 0.5},
		{Latitude: 26.85, Longitude: 80.95, District: "Lucknow", NDVIBefore: 0.6, NDVIAfter: 0.3,
			PrecipitationMM: 600, LossPercentage: 30, HealthIndex: 0.4},
	}
}

type fixture struct {
	orch     *Orchestrator
	speaker  *recordingSpeaker
	executor *recordingExecutor
	sink     *recordingSink
	store    *RedisRunStore
}

func newFixture(t *testing.T, src capture.Source, cfg Config) *fixture {
	t.Helper()
	log := logger.NewTestLogger(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	svc := geo.NewService(geo.StaticLoader(testRecords()), geo.DefaultScanLimit, geo.DefaultEarlyExitDistance, log)
	analyzer := assessment.NewAnalyzer(svc, decision.NewEngine(decision.Config{}, decision.ZeroNoise{}), explain.NewGenerator(), nil, log)

	f := &fixture{
		speaker:  &recordingSpeaker{},
		executor: &recordingExecutor{},
		sink:     &recordingSink{},
		store:    NewRedisRunStore(client, time.Minute, log),
	}
	f.orch = NewOrchestrator(Deps{
		Source:     src,
		Classifier: intent.MustDefault(),
		Analyzer:   analyzer,
		Store:      f.store,
		Executor:   f.executor,
		Speaker:    f.speaker,
		Audit:      f.sink,
	}, cfg, log)
	return f
}

func statuses(stages []Stage) []StageStatus {
	out := make([]StageStatus, len(stages))
	for i, s := range stages {
		out[i] = s.Status
	}
	return out
}

// ==========================
// Successful runs
// ==========================

func TestOrchestrator_TextEligibilityCheck(t *testing.T) {
	f := newFixture(t, nil, Config{})

	res := f.orch.Run(context.Background(), Input{
		Text:     "Am I eligible for insurance at 17.385, 78.4867 for my paddy?",
		Language: models.LanguageEnglish,
	})

	require.True(t, res.Success, "error: %v", res.Error)
	assert.Nil(t, res.Error)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "Am I eligible for insurance at 17.385, 78.4867 for my paddy?", res.Transcription)

	require.Len(t, res.Stages, len(StageOrder))
	for i, s := range res.Stages {
		assert.Equal(t, StageOrder[i], s.Name)
		assert.Equal(t, StatusCompleted, s.Status)
		assert.NotNil(t, s.StartedAt)
	}
	assert.True(t, res.Stages[0].Skipped)
	assert.False(t, res.Stages[3].Skipped)

	require.NotNil(t, res.Intent)
	assert.Equal(t, models.ActionEligibilityCheck, res.Intent.Action)

	require.NotNil(t, res.Decision)
	assert.Equal(t, "rice", res.Decision.CropType)
	assert.Equal(t, "Hyderabad", res.Decision.District)
	assert.InDelta(t, 25.0, res.Decision.PredictedLoss, 1e-9)
	assert.False(t, res.Decision.Eligible)

	require.NotNil(t, res.Explanation)
	assert.Equal(t, res.Explanation.Narrative[models.LanguageEnglish], res.Narrative)
	assert.Equal(t, []string{"en:" + res.Narrative}, f.speaker.Spoken())
	assert.False(t, res.Executed)

	stored, err := f.orch.Get(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.RunID, stored.RunID)
	assert.True(t, stored.Success)
	assert.Equal(t, res.Decision.PredictedLoss, stored.Decision.PredictedLoss)
	assert.Equal(t, statuses(res.Stages), statuses(stored.Stages))

	entries := f.sink.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.KindPipelineRun, entries[0].Kind)
	assert.Equal(t, res.RunID, entries[0].RunID)
	assert.Equal(t, string(models.ActionEligibilityCheck), entries[0].Intent)
	assert.True(t, entries[0].Success)
}

func TestOrchestrator_SimulatedVoiceUsesRequestCoordinates(t *testing.T) {
	src := capture.NewSimulated()
	f := newFixture(t, src, Config{})

	res := f.orch.Run(context.Background(), Input{
		Language:  models.LanguageHindi,
		Latitude:  ptr(26.8),
		Longitude: ptr(80.9),
		CropType:  "wheat",
	})

	require.True(t, res.Success, "error: %v", res.Error)
	assert.False(t, res.Stages[0].Skipped)
	assert.Equal(t, capture.SimulatedTranscripts[models.LanguageHindi], res.Transcription)
	assert.Equal(t, models.ActionCropHealth, res.Intent.Action)
	assert.Equal(t, "Lucknow", res.Decision.District)
	assert.Equal(t, "wheat", res.Decision.CropType)
	assert.Equal(t, res.Explanation.Narrative[models.LanguageHindi], res.Narrative)

	assert.Equal(t, 1, src.Opened())
	assert.Equal(t, 1, src.Closed())
}

func TestOrchestrator_DefaultsCropAndLanguage(t *testing.T) {
	f := newFixture(t, nil, Config{})

	res := f.orch.Run(context.Background(), Input{
		Text:      "Check my crop health at field 5",
		Latitude:  ptr(17.4),
		Longitude: ptr(78.5),
	})

	require.True(t, res.Success, "error: %v", res.Error)
	assert.Equal(t, models.LanguageEnglish, res.Language)
	assert.Equal(t, DefaultCropType, res.Decision.CropType)
}

func TestOrchestrator_WeatherForecastRunsAssessment(t *testing.T) {
	f := newFixture(t, nil, Config{})

	res := f.orch.Run(context.Background(), Input{
		Text:     "What is the weather forecast at 26.85, 80.95?",
		Language: models.LanguageEnglish,
	})

	require.True(t, res.Success, "error: %v", res.Error)
	require.NotNil(t, res.Intent)
	assert.Equal(t, models.ActionWeatherForecast, res.Intent.Action)
	assert.False(t, res.Executed)

	for _, s := range res.Stages[1:] {
		assert.Equal(t, StatusCompleted, s.Status, s.Name)
		assert.False(t, s.Skipped, s.Name)
	}

	require.NotNil(t, res.Decision)
	assert.Equal(t, "Lucknow", res.Decision.District)
	assert.Equal(t, decision.SimulateWeather(26.85, 80.95), res.Decision.Weather)

	require.NotNil(t, res.Explanation)
	assert.Equal(t, res.Explanation.Narrative[models.LanguageEnglish], res.Narrative)
	assert.Equal(t, []string{"en:" + res.Narrative}, f.speaker.Spoken())
	assert.Empty(t, f.executor.intents)
}

func TestOrchestrator_ExecutableIntentSkipsAssessment(t *testing.T) {
	f := newFixture(t, nil, Config{})

	res := f.orch.Run(context.Background(), Input{
		Text:     "रसोई की बत्ती बंद करो",
		Language: models.LanguageHindi,
	})

	require.True(t, res.Success, "error: %v", res.Error)
	assert.Equal(t, models.ActionLightsControl, res.Intent.Action)
	assert.True(t, res.Executed)
	assert.Nil(t, res.Decision)
	assert.Nil(t, res.Explanation)

	assert.True(t, res.Stages[3].Skipped)
	assert.True(t, res.Stages[4].Skipped)
	assert.Equal(t, StatusCompleted, res.Stages[4].Status)

	require.Len(t, f.executor.intents, 1)
	assert.Equal(t, "kitchen", f.executor.intents[0].StringParam(models.ParamLocation))
	assert.Empty(t, f.speaker.Spoken())
}

func TestOrchestrator_ExecutorFailureDoesNotFailRun(t *testing.T) {
	f := newFixture(t, nil, Config{})
	f.executor.err = errors.New("relay offline")

	res := f.orch.Run(context.Background(), Input{Text: "turn on the fan", Language: models.LanguageEnglish})

	require.True(t, res.Success)
	assert.False(t, res.Executed)
}

// ==========================
// Failures
// ==========================

func TestOrchestrator_Failures(t *testing.T) {
	tests := []struct {
		name       string
		source     capture.Source
		input      Input
		wantCode   apperrors.ErrorCode
		wantFailed StageName
	}{
		{
			name:       "geo intent without coordinates",
			input:      Input{Text: "Check my crop health at field 5", Language: models.LanguageEnglish},
			wantCode:   apperrors.ErrCodeInputInvalid,
			wantFailed: StageDecide,
		},
		{
			name:       "forecast without coordinates",
			input:      Input{Text: "will it rain tomorrow", Language: models.LanguageEnglish},
			wantCode:   apperrors.ErrCodeInputInvalid,
			wantFailed: StageDecide,
		},
		{
			name:       "no recognition source for audio",
			input:      Input{Language: models.LanguageEnglish},
			wantCode:   apperrors.ErrCodeRecognitionUnavailable,
			wantFailed: StageCapture,
		},
		{
			name:       "unsupported language for text",
			input:      Input{Text: "bonjour", Language: "fr"},
			wantCode:   apperrors.ErrCodeUnsupportedLanguage,
			wantFailed: StageRecognize,
		},
		{
			name:       "recognition source fails mid utterance",
			source:     &capture.Simulated{FailAfter: 1, Script: []capture.Event{{Transcript: "check"}, {Transcript: "check my crop", Final: true}}},
			input:      Input{Language: models.LanguageEnglish},
			wantCode:   apperrors.ErrCodeTransientProcessing,
			wantFailed: StageRecognize,
		},
		{
			name:       "silence",
			source:     &capture.Simulated{Script: []capture.Event{{Transcript: "  ", Final: true}}},
			input:      Input{Language: models.LanguageTelugu},
			wantCode:   apperrors.ErrCodeInputInvalid,
			wantFailed: StageRecognize,
		},
		{
			name:       "coordinates outside the valid range",
			input:      Input{Text: "check my crop health", Language: models.LanguageEnglish, Latitude: ptr(120), Longitude: ptr(78)},
			wantCode:   apperrors.ErrCodeInputInvalid,
			wantFailed: StageDecide,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.source, Config{})

			res := f.orch.Run(context.Background(), tt.input)

			assert.False(t, res.Success)
			require.NotNil(t, res.Error)
			assert.Equal(t, tt.wantCode, res.Error.Code)

			failed, ok := res.FailedStage()
			require.True(t, ok)
			assert.Equal(t, tt.wantFailed, failed.Name)
			assert.Equal(t, tt.wantCode, failed.Error.Code)

			halted := false
			for _, s := range res.Stages {
				if halted {
					assert.Equal(t, StatusPending, s.Status, "stage %s after failure", s.Name)
				}
				if s.Name == tt.wantFailed {
					halted = true
				}
			}

			assert.Nil(t, res.Explanation)
			assert.Empty(t, f.speaker.Spoken())

			stored, err := f.orch.Get(context.Background(), res.RunID)
			require.NoError(t, err)
			assert.False(t, stored.Success)
			assert.Equal(t, tt.wantCode, stored.Error.Code)

			entries := f.sink.Entries()
			require.Len(t, entries, 1)
			assert.Equal(t, string(tt.wantCode), entries[0].ErrorCode)
		})
	}
}

func TestOrchestrator_StageTimeout(t *testing.T) {
	src := newBlockingSource()
	f := newFixture(t, src, Config{StageTimeout: 30 * time.Millisecond})

	res := f.orch.Run(context.Background(), Input{Language: models.LanguageEnglish})

	require.False(t, res.Success)
	assert.Equal(t, apperrors.ErrCodeStageTimeout, res.Error.Code)
	assert.Equal(t, []StageStatus{StatusCompleted, StatusError, StatusPending, StatusPending, StatusPending}, statuses(res.Stages))

	select {
	case <-src.closed:
	case <-time.After(time.Second):
		t.Fatal("capture session not closed")
	}
}

func TestOrchestrator_CallerCancellation(t *testing.T) {
	src := newBlockingSource()
	ctx, cancel := context.WithCancel(context.Background())
	src.onEnter = cancel
	f := newFixture(t, src, Config{})

	res := f.orch.Run(ctx, Input{Language: models.LanguageEnglish})

	require.False(t, res.Success)
	assert.Equal(t, apperrors.ErrCodeTransientProcessing, res.Error.Code)
	failed, ok := res.FailedStage()
	require.True(t, ok)
	assert.Equal(t, StageRecognize, failed.Name)
	assert.Equal(t, StatusCompleted, res.Stages[0].Status)

	// The result is still stored for a canceled caller.
	_, err := f.orch.Get(context.Background(), res.RunID)
	assert.NoError(t, err)
}

// ==========================
// Observation and concurrency
// ==========================

func TestExecution_StagesObservableWhileRunning(t *testing.T) {
	src := newBlockingSource()
	f := newFixture(t, src, Config{})

	exec := f.orch.Prepare(Input{Language: models.LanguageEnglish})
	assert.Equal(t, []StageStatus{StatusPending, StatusPending, StatusPending, StatusPending, StatusPending}, statuses(exec.Stages()))

	results := make(chan *Result, 1)
	go func() { results <- exec.Execute(context.Background()) }()

	select {
	case <-src.entered:
	case <-time.After(time.Second):
		t.Fatal("recognition never started")
	}
	assert.Equal(t, []StageStatus{StatusCompleted, StatusProcessing, StatusPending, StatusPending, StatusPending}, statuses(exec.Stages()))

	close(src.release)
	res := <-results
	require.True(t, res.Success, "error: %v", res.Error)
	assert.Equal(t, exec.ID(), res.RunID)
	assert.Equal(t, models.ActionPlayMusic, res.Intent.Action)

	again := exec.Execute(context.Background())
	assert.False(t, again.Success)
	assert.Equal(t, apperrors.ErrCodeInternal, again.Error.Code)
}

func TestOrchestrator_ConcurrentRuns(t *testing.T) {
	f := newFixture(t, capture.NewSimulated(), Config{})

	inputs := []Input{
		{Text: "Am I eligible for insurance at 17.385, 78.4867 for my paddy?", Language: models.LanguageEnglish},
		{Language: models.LanguageTelugu, Latitude: ptr(26.85), Longitude: ptr(80.95)},
		{Text: "play some devotional songs", Language: models.LanguageEnglish},
		{Text: "Check my crop health at field 5", Language: models.LanguageEnglish},
	}

	var wg sync.WaitGroup
	results := make([]*Result, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.orch.Run(context.Background(), inputs[i%len(inputs)])
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i, res := range results {
		assert.False(t, seen[res.RunID], "duplicate run id")
		seen[res.RunID] = true
		if i%len(inputs) == 3 {
			assert.False(t, res.Success)
			continue
		}
		assert.True(t, res.Success, "input %d: %v", i%len(inputs), res.Error)
	}
}
