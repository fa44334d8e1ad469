package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"crop-assist/internal/api"
	"crop-assist/internal/assessment"
	"crop-assist/internal/assessment/decision"
	"crop-assist/internal/assessment/explain"
	"crop-assist/internal/assessment/geo"
	"crop-assist/internal/audit"
	"crop-assist/internal/common/config"
	"crop-assist/internal/common/database"
	apphttp "crop-assist/internal/common/http"
	"crop-assist/internal/common/logger"
	"crop-assist/internal/common/observability"
	"crop-assist/internal/models"
	"crop-assist/internal/pipeline"
	"crop-assist/internal/voice/capture"
	"crop-assist/internal/voice/intent"
	"crop-assist/internal/voice/matcher"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}
	bootLog.Sync()

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting crop-assist...",
		zap.String("environment", cfg.App.Environment),
		zap.String("geoSource", cfg.Geo.Source),
		zap.Bool("camunda", cfg.Camunda.Enabled),
	)

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- PostgreSQL: geo table and farmer contacts ---
	var pg *database.PostgresClient
	if cfg.Geo.Source == config.GeoSourcePostgres || cfg.Notifications.SMS.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Redis: pipeline run results ---
	var store pipeline.RunStore = pipeline.NopRunStore{}
	if cfg.Pipeline.StoreResults {
		rdb := database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error {
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		store = pipeline.NewRedisRunStore(rdb.Client, config.GetDuration(cfg.Pipeline.ResultTTL), log)
		zapLog.Info("Redis connected successfully")
	}

	// --- Elasticsearch: audit trail ---
	var sink audit.Sink = audit.NopSink{}
	if cfg.Audit.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		sink = audit.NewElasticsearchSink(esClient.Client, cfg.Audit.Index, log)
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Assessment ---
	geoService, err := newGeoService(cfg, pg, log)
	if err != nil {
		zapLog.Fatal("geo service setup failed", zap.Error(err))
	}
	defer geoService.Close()
	if err := geoService.Init(ctx); err != nil {
		// The index loads lazily; readiness stays false until it succeeds.
		zapLog.Warn("geo dataset not loaded at startup", zap.Error(err))
	}

	engine := decision.NewEngine(decision.Config{
		DrynessFloorMM: cfg.Decision.DrynessFloorMM,
		Thresholds:     cfg.Decision.Thresholds,
	}, decision.NewSeededNoise(cfg.Decision.NoiseSeed, cfg.Decision.NoiseAmplitude))
	analyzer := assessment.NewAnalyzer(geoService, engine, explain.NewGenerator(), sink, log)

	// --- Voice pipeline ---
	defaultLang, err := models.ParseLanguage(cfg.Voice.DefaultLanguage)
	if err != nil {
		zapLog.Fatal("invalid voice.default_language", zap.Error(err))
	}
	classifier := intent.MustDefault()
	source := newCaptureSource(cfg, log)
	speaker := capture.NewLogSpeaker(cfg.Voice.SpeechRate, cfg.Voice.SpeechPitch, log)

	orch := pipeline.NewOrchestrator(pipeline.Deps{
		Source:        source,
		Classifier:    classifier,
		Analyzer:      analyzer,
		Store:         store,
		Executor:      pipeline.LogExecutor{Logger: log},
		Speaker:       speaker,
		Audit:         sink,
		Observability: obs,
	}, pipeline.Config{
		StageTimeout:    config.GetDuration(cfg.Pipeline.StageTimeout),
		DefaultLanguage: defaultLang,
	}, log)

	// --- Workflow workers ---
	var registry interface{ Close() }
	if cfg.Camunda.Enabled {
		reg, closeClient, err := startWorkers(ctx, cfg, analyzer, orch, pg, obs, log, zapLog)
		if err != nil {
			zapLog.Fatal("camunda workers failed to start", zap.Error(err))
		}
		registry = reg
		defer closeClient()
	}

	// --- HTTP API ---
	server := api.NewServer(analyzer, orch, geoService.Loaded, log)
	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Handler(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLog.Info("API server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	// --- Wake-word listener ---
	if cfg.Voice.Listen {
		listener, err := newListener(cfg, source, defaultLang, orch, speaker, log)
		if err != nil {
			zapLog.Fatal("wake-word listener setup failed", zap.Error(err))
		}
		if err := listener.Start(gctx); err != nil {
			zapLog.Fatal("wake-word listener failed to start", zap.Error(err))
		}
		defer listener.Stop()
		zapLog.Info("Wake-word listener started", zap.String("language", string(defaultLang)))
	}

	// --- Graceful Shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		zapLog.Info("Shutdown signal received, stopping...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
		defer cancel()
		if registry != nil {
			registry.Close()
		}
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLog.Error("crop-assist stopped with error", zap.Error(err))
		return
	}
	zapLog.Info("crop-assist stopped gracefully")
}

func newGeoService(cfg *config.Config, pg *database.PostgresClient, log logger.Logger) (*geo.Service, error) {
	var loader geo.Loader
	switch cfg.Geo.Source {
	case config.GeoSourcePostgres:
		pl, err := geo.NewPostgresLoader(pg.DB, cfg.Geo.Table, log)
		if err != nil {
			return nil, err
		}
		loader = pl
	default:
		loader = geo.CSVFileLoader{Path: cfg.Geo.CSVPath, Logger: log}
	}
	return geo.NewService(loader, cfg.Geo.ScanLimit, cfg.Geo.EarlyExitDistance, log), nil
}

// newCaptureSource prefers the Whisper transcription service and falls back to
// the offline simulated recognizer.
func newCaptureSource(cfg *config.Config, log logger.Logger) capture.Source {
	if cfg.Voice.WhisperURL != "" {
		client := apphttp.NewClient(config.GetDuration(cfg.Voice.WhisperTimeout))
		return capture.NewWhisperSource(client, cfg.Voice.WhisperURL, log)
	}
	log.Warn("no whisper_url configured, using simulated recognition", nil)
	return capture.NewSimulated()
}

func newListener(cfg *config.Config, src capture.Source, lang models.Language, orch *pipeline.Orchestrator, speaker capture.Speaker, log logger.Logger) (*capture.Listener, error) {
	patterns := matcher.DefaultWakeWords(cfg.Voice.WakeSensitivity)
	for i, p := range patterns {
		if phrases := cfg.Voice.WakeWords[string(p.Language)]; len(phrases) > 0 {
			patterns[i].Phrases = phrases
		}
	}
	detector, err := matcher.NewDetector(patterns)
	if err != nil {
		return nil, err
	}

	onWake := func(ctx context.Context, det matcher.Detection, lang models.Language) {
		if det.Remainder == "" {
			speaker.Speak(ctx, prompts[lang], lang)
			return
		}
		res := orch.Run(ctx, pipeline.Input{Text: det.Remainder, Language: lang})
		if !res.Success && res.Error != nil {
			log.Warn("wake command failed", map[string]interface{}{
				"runId":     res.RunID,
				"errorCode": string(res.Error.Code),
			})
		}
	}

	return capture.NewListener(src, detector, lang, config.GetDuration(cfg.Voice.PollInterval), onWake, log), nil
}

var prompts = map[models.Language]string{
	models.LanguageEnglish: "Yes, how can I help with your crop?",
	models.LanguageHindi:   "जी, मैं आपकी फसल के लिए क्या कर सकता हूँ?",
	models.LanguageTelugu:  "చెప్పండి, మీ పంట కోసం ఏమి చేయగలను?",
}
