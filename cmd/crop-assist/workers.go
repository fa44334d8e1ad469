package main

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"crop-assist/internal/assessment"
	"crop-assist/internal/common/aws"
	"crop-assist/internal/common/camunda"
	"crop-assist/internal/common/config"
	"crop-assist/internal/common/database"
	"crop-assist/internal/common/logger"
	"crop-assist/internal/common/observability"
	"crop-assist/internal/pipeline"

	acl "crop-assist/internal/workers/assessment/assess-crop-loss"
	nf "crop-assist/internal/workers/notification/notify-farmer"
	pvc "crop-assist/internal/workers/voice/process-voice-command"
)

// startWorkers connects to the Zeebe gateway and opens the enabled job workers.
// The returned func closes the gateway connection.
func startWorkers(
	ctx context.Context,
	cfg *config.Config,
	analyzer *assessment.Analyzer,
	orch *pipeline.Orchestrator,
	pg *database.PostgresClient,
	obs *observability.Observability,
	log logger.Logger,
	zapLog *zap.Logger,
) (*camunda.Registry, func(), error) {
	var client *camunda.Client
	err := retryWithBackoff(func() error {
		var err error
		client, err = camunda.NewClientWithConfig(camunda.ConfigFromApp(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		return nil, nil, err
	}
	zapLog.Info("Zeebe client connected successfully")

	closeClient := func() {
		if err := client.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	registry := camunda.NewRegistry(client.Zeebe(), obs, log)

	// --- assess-crop-loss ---
	aclCfg := config.GetWorkerConfig(cfg, acl.TaskType)
	registry.Register(acl.TaskType, aclCfg,
		acl.NewHandler(&acl.Config{Timeout: config.GetDuration(aclCfg.Timeout)}, analyzer, log).Handle)

	// --- process-voice-command ---
	pvcCfg := config.GetWorkerConfig(cfg, pvc.TaskType)
	registry.Register(pvc.TaskType, pvcCfg,
		pvc.NewHandler(&pvc.Config{Timeout: config.GetDuration(pvcCfg.Timeout)}, orch, log).Handle)

	// --- notify-farmer ---
	nfCfg := config.GetWorkerConfig(cfg, nf.TaskType)
	if nfCfg.Enabled {
		handlerCfg := &nf.Config{
			SMSEnabled: cfg.Notifications.SMS.Enabled,
			SenderID:   cfg.Notifications.SMS.SenderID,
			AWSRegion:  cfg.Notifications.AWS.Region,
			Timeout:    config.GetDuration(nfCfg.Timeout),
		}

		var sender nf.SMSSender
		if handlerCfg.SMSEnabled {
			snsClient, err := aws.NewSNSClient(ctx, handlerCfg.AWSRegion, handlerCfg.SenderID)
			if err != nil {
				closeClient()
				return nil, nil, err
			}
			sender = snsClient
		}

		// postgres is connected whenever sms is enabled
		var db *sql.DB
		if pg != nil {
			db = pg.DB
		}
		registry.Register(nf.TaskType, nfCfg, nf.NewHandler(handlerCfg, db, sender, log).Handle)
	}

	zapLog.Info("Workflow workers registered", zap.Strings("taskTypes", registry.TaskTypes()))
	return registry, closeClient, nil
}
