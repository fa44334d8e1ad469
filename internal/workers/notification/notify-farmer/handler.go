package notifyfarmer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "crop-assist/internal/common/errors"
	"crop-assist/internal/common/logger"
	"crop-assist/internal/common/metrics"
	"crop-assist/internal/common/validation"
	"crop-assist/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "notify-farmer"
)

const farmerQuery = `SELECT phone, preferred_language FROM farmers WHERE id = $1`

// SMSSender is satisfied by *aws.SNSClient.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

var smsHeaders = map[models.Language]string{
	models.LanguageEnglish: "Krishi Assist",
	models.LanguageHindi:   "कृषि सहायक",
	models.LanguageTelugu:  "కృషి సహాయకుడు",
}

type Handler struct {
	config    *Config
	db        *sql.DB
	sms       SMSSender
	validator *validation.Validator
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, db *sql.DB, sms SMSSender, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		db:        db,
		sms:       sms,
		validator: validation.MustCompile(TaskType, validation.NotifyFarmerSchema()),
		errors:    apperrors.NewErrorHandler(log),
		logger:    log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	if err := h.validator.ValidateJSON([]byte(job.Variables)).Err(); err != nil {
		h.errors.HandleJobError(context.Background(), client, job, err)
		return
	}
	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(context.Background(), client, job, apperrors.NewInputInvalidError("parse input: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(context.Background(), client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	notificationID := uuid.New().String()
	disabled := &Output{
		NotificationID: notificationID,
		Channel:        ChannelSMS,
		Status:         StatusDisabled,
		SentAt:         time.Now().UTC().Format(time.RFC3339),
	}

	if !h.config.SMSEnabled || h.sms == nil {
		return disabled, nil
	}

	farmer, err := h.getFarmer(ctx, input.FarmerID)
	if errors.Is(err, sql.ErrNoRows) {
		h.logger.Warn("farmer not found", map[string]interface{}{
			"farmerId": input.FarmerID,
		})
		return disabled, nil
	}
	if err != nil {
		return nil, apperrors.NewTransientProcessingError(TaskType, err)
	}
	if farmer.Phone == "" {
		h.logger.Warn("farmer has no phone number", map[string]interface{}{
			"farmerId": input.FarmerID,
		})
		return disabled, nil
	}

	lang := input.Language
	if lang == "" {
		lang = farmer.Language
	}
	message := composeMessage(lang, input.Narrative)

	messageID, err := h.sms.SendSMS(ctx, farmer.Phone, message)
	if err != nil {
		h.logger.Error("SMS send failed", map[string]interface{}{
			"error":    err,
			"farmerId": input.FarmerID,
		})
		return nil, apperrors.NewNotificationSendFailedError(err).
			WithMetadata("notificationId", notificationID)
	}

	h.logger.Info("farmer notified", map[string]interface{}{
		"farmerId":       input.FarmerID,
		"notificationId": notificationID,
		"language":       string(lang),
	})

	return &Output{
		NotificationID: notificationID,
		MessageID:      messageID,
		Channel:        ChannelSMS,
		Status:         StatusSent,
		SentAt:         time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (h *Handler) getFarmer(ctx context.Context, farmerID string) (*Farmer, error) {
	var phone, lang sql.NullString
	if err := h.db.QueryRowContext(ctx, farmerQuery, farmerID).Scan(&phone, &lang); err != nil {
		return nil, err
	}
	return &Farmer{ID: farmerID, Phone: phone.String, Language: models.Language(lang.String)}, nil
}

// composeMessage prefixes the narrative with the localized sender name.
// Unknown languages fall back to English.
func composeMessage(lang models.Language, narrative string) string {
	header, ok := smsHeaders[lang]
	if !ok {
		header = smsHeaders[models.LanguageEnglish]
	}
	return fmt.Sprintf("%s: %s", header, narrative)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
