package assesscroploss

import (
	"context"
	"encoding/json"
	"time"

	"crop-assist/internal/assessment"
	apperrors "crop-assist/internal/common/errors"
	"crop-assist/internal/common/logger"
	"crop-assist/internal/common/metrics"
	"crop-assist/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "assess-crop-loss"
)

// Assessor is satisfied by *assessment.Analyzer.
type Assessor interface {
	Analyze(ctx context.Context, req assessment.Request) (*assessment.Assessment, error)
}

type Handler struct {
	config    *Config
	assessor  Assessor
	validator *validation.Validator
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, assessor Assessor, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		assessor:  assessor,
		validator: validation.MustCompile(TaskType, validation.AnalysisRequestSchema()),
		errors:    apperrors.NewErrorHandler(log),
		logger:    log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	input, err := h.parseInput(job.Variables)
	if err != nil {
		h.errors.HandleJobError(context.Background(), client, job, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, input)
	if err != nil {
		h.errors.HandleJobError(context.Background(), client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) parseInput(variables string) (*Input, error) {
	if err := h.validator.ValidateJSON([]byte(variables)).Err(); err != nil {
		return nil, err
	}
	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewInputInvalidError("parse input: " + err.Error())
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	result, err := h.assessor.Analyze(ctx, assessment.Request{
		Latitude:     input.Latitude,
		Longitude:    input.Longitude,
		CropType:     input.CropType,
		Language:     input.Language,
		AreaHectares: input.AreaHectares,
		NDVIBefore:   input.NDVIBefore,
		NDVICurrent:  input.NDVICurrent,
		RainfallMM:   input.RainfallMM,
	})
	if err != nil {
		return nil, err
	}

	d := result.Decision
	h.logger.Info("crop loss assessed", map[string]interface{}{
		"cropType":      d.CropType,
		"predictedLoss": d.PredictedLoss,
		"eligible":      d.Eligible,
		"riskLevel":     d.RiskLevel,
	})

	return &Output{
		Eligible:      d.Eligible,
		PredictedLoss: d.PredictedLoss,
		Threshold:     d.Threshold,
		Confidence:    d.Confidence,
		RiskLevel:     d.RiskLevel,
		DamageCause:   d.DamageCause,
		District:      d.District,
		Language:      result.Language,
		Narrative:     result.Narrative,
		AssessedAt:    time.Now().UTC().Format(time.RFC3339),
	}, nil
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
