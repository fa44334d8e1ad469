package processvoicecommand

import (
	"context"
	"encoding/json"
	"errors"

	apperrors "crop-assist/internal/common/errors"
	"crop-assist/internal/common/logger"
	"crop-assist/internal/common/metrics"
	"crop-assist/internal/common/validation"
	"crop-assist/internal/models"
	"crop-assist/internal/pipeline"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "process-voice-command"
)

// Runner is satisfied by *pipeline.Orchestrator.
type Runner interface {
	Run(ctx context.Context, in pipeline.Input) *pipeline.Result
}

type Handler struct {
	config    *Config
	runner    Runner
	validator *validation.Validator
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, runner Runner, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		runner:    runner,
		validator: validation.MustCompile(TaskType, validation.VoiceCommandSchema()),
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

// execute runs the pipeline once. A failed run is returned as its error so
// that retryable stage failures are retried by the engine.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	result := h.runner.Run(ctx, pipeline.Input{
		Text:         input.Text,
		AudioURL:     input.AudioURL,
		Language:     input.Language,
		Latitude:     input.Latitude,
		Longitude:    input.Longitude,
		CropType:     input.CropType,
		AreaHectares: input.AreaHectares,
	})

	if !result.Success {
		fields := map[string]interface{}{"runId": result.RunID}
		if stage, ok := result.FailedStage(); ok {
			fields["stage"] = string(stage.Name)
		}
		h.logger.Warn("voice command failed", fields)
		if result.Error != nil {
			return nil, result.Error
		}
		return nil, apperrors.NewInternalError(errors.New("run failed without an error"))
	}

	return summarize(result), nil
}

func summarize(result *pipeline.Result) *Output {
	out := &Output{
		RunID:         result.RunID,
		Transcription: result.Transcription,
		Language:      result.Language,
		Action:        models.ActionUnknown,
		Executed:      result.Executed,
		Narrative:     result.Narrative,
		DurationMS:    result.DurationMS,
	}
	if result.Intent != nil {
		out.Action = result.Intent.Action
	}
	if d := result.Decision; d != nil {
		out.Assessed = true
		out.Eligible = d.Eligible
		out.PredictedLoss = d.PredictedLoss
		out.RiskLevel = d.RiskLevel
	}
	return out
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
