package pipeline

import (
	"context"

	"crop-assist/internal/common/logger"
	"crop-assist/internal/models"
)

// Executor carries out device and assistant commands (irrigation, lights,
// reminders, music) recognized by the classifier.
type Executor interface {
	Execute(ctx context.Context, intent models.RecognizedIntent) error
}

// LogExecutor only records the command. It stands in where no device bridge is attached.
type LogExecutor struct {
	Logger logger.Logger
}

func (e LogExecutor) Execute(ctx context.Context, intent models.RecognizedIntent) error {
	e.Logger.Info("executing command", map[string]interface{}{
		"action":     string(intent.Action),
		"parameters": intent.Parameters,
		"language":   string(intent.Language),
	})
	return nil
}
