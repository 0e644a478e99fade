package tasks

import (
	"context"

	"go.uber.org/zap"

	"ticketing_app_echo/internal/models"
)

// LogInfoTaskDef writes its message argument to the log. Handy for checking
// the worker end to end.
type LogInfoTaskDef struct{}

func (t *LogInfoTaskDef) TaskID() string {
	return "log_info"
}

func (t *LogInfoTaskDef) HandleExecution(ctx context.Context, deps *Deps, task models.ScheduledTask) (map[string]interface{}, error) {
	message, ok := task.Arguments["message"].(string)
	if !ok {
		message = "No message provided"
	}
	deps.Logger.Info("log_info task", zap.String("message", message), zap.Uint("task_id", task.ID))

	return map[string]interface{}{
		"status":            "success",
		"message":           message,
		"max_attempts_info": task.MaxAttempt,
	}, nil
}

var LogInfoTask = &LogInfoTaskDef{}
