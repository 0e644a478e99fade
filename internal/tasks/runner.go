package tasks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ticketing_app_echo/internal/models"
)

// Runner executes due scheduled tasks
type Runner struct {
	registry *Registry
	store    TaskStore
	deps     *Deps
	log      *zap.Logger
	now      func() time.Time
}

func NewRunner(registry *Registry, store TaskStore, deps *Deps, log *zap.Logger) *Runner {
	if deps.Logger == nil {
		deps.Logger = log
	}
	return &Runner{registry: registry, store: store, deps: deps, log: log, now: deps.now}
}

// RunDue processes every task due at the time of the call and returns how many ran
func (r *Runner) RunDue(ctx context.Context) (int, error) {
	due, err := r.store.DueTasks(ctx, r.now())
	if err != nil {
		return 0, fmt.Errorf("failed to fetch due tasks: %w", err)
	}
	if len(due) == 0 {
		r.log.Debug("No pending tasks found")
		return 0, nil
	}

	r.log.Info("Found pending tasks", zap.Int("count", len(due)))
	ran := 0
	for _, task := range due {
		if ctx.Err() != nil {
			return ran, ctx.Err()
		}
		r.Execute(ctx, task)
		ran++
	}
	return ran, nil
}

// Execute runs one task, retrying up to MaxAttempt times, records each
// attempt in the history and moves the task to its next state. Recurring
// tasks are rescheduled whether or not the run succeeded.
func (r *Runner) Execute(ctx context.Context, task models.ScheduledTask) {
	log := r.log.With(zap.String("task", task.TaskName), zap.Uint("task_id", task.ID))

	handler, found := r.registry.Get(task.TaskName)
	if !found {
		log.Error("Task handler not found, marking as failure")
		now := r.now()
		r.update(ctx, &task, map[string]interface{}{
			"status":   models.ScheduledTaskStatusFailure,
			"last_run": &now,
		})
		r.history(ctx, task, now, 0, "handler_not_found", 1, map[string]interface{}{"error": "handler not found"})
		return
	}

	maxAttempt := task.MaxAttempt
	if maxAttempt < 1 {
		maxAttempt = 1
	}

	var (
		startTime time.Time
		err       error
	)
	for attempt := 1; attempt <= maxAttempt; attempt++ {
		startTime = r.now()
		var result map[string]interface{}
		result, err = r.run(ctx, handler, task)
		runtime := int(r.now().Sub(startTime).Milliseconds())

		if err == nil {
			log.Info("Task completed", zap.Int("attempt", attempt))
			r.history(ctx, task, startTime, runtime, "success", attempt, result)
			break
		}
		log.Warn("Task failed", zap.Int("attempt", attempt), zap.Error(err))
		r.history(ctx, task, startTime, runtime, "failure", attempt, map[string]interface{}{"error": err.Error()})
		if ctx.Err() != nil {
			break
		}
	}

	updates := map[string]interface{}{"last_run": &startTime}
	switch {
	case task.TaskType == models.ScheduledTaskTypeRecurring:
		next := task.NextDue(r.now())
		if next.After(task.Due) {
			updates["status"] = models.ScheduledTaskStatusActive
			updates["due"] = next
		} else {
			updates["status"] = models.ScheduledTaskStatusDone
		}
	case err != nil:
		updates["status"] = models.ScheduledTaskStatusFailure
	default:
		updates["status"] = models.ScheduledTaskStatusDone
	}
	r.update(ctx, &task, updates)
}

// run calls the handler and turns a panic into an error
func (r *Runner) run(ctx context.Context, handler TaskHandler, task models.ScheduledTask) (result map[string]interface{}, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	return handler(ctx, r.deps, task)
}

func (r *Runner) update(ctx context.Context, task *models.ScheduledTask, updates map[string]interface{}) {
	if err := r.store.Update(context.WithoutCancel(ctx), task, updates); err != nil {
		r.log.Error("Failed to update task", zap.Uint("task_id", task.ID), zap.Error(err))
	}
}

func (r *Runner) history(ctx context.Context, task models.ScheduledTask, runAt time.Time, runtimeMs int, status string, attempt int, result map[string]interface{}) {
	entry := &models.ScheduledTaskHistory{
		ScheduledTaskID: task.ID,
		TaskName:        task.TaskName,
		RunAt:           runAt,
		Runtime:         runtimeMs,
		Status:          status,
		AttemptNumber:   attempt,
		Arguments:       task.Arguments,
		Result:          result,
	}
	if err := r.store.AddHistory(context.WithoutCancel(ctx), entry); err != nil {
		r.log.Error("Failed to record task history", zap.Uint("task_id", task.ID), zap.Error(err))
	}
}
