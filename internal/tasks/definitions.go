package tasks

import (
	"context"
	"fmt"
	"time"

	"ticketing_app_echo/internal/models"
)

const defaultSweepAge = 15 * time.Minute

// DefineTasks registers all available tasks
func DefineTasks(r *Registry) {
	r.Register(LogInfoTask.TaskID(), LogInfoTask.HandleExecution)
	r.Register(ResendTicketsTask.TaskID(), ResendTicketsTask.HandleExecution)
	r.Register(SweepPendingTask.TaskID(), SweepPendingTask.HandleExecution)
}

// RecurringTask is a task the worker keeps scheduled on its own
type RecurringTask struct {
	Name       string
	Rule       string // RFC 5545 RRULE
	MaxAttempt int
}

var DefaultRecurring = []RecurringTask{
	{Name: "sweep_pending_orders", Rule: "FREQ=MINUTELY;INTERVAL=5", MaxAttempt: 1},
	{Name: "resend_ticket_notifications", Rule: "FREQ=MINUTELY;INTERVAL=5", MaxAttempt: 1},
}

// EnsureRecurring creates each recurring task that has no active row yet
func EnsureRecurring(ctx context.Context, store TaskStore, recurring []RecurringTask, now time.Time) (int, error) {
	created := 0
	for _, rt := range recurring {
		exists, err := store.HasActive(ctx, rt.Name)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}

		rule := rt.Rule
		task, err := BuildScheduledTask(rt.Name, map[string]interface{}{}, now, &rule, models.ScheduledTaskTypeRecurring, rt.MaxAttempt)
		if err != nil {
			return created, err
		}
		if err := store.Create(ctx, task); err != nil {
			return created, fmt.Errorf("failed to schedule %s: %w", rt.Name, err)
		}
		created++
	}
	return created, nil
}
