package tasks

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ticketing_app_echo/internal/models"
)

// ResendTicketsTaskDef retries ticket delivery for paid orders whose last
// notification failed. Payment state is never touched.
type ResendTicketsTaskDef struct{}

func (t *ResendTicketsTaskDef) TaskID() string {
	return "resend_ticket_notifications"
}

func (t *ResendTicketsTaskDef) HandleExecution(ctx context.Context, deps *Deps, task models.ScheduledTask) (map[string]interface{}, error) {
	maxAttempts := deps.NotificationMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	orders, err := deps.Orders.ListFailedNotifications(ctx, maxAttempts, deps.batchSize(task.Arguments))
	if err != nil {
		return nil, fmt.Errorf("failed to list undelivered tickets: %w", err)
	}

	sent, failed := 0, 0
	var failures []string
	for _, order := range orders {
		if ctx.Err() != nil {
			break
		}
		res, err := deps.Resender.ResendTicket(ctx, order.ID)
		if err == nil && !res.NotificationSent {
			err = errors.New(res.NotificationError)
		}
		if err != nil {
			failed++
			reason := err.Error()
			failures = append(failures, fmt.Sprintf("%s: %s", order.ID, reason))
			deps.Logger.Warn("Ticket redelivery failed",
				zap.String("order_id", order.ID),
				zap.Int("attempts", order.NotificationAttempts+1),
				zap.String("error", reason))
			continue
		}
		sent++
	}

	result := map[string]interface{}{
		"total":   len(orders),
		"success": sent,
		"failure": failed,
	}
	if len(failures) > 0 {
		result["errors"] = failures
	}
	return result, nil
}

var ResendTicketsTask = &ResendTicketsTaskDef{}

// SweepPendingTaskDef re-verifies pending orders that have a gateway
// reference but never received a decisive report.
type SweepPendingTaskDef struct{}

func (t *SweepPendingTaskDef) TaskID() string {
	return "sweep_pending_orders"
}

func (t *SweepPendingTaskDef) HandleExecution(ctx context.Context, deps *Deps, task models.ScheduledTask) (map[string]interface{}, error) {
	age := deps.PendingSweepAfter
	if age <= 0 {
		age = defaultSweepAge
	}

	orders, err := deps.Orders.ListStalePending(ctx, deps.now().Add(-age), deps.batchSize(task.Arguments))
	if err != nil {
		return nil, fmt.Errorf("failed to list stale orders: %w", err)
	}

	outcomes := map[string]int{}
	errorCount := 0
	for _, order := range orders {
		if ctx.Err() != nil {
			break
		}
		res, err := deps.Sweeper.SweepPayment(ctx, order.Reference())
		if err != nil {
			errorCount++
			deps.Logger.Warn("Sweep could not settle order",
				zap.String("order_id", order.ID),
				zap.String("reference", order.Reference()),
				zap.Error(err))
			continue
		}
		outcomes[string(res.Status)]++
	}

	return map[string]interface{}{
		"total":   len(orders),
		"paid":    outcomes[string(models.PaymentStatusPaid)],
		"failed":  outcomes[string(models.PaymentStatusFailed)],
		"pending": outcomes[string(models.PaymentStatusPending)],
		"errors":  errorCount,
	}, nil
}

var SweepPendingTask = &SweepPendingTaskDef{}
