package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ticketing_app_echo/internal/models"
	"ticketing_app_echo/internal/services"
)

// Resender redelivers the ticket of a paid order
type Resender interface {
	ResendTicket(ctx context.Context, orderID string) (*services.ReconciliationResult, error)
}

// Sweeper re-queries the gateway for a pending order's reference
type Sweeper interface {
	SweepPayment(ctx context.Context, reference string) (*services.ReconciliationResult, error)
}

// Deps are the collaborators handed to every task handler
type Deps struct {
	Resender Resender
	Sweeper  Sweeper
	Orders   services.OrderQueries
	Logger   *zap.Logger

	NotificationMaxAttempts int
	PendingSweepAfter       time.Duration
	BatchSize               int
	Now                     func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Deps) batchSize(args map[string]interface{}) int {
	if v, ok := args["limit"].(float64); ok && v > 0 {
		return int(v)
	}
	if v, ok := args["limit"].(int); ok && v > 0 {
		return v
	}
	if d.BatchSize > 0 {
		return d.BatchSize
	}
	return 50
}

// BuildScheduledTask is a helper to build ScheduledTask records generically
func BuildScheduledTask(taskName string, args interface{}, due time.Time, recurringInterval *string, taskType models.ScheduledTaskType, maxAttempt int) (*models.ScheduledTask, error) {
	argsBytes, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal args: %w", err)
	}

	var mapArgs map[string]interface{}
	if err := json.Unmarshal(argsBytes, &mapArgs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into map: %w", err)
	}

	return &models.ScheduledTask{
		TaskName:          taskName,
		Arguments:         mapArgs,
		Due:               due,
		RecurringInterval: recurringInterval,
		Status:            models.ScheduledTaskStatusActive,
		TaskType:          taskType,
		MaxAttempt:        maxAttempt,
	}, nil
}
