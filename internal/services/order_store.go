package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"ticketing_app_echo/internal/models"
)

// OrderStore is the postgres-backed Store
type OrderStore struct {
	db *gorm.DB
}

func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db}
}

func (s *OrderStore) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return storeError(err)
	}
	return nil
}

func (s *OrderStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, storeError(err)
	}
	return &order, nil
}

func (s *OrderStore) GetOrderByReference(ctx context.Context, reference string) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Where("gateway_reference = ?", reference).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, storeError(err)
	}
	return &order, nil
}

func (s *OrderStore) FindUnreferencedPending(ctx context.Context, email string, amount int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Where("attendee_email = ? AND amount_due = ? AND payment_status = ? AND gateway_reference IS NULL",
			email, amount, models.PaymentStatusPending).
		Order("created_at desc").
		Limit(5).
		Find(&orders).Error
	if err != nil {
		return nil, storeError(err)
	}
	return orders, nil
}

func (s *OrderStore) AttachReference(ctx context.Context, orderID, reference string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status = ? AND gateway_reference IS NULL", orderID, models.PaymentStatusPending).
		Update("gateway_reference", reference)
	if res.Error != nil {
		return false, storeError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// MarkPaid inserts the payment log if absent and flips the order with a
// conditional update, all in one transaction. Losing the condition is not an
// error: it means another reconciliation already resolved the order.
func (s *OrderStore) MarkPaid(ctx context.Context, t PaidTransition) (bool, error) {
	applied := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Exec(
			`INSERT INTO payment_logs (reference, order_id, amount, status, source, paid_at, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT (reference) DO NOTHING`,
			t.Reference, t.OrderID, t.Amount, t.GatewayStatus, string(t.Source), t.PaidAt, time.Now(),
		).Error
		if err != nil {
			return err
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND payment_status = ?", t.OrderID, models.PaymentStatusPending).
			Updates(map[string]interface{}{
				"payment_status": models.PaymentStatusPaid,
				"ticket_id":      t.TicketID,
				"qr_payload":     t.QRPayload,
				"paid_at":        t.PaidAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true

		if t.EventID != nil {
			err := tx.Model(&models.Event{}).
				Where("id = ?", *t.EventID).
				UpdateColumn("tickets_sold", gorm.Expr("tickets_sold + ?", t.Quantity)).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, storeError(err)
	}
	return applied, nil
}

func (s *OrderStore) MarkFailed(ctx context.Context, orderID string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", orderID, models.PaymentStatusPending).
		Update("payment_status", models.PaymentStatusFailed)
	if res.Error != nil {
		return false, storeError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *OrderStore) FlagForReview(ctx context.Context, orderID, reason string) error {
	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{"needs_review": true, "review_reason": reason}).Error
	if err != nil {
		return storeError(err)
	}
	return nil
}

func (s *OrderStore) GetPaymentLog(ctx context.Context, reference string) (*models.PaymentLog, error) {
	var entry models.PaymentLog
	if err := s.db.WithContext(ctx).Where("reference = ?", reference).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storeError(err)
	}
	return &entry, nil
}

func (s *OrderStore) SaveSession(ctx context.Context, session *models.PaymentSession) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.PaymentSession{}).
			Where("order_id = ? AND is_active = ?", session.OrderID, true).
			Update("is_active", false).Error
		if err != nil {
			return err
		}
		return tx.Create(session).Error
	})
}

func (s *OrderStore) ActiveSession(ctx context.Context, orderID string) (*models.PaymentSession, error) {
	var session models.PaymentSession
	err := s.db.WithContext(ctx).
		Where("order_id = ? AND is_active = ?", orderID, true).
		Order("created_at desc").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storeError(err)
	}
	return &session, nil
}

// RecordNotification updates the order's delivery bookkeeping and appends a
// NotificationLog row for the attempt
func (s *OrderStore) RecordNotification(ctx context.Context, outcome NotificationOutcome) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"notification_attempts": gorm.Expr("notification_attempts + 1"),
		}
		entry := models.NotificationLog{
			OrderID:   outcome.OrderID,
			Channel:   outcome.Channel,
			Recipient: outcome.Recipient,
			CreatedAt: outcome.At,
		}
		if outcome.Err != nil {
			updates["notification_status"] = models.NotificationStatusFailed
			updates["last_notification_error"] = outcome.Err.Error()
			entry.Status = models.NotificationStatusFailed
			entry.Error = outcome.Err.Error()
		} else {
			updates["notification_status"] = models.NotificationStatusSent
			updates["last_notification_error"] = ""
			updates["notified_at"] = outcome.At
			entry.Status = models.NotificationStatusSent
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", outcome.OrderID).Updates(updates).Error; err != nil {
			return err
		}

		var attempts int
		if err := tx.Model(&models.Order{}).Where("id = ?", outcome.OrderID).
			Select("notification_attempts").Scan(&attempts).Error; err != nil {
			return err
		}
		entry.Attempt = attempts
		return tx.Create(&entry).Error
	})
}

func (s *OrderStore) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, storeError(err)
	}
	return &event, nil
}

// ListOrders returns one page of orders, newest first, and the total count
func (s *OrderStore) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})
	if filter.Status != "" {
		query = query.Where("payment_status = ?", filter.Status)
	}
	if filter.NeedsReview != nil {
		query = query.Where("needs_review = ?", *filter.NeedsReview)
	}
	if filter.Email != "" {
		query = query.Where("attendee_email = ?", filter.Email)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storeError(err)
	}

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}

	var orders []models.Order
	err := query.Order("created_at desc").Limit(pageSize).Offset((page - 1) * pageSize).Find(&orders).Error
	if err != nil {
		return nil, 0, storeError(err)
	}
	return orders, total, nil
}

func (s *OrderStore) ListFailedNotifications(ctx context.Context, maxAttempts, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Where("payment_status = ? AND notification_status = ? AND notification_attempts < ?",
			models.PaymentStatusPaid, models.NotificationStatusFailed, maxAttempts).
		Order("paid_at asc").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, storeError(err)
	}
	return orders, nil
}

func (s *OrderStore) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Where("payment_status = ? AND gateway_reference IS NOT NULL AND created_at < ?",
			models.PaymentStatusPending, olderThan).
		Order("created_at asc").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, storeError(err)
	}
	return orders, nil
}

// SaveCallback appends a received webhook body to the callback history
func (s *OrderStore) SaveCallback(ctx context.Context, entry *models.PaymentCallbackHistory) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return storeError(err)
	}
	return nil
}

// CompleteCallback records how a stored webhook was handled
func (s *OrderStore) CompleteCallback(ctx context.Context, id uint, outcome string, at time.Time) error {
	err := s.db.WithContext(ctx).Model(&models.PaymentCallbackHistory{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"outcome": outcome, "processed_at": at}).Error
	if err != nil {
		return storeError(err)
	}
	return nil
}

func storeError(err error) error {
	var ce *CheckoutError
	if errors.As(err, &ce) {
		return err
	}
	return newError(ErrStoreUnavailable, "", err)
}
