// Package checkouttest provides in-memory collaborators for exercising the
// checkout engine without a database, gateway or mail server.
package checkouttest

import (
	"context"
	"sort"
	"sync"
	"time"

	"ticketing_app_echo/internal/models"
	"ticketing_app_echo/internal/services"
)

// MemoryStore is a mutex-guarded services.Store with the same conditional
// update semantics as the SQL store.
type MemoryStore struct {
	mu            sync.Mutex
	orders        map[string]models.Order
	logs          map[string]models.PaymentLog
	sessions      []models.PaymentSession
	events        map[string]models.Event
	notifications []models.NotificationLog
	callbacks     []models.PaymentCallbackHistory

	MarkPaidCalls int
	// FailWith, when set, is returned by every write
	FailWith error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[string]models.Order),
		logs:   make(map[string]models.PaymentLog),
		events: make(map[string]models.Event),
	}
}

// AddEvent seeds an event
func (m *MemoryStore) AddEvent(e models.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[e.ID] = e
}

// PutOrder inserts or replaces an order as-is
func (m *MemoryStore) PutOrder(o models.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
}

// Order returns a copy of the stored order
func (m *MemoryStore) Order(id string) (models.Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	return o, ok
}

func (m *MemoryStore) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *MemoryStore) PaymentLogs() []models.PaymentLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.PaymentLog, 0, len(m.logs))
	for _, l := range m.logs {
		out = append(out, l)
	}
	return out
}

func (m *MemoryStore) NotificationLogs() []models.NotificationLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.NotificationLog(nil), m.notifications...)
}

// Callbacks returns the stored webhook history
func (m *MemoryStore) Callbacks() []models.PaymentCallbackHistory {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.PaymentCallbackHistory(nil), m.callbacks...)
}

func (m *MemoryStore) Event(id string) (models.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	return e, ok
}

func (m *MemoryStore) CreateOrder(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	m.orders[order.ID] = *order
	return nil
}

func (m *MemoryStore) GetOrder(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, services.ErrOrderNotFound
	}
	return &o, nil
}

func (m *MemoryStore) GetOrderByReference(_ context.Context, reference string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.GatewayReference != nil && *o.GatewayReference == reference {
			found := o
			return &found, nil
		}
	}
	return nil, services.ErrOrderNotFound
}

func (m *MemoryStore) FindUnreferencedPending(_ context.Context, email string, amount int64) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.AttendeeEmail == email && o.AmountDue == amount &&
			o.PaymentStatus == models.PaymentStatusPending && o.GatewayReference == nil {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MemoryStore) AttachReference(_ context.Context, orderID, reference string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return false, m.FailWith
	}
	o, ok := m.orders[orderID]
	if !ok || o.PaymentStatus != models.PaymentStatusPending || o.GatewayReference != nil {
		return false, nil
	}
	for _, other := range m.orders {
		if other.GatewayReference != nil && *other.GatewayReference == reference {
			return false, nil
		}
	}
	ref := reference
	o.GatewayReference = &ref
	m.orders[orderID] = o
	return true, nil
}

func (m *MemoryStore) MarkPaid(_ context.Context, t services.PaidTransition) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MarkPaidCalls++
	if m.FailWith != nil {
		return false, m.FailWith
	}

	if _, exists := m.logs[t.Reference]; !exists {
		paidAt := t.PaidAt
		m.logs[t.Reference] = models.PaymentLog{
			Reference: t.Reference,
			OrderID:   t.OrderID,
			Amount:    t.Amount,
			Status:    t.GatewayStatus,
			Source:    string(t.Source),
			PaidAt:    &paidAt,
			CreatedAt: time.Now(),
		}
	}

	o, ok := m.orders[t.OrderID]
	if !ok || o.PaymentStatus != models.PaymentStatusPending {
		return false, nil
	}
	ticketID, payload, paidAt := t.TicketID, t.QRPayload, t.PaidAt
	o.PaymentStatus = models.PaymentStatusPaid
	o.TicketID = &ticketID
	o.QRPayload = &payload
	o.PaidAt = &paidAt
	m.orders[t.OrderID] = o

	if t.EventID != nil {
		if e, ok := m.events[*t.EventID]; ok {
			e.TicketsSold += t.Quantity
			m.events[e.ID] = e
		}
	}
	return true, nil
}

func (m *MemoryStore) MarkFailed(_ context.Context, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return false, m.FailWith
	}
	o, ok := m.orders[orderID]
	if !ok || o.PaymentStatus != models.PaymentStatusPending {
		return false, nil
	}
	o.PaymentStatus = models.PaymentStatusFailed
	m.orders[orderID] = o
	return true, nil
}

func (m *MemoryStore) FlagForReview(_ context.Context, orderID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return services.ErrOrderNotFound
	}
	o.NeedsReview = true
	o.ReviewReason = reason
	m.orders[orderID] = o
	return nil
}

func (m *MemoryStore) GetPaymentLog(_ context.Context, reference string) (*models.PaymentLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.logs[reference]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (m *MemoryStore) SaveSession(_ context.Context, session *models.PaymentSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session.ID = uint(len(m.sessions) + 1)
	m.sessions = append(m.sessions, *session)
	return nil
}

func (m *MemoryStore) ActiveSession(_ context.Context, orderID string) (*models.PaymentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sessions) - 1; i >= 0; i-- {
		if m.sessions[i].OrderID == orderID && m.sessions[i].IsActive {
			s := m.sessions[i]
			return &s, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) RecordNotification(_ context.Context, outcome services.NotificationOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[outcome.OrderID]
	if !ok {
		return services.ErrOrderNotFound
	}
	o.NotificationAttempts++
	entry := models.NotificationLog{
		OrderID:   outcome.OrderID,
		Channel:   outcome.Channel,
		Recipient: outcome.Recipient,
		Attempt:   o.NotificationAttempts,
		CreatedAt: outcome.At,
	}
	if outcome.Err != nil {
		o.NotificationStatus = models.NotificationStatusFailed
		o.LastNotificationError = outcome.Err.Error()
		entry.Status = models.NotificationStatusFailed
		entry.Error = outcome.Err.Error()
	} else {
		at := outcome.At
		o.NotificationStatus = models.NotificationStatusSent
		o.LastNotificationError = ""
		o.NotifiedAt = &at
		entry.Status = models.NotificationStatusSent
	}
	m.orders[o.ID] = o
	m.notifications = append(m.notifications, entry)
	return nil
}

func (m *MemoryStore) GetEvent(_ context.Context, id string) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, services.ErrEventNotFound
	}
	return &e, nil
}

func (m *MemoryStore) ListOrders(_ context.Context, filter services.OrderFilter) ([]models.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if filter.Status != "" && o.PaymentStatus != filter.Status {
			continue
		}
		if filter.NeedsReview != nil && o.NeedsReview != *filter.NeedsReview {
			continue
		}
		if filter.Email != "" && o.AttendeeEmail != filter.Email {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * filter.PageSize
		if start >= len(out) {
			return nil, total, nil
		}
		end := start + filter.PageSize
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, total, nil
}

func (m *MemoryStore) ListFailedNotifications(_ context.Context, maxAttempts, limit int) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.PaymentStatus == models.PaymentStatusPaid &&
			o.NotificationStatus == models.NotificationStatusFailed &&
			o.NotificationAttempts < maxAttempts {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) ListStalePending(_ context.Context, olderThan time.Time, limit int) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.PaymentStatus == models.PaymentStatusPending && o.GatewayReference != nil && o.CreatedAt.Before(olderThan) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) SaveCallback(_ context.Context, entry *models.PaymentCallbackHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	entry.ID = uint(len(m.callbacks) + 1)
	entry.CreatedAt = time.Now()
	m.callbacks = append(m.callbacks, *entry)
	return nil
}

func (m *MemoryStore) CompleteCallback(_ context.Context, id uint, outcome string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.callbacks {
		if m.callbacks[i].ID == id {
			m.callbacks[i].Outcome = outcome
			m.callbacks[i].ProcessedAt = &at
		}
	}
	return nil
}
