package services

import (
	"context"
	"time"

	"ticketing_app_echo/internal/models"
)

// Store is the durable record store behind the checkout engine.
// Lookups that find nothing return ErrOrderNotFound / ErrEventNotFound;
// GetPaymentLog and ActiveSession return (nil, nil) instead.
type Store interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetOrderByReference(ctx context.Context, reference string) (*models.Order, error)
	FindUnreferencedPending(ctx context.Context, email string, amount int64) ([]models.Order, error)

	// AttachReference sets the gateway reference only while the order is pending
	// and has none. It reports whether this call set it.
	AttachReference(ctx context.Context, orderID, reference string) (bool, error)
	// MarkPaid logs the payment if absent and moves the order pending -> paid in
	// one transaction. It reports whether this call performed the transition.
	MarkPaid(ctx context.Context, t PaidTransition) (bool, error)
	// MarkFailed moves the order pending -> failed and reports whether it did.
	MarkFailed(ctx context.Context, orderID string) (bool, error)
	FlagForReview(ctx context.Context, orderID, reason string) error

	GetPaymentLog(ctx context.Context, reference string) (*models.PaymentLog, error)
	SaveSession(ctx context.Context, session *models.PaymentSession) error
	ActiveSession(ctx context.Context, orderID string) (*models.PaymentSession, error)
	RecordNotification(ctx context.Context, outcome NotificationOutcome) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
}

// OrderQueries are the read paths used by the admin API and background tasks
type OrderQueries interface {
	ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)
	ListFailedNotifications(ctx context.Context, maxAttempts, limit int) ([]models.Order, error)
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error)
}

// OrderFilter narrows ListOrders. Zero values mean no filter.
type OrderFilter struct {
	Status      models.PaymentStatus
	NeedsReview *bool
	Email       string
	Page        int
	PageSize    int
}

// PaidTransition is everything written by the pending -> paid step
type PaidTransition struct {
	OrderID       string
	Reference     string
	Amount        int64
	GatewayStatus string
	Source        ReportSource
	TicketID      string
	QRPayload     string
	PaidAt        time.Time
	EventID       *string
	Quantity      int
}

// NotificationOutcome is the result of one ticket delivery attempt
type NotificationOutcome struct {
	OrderID   string
	Channel   models.NotificationChannel
	Recipient string
	Err       error
	At        time.Time
}

// TransactionStatus is the gateway outcome normalized to three values
type TransactionStatus string

const (
	TransactionSuccess TransactionStatus = "success"
	TransactionPending TransactionStatus = "pending"
	TransactionFailed  TransactionStatus = "failed"
)

// PaymentGateway opens hosted payment sessions and reports authoritative status
type PaymentGateway interface {
	InitializeSession(ctx context.Context, req SessionRequest) (*Session, error)
	VerifyTransaction(ctx context.Context, reference string) (*GatewayTransaction, error)
}

type SessionRequest struct {
	OrderID      string
	AttendeeName string
	Email        string
	Phone        string
	TicketType   string
	Quantity     int
	UnitPrice    int64
	Amount       int64
	ItemName     string
	CallbackURL  string
}

// Session is a freshly opened hosted payment page
type Session struct {
	Gateway     models.PaymentGateway
	Reference   string
	Token       string
	RedirectURL string
	Request     []byte
	Response    []byte
}

// GatewayTransaction is the gateway's view of a transaction.
// OrderID comes from the session metadata, never from buyer input.
type GatewayTransaction struct {
	Reference     string
	Status        TransactionStatus
	RawStatus     string
	Amount        int64
	PaidAt        *time.Time
	OrderID       string
	CustomerEmail string
}

// Report converts a gateway answer into a verified PaymentReport
func (t *GatewayTransaction) Report(source ReportSource) PaymentReport {
	return PaymentReport{
		Reference:     t.Reference,
		Status:        t.Status,
		RawStatus:     t.RawStatus,
		Amount:        t.Amount,
		PaidAt:        t.PaidAt,
		OrderID:       t.OrderID,
		CustomerEmail: t.CustomerEmail,
		Source:        source,
		Verified:      true,
	}
}

// Notifier delivers a ticket to the buyer
type Notifier interface {
	SendTicket(ctx context.Context, n TicketNotification) error
}

type EventInfo struct {
	ID    string
	Title string
	Venue string
	Date  string
}

type TicketNotification struct {
	OrderID      string
	Recipient    string
	AttendeeName string
	Phone        string
	TicketID     string
	QRPayload    string
	TicketType   string
	Quantity     int
	AmountPaid   int64
	Event        EventInfo
}

const (
	EventOrderCreated = "order.created"
	EventOrderPaid    = "order.paid"
	EventOrderFailed  = "order.failed"
	EventOrderFlagged = "order.flagged"
)

// OrderEvent is published after each order lifecycle change
type OrderEvent struct {
	Type       string               `json:"type"`
	OrderID    string               `json:"order_id"`
	Reference  string               `json:"reference,omitempty"`
	Status     models.PaymentStatus `json:"status"`
	TicketID   string               `json:"ticket_id,omitempty"`
	Amount     int64                `json:"amount"`
	Reason     string               `json:"reason,omitempty"`
	OccurredAt time.Time            `json:"occurred_at"`
}

// EventPublisher emits order lifecycle events. Failures never affect checkout.
type EventPublisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

// Locker serializes work on one key across processes
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, OrderEvent) error { return nil }

type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string) (func(), error) { return func() {}, nil }
