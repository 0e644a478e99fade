package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentStatus is the payment lifecycle state of an order
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusFailed
}

// NotificationStatus tracks ticket delivery separately from payment truth
type NotificationStatus string

const (
	NotificationStatusNone   NotificationStatus = "none"
	NotificationStatusSent   NotificationStatus = "sent"
	NotificationStatusFailed NotificationStatus = "failed"
)

// Order is one buyer's ticket purchase and its payment lifecycle.
// TicketID, QRPayload and PaidAt are set together, only on pending -> paid.
// GatewayReference never changes once set.
type Order struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	EventID        *string `gorm:"type:varchar(64);index" json:"event_id,omitempty"`
	AttendeeName   string  `gorm:"type:varchar(255);not null" json:"attendee_name"`
	AttendeeEmail  string  `gorm:"type:varchar(255);not null;index" json:"attendee_email"`
	AttendeePhone  string  `gorm:"type:varchar(50)" json:"attendee_phone,omitempty"`
	TicketType     string  `gorm:"type:varchar(50);not null" json:"ticket_type"`
	TicketQuantity int     `gorm:"not null" json:"ticket_quantity"`
	UnitPrice      int64   `gorm:"not null" json:"unit_price"`
	AmountDue      int64   `gorm:"not null" json:"amount_due"` // minor currency units

	PaymentStatus    PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"payment_status"`
	GatewayReference *string       `gorm:"type:varchar(100);uniqueIndex" json:"gateway_reference,omitempty"`
	TicketID         *string       `gorm:"type:varchar(64);uniqueIndex" json:"ticket_id,omitempty"`
	QRPayload        *string       `gorm:"type:text" json:"qr_payload,omitempty"`
	PaidAt           *time.Time    `json:"paid_at,omitempty"`

	NeedsReview  bool   `gorm:"not null;default:false;index" json:"needs_review"`
	ReviewReason string `gorm:"type:text" json:"review_reason,omitempty"`

	NotificationStatus    NotificationStatus `gorm:"type:varchar(20);not null;default:'none'" json:"notification_status"`
	NotificationAttempts  int                `gorm:"not null;default:0" json:"notification_attempts"`
	LastNotificationError string             `gorm:"type:text" json:"last_notification_error,omitempty"`
	NotifiedAt            *time.Time         `json:"notified_at,omitempty"`
}

// BeforeCreate assigns an id when the caller did not
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// Reference returns the gateway reference or an empty string
func (o *Order) Reference() string {
	if o.GatewayReference == nil {
		return ""
	}
	return *o.GatewayReference
}

// Ticket returns the issued ticket id or an empty string
func (o *Order) Ticket() string {
	if o.TicketID == nil {
		return ""
	}
	return *o.TicketID
}
