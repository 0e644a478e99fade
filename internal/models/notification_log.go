package models

import "time"

type NotificationChannel string

const (
	NotificationChannelEmail    NotificationChannel = "email"
	NotificationChannelWhatsapp NotificationChannel = "whatsapp"
)

// NotificationLog records one ticket delivery attempt
type NotificationLog struct {
	ID        uint                `gorm:"primaryKey" json:"id"`
	OrderID   string              `gorm:"type:uuid;not null;index" json:"order_id"`
	Channel   NotificationChannel `gorm:"type:varchar(20);not null" json:"channel"`
	Recipient string              `gorm:"type:varchar(255)" json:"recipient"`
	Status    NotificationStatus  `gorm:"type:varchar(20);not null" json:"status"`
	Error     string              `gorm:"type:text" json:"error,omitempty"`
	Attempt   int                 `json:"attempt"`
	CreatedAt time.Time           `json:"created_at"`
}
