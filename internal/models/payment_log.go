package models

import "time"

// PaymentLog is a snapshot of a verified gateway transaction, one row per reference
type PaymentLog struct {
	Reference string     `gorm:"type:varchar(100);primaryKey" json:"reference"`
	OrderID   string     `gorm:"type:uuid;not null;index" json:"order_id"`
	Amount    int64      `gorm:"not null" json:"amount"`
	Status    string     `gorm:"type:varchar(30);not null" json:"status"`
	Source    string     `gorm:"type:varchar(30)" json:"source"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
