package models

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentSession keeps the hosted checkout session opened for an order
type PaymentSession struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	OrderID          string         `gorm:"type:uuid;not null;index" json:"order_id"`
	PaymentGateway   PaymentGateway `gorm:"type:varchar(50);not null" json:"payment_gateway"`
	Reference        string         `gorm:"type:varchar(100);uniqueIndex" json:"reference"`
	Token            string         `gorm:"type:varchar(255)" json:"token"`
	RedirectURL      string         `gorm:"type:text" json:"redirect_url"`
	IsActive         bool           `gorm:"default:true" json:"is_active"`
	RequestMetadata  datatypes.JSON `json:"request_metadata"`
	ResponseMetadata datatypes.JSON `json:"response_metadata"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}
