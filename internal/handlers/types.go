package handlers

import (
	"time"

	"github.com/labstack/echo/v4"

	"ticketing_app_echo/internal/models"
)

// CreateOrderRequest is the buyer's ticket selection. AmountDue is the total
// the client displayed and is checked against the trusted price table.
type CreateOrderRequest struct {
	EventID      *string `json:"event_id"`
	AttendeeName string  `json:"attendee_name" validate:"required,max=255"`
	Email        string  `json:"email" validate:"required,email,max=255"`
	Phone        string  `json:"phone" validate:"omitempty,max=50"`
	TicketType   string  `json:"ticket_type" validate:"required,max=50"`
	Quantity     int     `json:"quantity"`
	AmountDue    int64   `json:"amount_due"`
}

// OrderStatusResponse is the public view of an order
type OrderStatusResponse struct {
	OrderID            string                    `json:"order_id"`
	Status             models.PaymentStatus      `json:"status"`
	TicketType         string                    `json:"ticket_type"`
	Quantity           int                       `json:"quantity"`
	AmountDue          int64                     `json:"amount_due"`
	TicketID           string                    `json:"ticket_id,omitempty"`
	PaidAt             *time.Time                `json:"paid_at,omitempty"`
	NotificationStatus models.NotificationStatus `json:"notification_status"`
}

func orderStatus(o *models.Order) OrderStatusResponse {
	return OrderStatusResponse{
		OrderID:            o.ID,
		Status:             o.PaymentStatus,
		TicketType:         o.TicketType,
		Quantity:           o.TicketQuantity,
		AmountDue:          o.AmountDue,
		TicketID:           o.Ticket(),
		PaidAt:             o.PaidAt,
		NotificationStatus: o.NotificationStatus,
	}
}

// EventInfoResponse is the cached public view of an event
type EventInfoResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Venue     string    `json:"venue"`
	StartsAt  time.Time `json:"starts_at"`
	Remaining int       `json:"remaining"`
	SoldOut   bool      `json:"sold_out"`
}

type CheckoutResponse struct {
	Order   OrderStatusResponse `json:"order"`
	Payment interface{}         `json:"payment"`
}

// PaginatedOrders is the admin list response
type PaginatedOrders struct {
	Orders   []models.Order `json:"orders"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

func getStringFromContext(c echo.Context, key string) string {
	if val := c.Get(key); val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}
