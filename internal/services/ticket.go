package services

import (
	"encoding/base32"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"ticketing_app_echo/internal/models"
)

const ticketIDPrefix = "TIX"

// GenerateTicketID builds a gate-presentable ticket id from an order-derived
// component, the issue time and 40 bits of crypto randomness. It is never called
// twice for the same order: the paid transition guards that.
func GenerateTicketID(orderID string) string {
	return ticketIDAt(orderID, time.Now(), uuid.New())
}

func ticketIDAt(orderID string, now time.Time, entropy uuid.UUID) string {
	prefix := strings.ToUpper(strings.ReplaceAll(orderID, "-", ""))
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	if prefix == "" {
		prefix = "ORDER"
	}

	stamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	// bytes 0..4 of a v4 uuid are fully random
	random := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(entropy[:5])

	return fmt.Sprintf("%s-%s-%s-%s", ticketIDPrefix, prefix, stamp, random)
}

// VerificationPayload is what the QR code on a ticket carries
type VerificationPayload struct {
	TicketID   string `json:"tid"`
	OrderID    string `json:"oid"`
	EventID    string `json:"eid,omitempty"`
	EventTitle string `json:"evt,omitempty"`
	Quantity   int    `json:"qty"`
	IssuedAt   string `json:"iat"`
}

// GenerateVerificationPayload encodes the ticket for a scannable code. The same
// inputs always produce the same string.
func GenerateVerificationPayload(order *models.Order, eventTitle, ticketID string, issuedAt time.Time) (string, error) {
	payload := VerificationPayload{
		TicketID:   ticketID,
		OrderID:    order.ID,
		EventTitle: eventTitle,
		Quantity:   order.TicketQuantity,
		IssuedAt:   issuedAt.UTC().Format(time.RFC3339),
	}
	if order.EventID != nil {
		payload.EventID = *order.EventID
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode verification payload: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeVerificationPayload reverses GenerateVerificationPayload for gate tooling
func DecodeVerificationPayload(encoded string) (*VerificationPayload, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid payload encoding: %w", err)
	}
	var payload VerificationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid payload body: %w", err)
	}
	if payload.TicketID == "" || payload.OrderID == "" {
		return nil, fmt.Errorf("payload is missing ticket or order id")
	}
	return &payload, nil
}
