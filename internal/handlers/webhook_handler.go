package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"ticketing_app_echo/internal/models"
	"ticketing_app_echo/internal/services"
)

const maxWebhookBody = 1 << 20

// NotificationParser decodes a webhook body and rejects bad signatures
type NotificationParser interface {
	ParseNotification(body []byte) (*services.MidtransNotification, error)
}

// CallbackLog keeps the raw webhook history
type CallbackLog interface {
	SaveCallback(ctx context.Context, entry *models.PaymentCallbackHistory) error
	CompleteCallback(ctx context.Context, id uint, outcome string, at time.Time) error
}

type WebhookHandler struct {
	checkout  *services.CheckoutService
	parser    NotificationParser
	callbacks CallbackLog
	log       *zap.Logger
}

func NewWebhookHandler(checkout *services.CheckoutService, parser NotificationParser, callbacks CallbackLog, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{checkout: checkout, parser: parser, callbacks: callbacks, log: log}
}

// Midtrans receives HTTP notifications. The signature is checked before the
// engine sees anything, and the engine re-queries the gateway anyway.
//
// Responses: 200 once the notification is handled (including flagged and
// already processed), 401 for a bad signature, 404 for an unknown reference
// and 503 for retryable failures so Midtrans delivers again.
func (h *WebhookHandler) Midtrans(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read body")
	}

	notification, parseErr := h.parser.ParseNotification(body)

	entry := &models.PaymentCallbackHistory{
		PaymentGateway: models.PaymentGatewayMidtrans,
		SignatureValid: parseErr == nil,
	}
	if notification != nil {
		entry.Reference = notification.OrderID
	}
	if parseErr == nil || services.CodeOf(parseErr) == services.CodeInvalidSignature {
		entry.Metadata = datatypes.JSON(body)
	}
	if err := h.callbacks.SaveCallback(ctx, entry); err != nil {
		h.log.Error("Failed to store webhook payload", zap.Error(err))
	}

	if parseErr != nil {
		h.complete(ctx, entry, string(services.CodeOf(parseErr)))
		h.log.Warn("Rejected payment notification",
			zap.String("reference", entry.Reference), zap.Error(parseErr))
		return parseErr
	}

	result, err := h.checkout.HandleWebhookNotification(ctx, notification.Report())
	if err != nil {
		h.complete(ctx, entry, string(services.CodeOf(err)))

		switch {
		case errors.Is(err, services.ErrAmountMismatch), errors.Is(err, services.ErrInvalidState):
			// flagged for review; redelivery would not change anything
			return c.JSON(http.StatusOK, map[string]interface{}{"received": true, "code": services.CodeOf(err)})
		default:
			return err
		}
	}

	h.complete(ctx, entry, string(result.Outcome))
	return c.JSON(http.StatusOK, map[string]interface{}{
		"received": true,
		"outcome":  result.Outcome,
		"status":   result.Status,
	})
}

func (h *WebhookHandler) complete(ctx context.Context, entry *models.PaymentCallbackHistory, outcome string) {
	if entry.ID == 0 {
		return
	}
	if err := h.callbacks.CompleteCallback(context.WithoutCancel(ctx), entry.ID, outcome, time.Now()); err != nil {
		h.log.Warn("Failed to record webhook outcome", zap.Uint("callback_id", entry.ID), zap.Error(err))
	}
}
