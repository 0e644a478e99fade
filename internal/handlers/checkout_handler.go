package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"ticketing_app_echo/internal/middleware"
	"ticketing_app_echo/internal/models"
	"ticketing_app_echo/internal/services"
	"ticketing_app_echo/internal/templates"
)

const eventCacheTTL = 30 * time.Second

type CheckoutHandler struct {
	checkout     *services.CheckoutService
	cache        *services.RedisCache
	log          *zap.Logger
	appURL       string
	currency     string
	defaultEvent services.EventInfo
}

func NewCheckoutHandler(checkout *services.CheckoutService, cache *services.RedisCache, log *zap.Logger, appURL, currency string, defaultEvent services.EventInfo) *CheckoutHandler {
	return &CheckoutHandler{
		checkout:     checkout,
		cache:        cache,
		log:          log,
		appURL:       appURL,
		currency:     currency,
		defaultEvent: defaultEvent,
	}
}

// GetEvent returns public event info, cached briefly in redis
func (h *CheckoutHandler) GetEvent(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	info, err := services.GetOrSet(h.cache, ctx, "event:"+id, eventCacheTTL, func() (EventInfoResponse, error) {
		event, err := h.checkout.GetEvent(ctx, id)
		if err != nil {
			return EventInfoResponse{}, err
		}
		return EventInfoResponse{
			ID:        event.ID,
			Title:     event.Title,
			Venue:     event.Venue,
			StartsAt:  event.StartsAt,
			Remaining: event.Remaining(),
			SoldOut:   event.Remaining() == 0,
		}, nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, info)
}

// CreateOrder validates the selection and stores a pending order
func (h *CheckoutHandler) CreateOrder(c echo.Context) error {
	order, err := h.createOrder(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, orderStatus(order))
}

// InitiatePaymentSession opens (or returns the existing) hosted payment page
func (h *CheckoutHandler) InitiatePaymentSession(c echo.Context) error {
	id := c.Param("id")
	result, err := h.checkout.InitiatePaymentSession(c.Request().Context(), id, h.callbackURL(id))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Checkout creates the order and opens its payment session in one call. When
// the session cannot be opened the order is still returned so the client can
// retry the session alone.
func (h *CheckoutHandler) Checkout(c echo.Context) error {
	order, err := h.createOrder(c)
	if err != nil {
		return err
	}

	session, err := h.checkout.InitiatePaymentSession(c.Request().Context(), order.ID, h.callbackURL(order.ID))
	if err != nil {
		var ce *services.CheckoutError
		if !errors.As(err, &ce) {
			return err
		}
		return c.JSON(middleware.StatusFor(ce.Code), map[string]interface{}{
			"order": orderStatus(order),
			"error": middleware.ErrorDetail{Code: string(ce.Code), Message: ce.Message, Retryable: ce.Retryable},
		})
	}

	return c.JSON(http.StatusCreated, CheckoutResponse{Order: orderStatus(order), Payment: session})
}

// GetOrderStatus returns the public status of an order
func (h *CheckoutHandler) GetOrderStatus(c echo.Context) error {
	order, err := h.checkout.GetOrder(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orderStatus(order))
}

// VerifyPayment is the synchronous verification path used after the buyer
// returns from the hosted checkout
func (h *CheckoutHandler) VerifyPayment(c echo.Context) error {
	reference := c.QueryParam("reference")
	if reference == "" {
		reference = c.QueryParam("order_id")
	}

	result, err := h.checkout.VerifyPayment(c.Request().Context(), reference)
	return reconciliationResponse(c, result, err)
}

// PaymentResultPage is the finish URL of the hosted checkout. It verifies a
// still pending order before rendering so the buyer sees the settled state.
func (h *CheckoutHandler) PaymentResultPage(c echo.Context) error {
	ctx := c.Request().Context()
	order, err := h.checkout.GetOrder(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	message := ""
	if order.PaymentStatus == models.PaymentStatusPending && order.Reference() != "" {
		if _, err := h.checkout.VerifyPayment(ctx, order.Reference()); err != nil {
			h.log.Warn("Verification on result page failed",
				zap.String("order_id", order.ID), zap.Error(err))
			if services.IsRetryable(err) {
				message = "We could not confirm your payment yet. Please refresh in a moment."
			}
		}
		if order, err = h.checkout.GetOrder(ctx, order.ID); err != nil {
			return err
		}
	}

	event := h.defaultEvent
	if order.EventID != nil {
		if e, err := h.checkout.GetEvent(ctx, *order.EventID); err == nil {
			event.Title = e.Title
		}
	}

	props := templates.PaymentResultProps{
		Title:       "Your order",
		EventTitle:  event.Title,
		OrderID:     order.ID,
		Status:      string(order.PaymentStatus),
		TicketID:    order.Ticket(),
		TicketType:  order.TicketType,
		Quantity:    order.TicketQuantity,
		AmountDue:   order.AmountDue,
		Currency:    h.currency,
		Message:     message,
		NeedsReview: order.NeedsReview,
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		props.Message = "Your ticket has been sent to " + order.AttendeeEmail + "."
	}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	return templates.PaymentResult(props).Render(ctx, c.Response())
}

func (h *CheckoutHandler) createOrder(c echo.Context) (*models.Order, error) {
	var req CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return nil, &services.CheckoutError{Code: services.CodeValidation, Message: "invalid request body"}
	}
	if err := c.Validate(&req); err != nil {
		return nil, err
	}
	if req.EventID != nil && *req.EventID == "" {
		req.EventID = nil
	}

	return h.checkout.CreateOrder(c.Request().Context(), services.CreateOrderInput{
		EventID:       req.EventID,
		AttendeeName:  req.AttendeeName,
		AttendeeEmail: req.Email,
		AttendeePhone: req.Phone,
		TicketType:    req.TicketType,
		Quantity:      req.Quantity,
		AmountDue:     req.AmountDue,
	})
}

func (h *CheckoutHandler) callbackURL(orderID string) string {
	return h.appURL + "/p/orders/" + orderID
}

// reconciliationResponse writes a reconciliation result. An amount mismatch
// carries both the flagged result and the error.
func reconciliationResponse(c echo.Context, result *services.ReconciliationResult, err error) error {
	if err == nil {
		return c.JSON(http.StatusOK, result)
	}
	var ce *services.CheckoutError
	if result != nil && errors.As(err, &ce) {
		return c.JSON(middleware.StatusFor(ce.Code), map[string]interface{}{
			"result": result,
			"error":  middleware.ErrorDetail{Code: string(ce.Code), Message: ce.Message, Retryable: ce.Retryable},
		})
	}
	return err
}
