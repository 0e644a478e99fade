package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"ticketing_app_echo/internal/models"
	"ticketing_app_echo/internal/services"
)

type AdminHandler struct {
	checkout *services.CheckoutService
	orders   services.OrderQueries
	log      *zap.Logger
}

func NewAdminHandler(checkout *services.CheckoutService, orders services.OrderQueries, log *zap.Logger) *AdminHandler {
	return &AdminHandler{checkout: checkout, orders: orders, log: log}
}

// ListOrders returns orders filtered by ?status=, ?needs_review=, ?email=
// with ?page= and ?page_size= pagination
func (h *AdminHandler) ListOrders(c echo.Context) error {
	filter := services.OrderFilter{
		Email:    c.QueryParam("email"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}

	if status := c.QueryParam("status"); status != "" {
		switch s := models.PaymentStatus(status); s {
		case models.PaymentStatusPending, models.PaymentStatusPaid, models.PaymentStatusFailed:
			filter.Status = s
		default:
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid status filter")
		}
	}
	if raw := c.QueryParam("needs_review"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid needs_review filter")
		}
		filter.NeedsReview = &v
	}

	orders, total, err := h.orders.ListOrders(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	if orders == nil {
		orders = []models.Order{}
	}

	return c.JSON(http.StatusOK, PaginatedOrders{
		Orders:   orders,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
}

// GetOrder returns the full order record
func (h *AdminHandler) GetOrder(c echo.Context) error {
	order, err := h.checkout.GetOrder(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

// ResendTicket delivers the issued ticket of a paid order again
func (h *AdminHandler) ResendTicket(c echo.Context) error {
	id := c.Param("id")
	result, err := h.checkout.ResendTicket(c.Request().Context(), id)
	if err != nil {
		return err
	}

	h.log.Info("Ticket resent by admin",
		zap.String("order_id", id),
		zap.String("admin", getStringFromContext(c, "userEmail")),
		zap.Bool("sent", result.NotificationSent))
	return c.JSON(http.StatusOK, result)
}

func queryInt(c echo.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.QueryParam(key))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
