package handlers

import (
	"github.com/labstack/echo/v4"
)

// Router bundles the handlers and the group middleware
type Router struct {
	Health   *HealthHandler
	Checkout *CheckoutHandler
	Webhook  *WebhookHandler
	Admin    *AdminHandler

	// PublicMiddleware wraps buyer-facing routes (rate limiting)
	PublicMiddleware []echo.MiddlewareFunc
	// AdminMiddleware guards the admin API
	AdminMiddleware []echo.MiddlewareFunc
}

func (r *Router) Register(e *echo.Echo) {
	e.GET("/healthz", r.Health.Health)

	api := e.Group("/api", r.PublicMiddleware...)
	api.GET("/events/:id", r.Checkout.GetEvent)
	api.POST("/orders", r.Checkout.CreateOrder)
	api.GET("/orders/:id", r.Checkout.GetOrderStatus)
	api.POST("/orders/:id/payment-session", r.Checkout.InitiatePaymentSession)
	api.POST("/checkout", r.Checkout.Checkout)
	api.GET("/payments/verify", r.Checkout.VerifyPayment)

	// gateway callbacks are not rate limited with the buyer routes
	e.POST("/api/payments/webhook", r.Webhook.Midtrans)

	public := e.Group("/p", r.PublicMiddleware...)
	public.GET("/orders/:id", r.Checkout.PaymentResultPage)

	admin := e.Group("/admin", r.AdminMiddleware...)
	admin.GET("/orders", r.Admin.ListOrders)
	admin.GET("/orders/:id", r.Admin.GetOrder)
	admin.POST("/orders/:id/resend", r.Admin.ResendTicket)
}
