package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ticketing_app_echo/internal/config"
	"ticketing_app_echo/internal/models"
	"ticketing_app_echo/internal/services"
)

// App holds the long-lived collaborators shared by the server and the worker
type App struct {
	Config   *config.Config
	Log      *zap.Logger
	DB       *gorm.DB
	Store    *services.OrderStore
	Cache    *services.RedisCache
	Midtrans *services.MidtransService
	Checkout *services.CheckoutService

	closers []func() error
}

// New connects the database, the optional redis and kafka backends and
// builds the checkout engine on top of them
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}

	db, err := services.InitDB(cfg.DatabaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := services.AutoMigrate(db, log); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	if err := seedEvent(ctx, db, cfg.Event); err != nil {
		return nil, fmt.Errorf("failed to seed event: %w", err)
	}

	a := &App{
		Config:   cfg,
		Log:      log,
		DB:       db,
		Store:    services.NewOrderStore(db),
		Midtrans: services.NewMidtransService(cfg.Midtrans),
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	deps := services.CheckoutDeps{
		Store:   a.Store,
		Gateway: a.Midtrans,
		Logger:  log,
		Options: services.CheckoutOptions{
			TicketPrices:       cfg.Checkout.TicketPrices,
			MaxTicketsPerOrder: cfg.Checkout.MaxTicketsPerOrder,
			GatewayTimeout:     cfg.Checkout.GatewayTimeout,
			NotifyTimeout:      cfg.Checkout.NotifyTimeout,
			AllowEmailFallback: cfg.Checkout.AllowEmailFallback,
			DefaultEvent:       EventInfo(cfg.Event),
		},
	}

	if cfg.RedisURL != "" {
		cache, err := services.NewRedisCache(cfg.RedisURL, log)
		if err != nil {
			// optional: the store CAS still guards reconciliation
			log.Warn("Redis unavailable, running without cache and reconciliation lock", zap.Error(err))
		} else {
			a.Cache = cache
			a.closers = append(a.closers, cache.Close)
			deps.Locker = services.NewRedisLocker(cache.Client(), cfg.Checkout.ReconcileLockTTL, log)
		}
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher := services.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		a.closers = append(a.closers, publisher.Close)
		deps.Publisher = publisher
	}

	deps.Notifier = NewNotifier(cfg, log)
	a.Checkout = services.NewCheckoutService(deps)
	return a, nil
}

// NewNotifier builds the ticket notifier. WhatsApp is only used when WAHA is configured.
func NewNotifier(cfg *config.Config, log *zap.Logger) *services.TicketNotifier {
	email := services.NewEmailService(cfg.SMTP)
	if !email.Configured() {
		log.Warn("SMTP is not configured, ticket emails will fail and be retried")
	}

	opts := services.TicketNotifierOptions{Currency: cfg.Checkout.Currency, AppURL: cfg.AppURL}
	if cfg.Waha.BaseURL == "" {
		return services.NewTicketNotifier(email, nil, log, opts)
	}
	return services.NewTicketNotifier(email, services.NewWahaService(cfg.Waha), log, opts)
}

// EventInfo is the display info of the configured event
func EventInfo(e config.EventConfig) services.EventInfo {
	return services.EventInfo{ID: e.ID, Title: e.Title, Venue: e.Venue, Date: e.Date}
}

func seedEvent(ctx context.Context, db *gorm.DB, e config.EventConfig) error {
	if e.ID == "" || e.Capacity <= 0 {
		return nil
	}
	event := &models.Event{
		ID:           e.ID,
		Title:        e.Title,
		Venue:        e.Venue,
		TotalTickets: e.Capacity,
	}
	if startsAt, err := time.Parse(time.RFC3339, e.Date); err == nil {
		event.StartsAt = startsAt
	} else if startsAt, err := time.Parse("2006-01-02", e.Date); err == nil {
		event.StartsAt = startsAt
	}
	return services.SeedEvent(ctx, db, event)
}

// Close releases the backends in reverse order of creation
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warn("Failed to close resource", zap.Error(err))
		}
	}
}
