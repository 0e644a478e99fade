package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"ticketing_app_echo/internal/app"
	"ticketing_app_echo/internal/config"
	"ticketing_app_echo/internal/handlers"
	"ticketing_app_echo/internal/logger"
	appMiddleware "ticketing_app_echo/internal/middleware"
	"ticketing_app_echo/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("Failed to start", zap.Error(err))
	}
	defer a.Close()

	// Initialize Firebase
	var verifier appMiddleware.TokenVerifier
	authClient, err := services.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		zl.Warn("Firebase initialization failed, admin API disabled", zap.Error(err))
	} else {
		verifier = authClient
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = appMiddleware.CustomErrorHandler(zl)
	e.Validator = handlers.NewRequestValidator()

	e.Use(middleware.RequestID())
	e.Use(logger.RequestLogger(zl))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	var health *handlers.HealthHandler
	if sqlDB, err := a.DB.DB(); err == nil {
		health = handlers.NewHealthHandler(sqlDB)
	} else {
		health = handlers.NewHealthHandler(nil)
	}

	router := &handlers.Router{
		Health:   health,
		Checkout: handlers.NewCheckoutHandler(a.Checkout, a.Cache, zl, cfg.AppURL, cfg.Checkout.Currency, app.EventInfo(cfg.Event)),
		Webhook:  handlers.NewWebhookHandler(a.Checkout, a.Midtrans, a.Store, zl),
		Admin:    handlers.NewAdminHandler(a.Checkout, a.Store, zl),
		PublicMiddleware: []echo.MiddlewareFunc{
			middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimitPerSecond))),
		},
		AdminMiddleware: []echo.MiddlewareFunc{
			appMiddleware.RequireAdmin(verifier, cfg.IsAdmin),
		},
	}
	router.Register(e)

	go func() {
		zl.Info("Server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("Server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("Graceful shutdown failed", zap.Error(err))
	}
}
