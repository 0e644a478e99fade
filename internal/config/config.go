package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the binaries read from the environment
type Config struct {
	Env         string
	Port        string
	AppURL      string
	DatabaseURL string
	RedisURL    string

	KafkaBrokers []string
	KafkaTopic   string

	Midtrans MidtransConfig
	SMTP     SMTPConfig
	Waha     WahaConfig

	FirebaseCredentialsPath string
	AdminEmails             []string
	RateLimitPerSecond      float64

	Checkout CheckoutConfig
	Event    EventConfig
}

type MidtransConfig struct {
	ServerKey    string
	ClientKey    string
	IsProduction bool
}

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

type WahaConfig struct {
	BaseURL     string
	APIKey      string
	Session     string
	CountryCode string
}

// CheckoutConfig carries the trusted price table and the reconciliation limits
type CheckoutConfig struct {
	TicketPrices            map[string]int64
	Currency                string
	MaxTicketsPerOrder      int
	GatewayTimeout          time.Duration
	NotifyTimeout           time.Duration
	ReconcileLockTTL        time.Duration
	AllowEmailFallback      bool
	PendingSweepAfter       time.Duration
	NotificationMaxAttempts int
}

// EventConfig describes the event for single-event deployments. When ID and
// Capacity are set the event row is seeded so capacity is enforced.
type EventConfig struct {
	ID       string
	Title    string
	Venue    string
	Date     string
	Capacity int
}

const defaultTicketPrices = "regular:500000,rockstar-earlybird:750000,legend-earlybird:2500000"

// Load reads .env (when present) and the process environment into a Config
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only
func FromEnv() (*Config, error) {
	cfg := &Config{
		Env:         getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		AppURL:      strings.TrimRight(getEnv("APP_URL", "http://localhost:8080"), "/"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "ticket-orders"),

		Midtrans: MidtransConfig{
			ServerKey:    os.Getenv("MIDTRANS_SERVER_KEY"),
			ClientKey:    os.Getenv("MIDTRANS_CLIENT_KEY"),
			IsProduction: os.Getenv("MIDTRANS_IS_PRODUCTION") == "true",
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     os.Getenv("SMTP_PORT"),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     os.Getenv("EMAIL_FROM"),
		},
		Waha: WahaConfig{
			BaseURL:     os.Getenv("WAHA_BASE_URL"),
			APIKey:      os.Getenv("WAHA_API_KEY"),
			Session:     getEnv("WAHA_SESSION", "default"),
			CountryCode: getEnv("WAHA_COUNTRY_CODE", "234"),
		},

		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase-service-account.json"),
		AdminEmails:             splitList(strings.ToLower(os.Getenv("ADMIN_EMAILS"))),

		Event: EventConfig{
			ID:    os.Getenv("EVENT_ID"),
			Title: getEnv("EVENT_TITLE", "Live Event"),
			Venue: os.Getenv("EVENT_VENUE"),
			Date:  os.Getenv("EVENT_DATE"),
		},
	}

	var err error
	if cfg.RateLimitPerSecond, err = getFloat("RATE_LIMIT_PER_SECOND", 20); err != nil {
		return nil, err
	}
	if cfg.Event.Capacity, err = getInt("EVENT_CAPACITY", 0); err != nil {
		return nil, err
	}

	checkout := CheckoutConfig{Currency: getEnv("CURRENCY", "NGN")}
	if checkout.TicketPrices, err = ParseTicketPrices(getEnv("TICKET_PRICES", defaultTicketPrices)); err != nil {
		return nil, err
	}
	if checkout.MaxTicketsPerOrder, err = getInt("MAX_TICKETS_PER_ORDER", 10); err != nil {
		return nil, err
	}
	if checkout.NotificationMaxAttempts, err = getInt("NOTIFICATION_MAX_ATTEMPTS", 5); err != nil {
		return nil, err
	}
	if checkout.GatewayTimeout, err = getDuration("GATEWAY_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if checkout.NotifyTimeout, err = getDuration("NOTIFY_TIMEOUT", 20*time.Second); err != nil {
		return nil, err
	}
	if checkout.ReconcileLockTTL, err = getDuration("RECONCILE_LOCK_TTL", 60*time.Second); err != nil {
		return nil, err
	}
	// the lock is held across one gateway query and one notification
	if floor := checkout.GatewayTimeout + checkout.NotifyTimeout + 5*time.Second; checkout.ReconcileLockTTL < floor {
		checkout.ReconcileLockTTL = floor
	}
	if checkout.PendingSweepAfter, err = getDuration("PENDING_SWEEP_AFTER", 15*time.Minute); err != nil {
		return nil, err
	}
	checkout.AllowEmailFallback = getEnv("ALLOW_EMAIL_FALLBACK", "true") == "true"
	cfg.Checkout = checkout

	return cfg, nil
}

// ParseTicketPrices parses "type:amount,type:amount" into a price table in minor units
func ParseTicketPrices(raw string) (map[string]int64, error) {
	prices := make(map[string]int64)
	for _, entry := range splitList(raw) {
		name, amountStr, ok := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid ticket price entry %q", entry)
		}
		amount, err := strconv.ParseInt(strings.TrimSpace(amountStr), 10, 64)
		if err != nil || amount <= 0 {
			return nil, fmt.Errorf("invalid amount for ticket type %q", name)
		}
		prices[name] = amount
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("TICKET_PRICES is empty")
	}
	return prices, nil
}

// IsAdmin reports whether the email is in the admin allow-list
func (c *Config) IsAdmin(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, admin := range c.AdminEmails {
		if admin == email {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
