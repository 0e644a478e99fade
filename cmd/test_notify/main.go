package main

import (
	"context"
	"flag"
	"log"
	"time"

	"ticketing_app_echo/internal/app"
	"ticketing_app_echo/internal/config"
	"ticketing_app_echo/internal/logger"
	"ticketing_app_echo/internal/models"
	"ticketing_app_echo/internal/services"
)

// Sends a sample ticket through the configured SMTP and WAHA backends
func main() {
	email := flag.String("email", "", "Recipient email (mandatory)")
	phone := flag.String("phone", "", "Phone number for the WhatsApp copy (e.g. 08031234567)")
	name := flag.String("name", "Test Attendee", "Attendee name")
	flag.Parse()

	if *email == "" {
		log.Fatal("Please provide a recipient using -email flag")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	order := &models.Order{
		ID:             "00000000-0000-0000-0000-000000000000",
		AttendeeName:   *name,
		AttendeeEmail:  *email,
		TicketType:     "regular",
		TicketQuantity: 1,
		AmountDue:      cfg.Checkout.TicketPrices["regular"],
	}
	event := app.EventInfo(cfg.Event)
	ticketID := services.GenerateTicketID(order.ID)

	payload, err := services.GenerateVerificationPayload(order, event.Title, ticketID, time.Now())
	if err != nil {
		log.Fatalf("Failed to build QR payload: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Checkout.NotifyTimeout)
	defer cancel()

	log.Printf("Sending sample ticket %s to %s", ticketID, *email)
	err = app.NewNotifier(cfg, zl).SendTicket(ctx, services.TicketNotification{
		OrderID:      order.ID,
		Recipient:    *email,
		AttendeeName: *name,
		Phone:        *phone,
		TicketID:     ticketID,
		QRPayload:    payload,
		TicketType:   order.TicketType,
		Quantity:     order.TicketQuantity,
		AmountPaid:   order.AmountDue,
		Event:        event,
	})
	if err != nil {
		log.Fatalf("Failed to send ticket: %v", err)
	}

	log.Println("Ticket sent successfully!")
}
