package services

import (
	"context"
	"fmt"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"ticketing_app_echo/internal/templates"
)

type MailSender interface {
	SendHTML(ctx context.Context, to []string, subject, html string, images ...InlineImage) error
}

type ChatSender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

type TicketNotifierOptions struct {
	Currency string
	AppURL   string
}

// TicketNotifier emails the ticket with its QR code and, when a phone number
// and chat sender are available, also sends a WhatsApp summary. Only the
// email decides success.
type TicketNotifier struct {
	mail MailSender
	chat ChatSender
	log  *zap.Logger
	opts TicketNotifierOptions
}

func NewTicketNotifier(mail MailSender, chat ChatSender, log *zap.Logger, opts TicketNotifierOptions) *TicketNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &TicketNotifier{mail: mail, chat: chat, log: log, opts: opts}
}

func (n *TicketNotifier) SendTicket(ctx context.Context, t TicketNotification) error {
	if t.Recipient == "" {
		return fmt.Errorf("ticket %s has no recipient", t.TicketID)
	}

	png, err := qrcode.Encode(t.QRPayload, qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to encode ticket QR code: %w", err)
	}

	props := templates.TicketEmailProps{
		AttendeeName: t.AttendeeName,
		EventTitle:   t.Event.Title,
		Venue:        t.Event.Venue,
		Date:         t.Event.Date,
		TicketID:     t.TicketID,
		TicketType:   t.TicketType,
		Quantity:     t.Quantity,
		AmountPaid:   t.AmountPaid,
		Currency:     n.opts.Currency,
	}
	if n.opts.AppURL != "" {
		props.StatusURL = fmt.Sprintf("%s/p/orders/%s", n.opts.AppURL, t.OrderID)
	}

	html, err := templates.RenderString(ctx, templates.TicketEmail(props))
	if err != nil {
		return fmt.Errorf("failed to render ticket email: %w", err)
	}

	subject := fmt.Sprintf("Your ticket for %s", t.Event.Title)
	err = n.mail.SendHTML(ctx, []string{t.Recipient}, subject, html, InlineImage{
		ContentID:   templates.QRContentID,
		Filename:    t.TicketID + ".png",
		ContentType: "image/png",
		Data:        png,
	})
	if err != nil {
		return err
	}

	if n.chat != nil && t.Phone != "" {
		if err := n.chat.SendMessage(ctx, t.Phone, templates.TicketWhatsAppMessage(props)); err != nil {
			n.log.Warn("whatsapp ticket message failed",
				zap.String("order_id", t.OrderID),
				zap.Error(err))
		}
	}
	return nil
}
