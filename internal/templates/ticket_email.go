package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// QRContentID is the Content-ID of the inline QR image in ticket emails
const QRContentID = "ticket-qr"

type TicketEmailProps struct {
	AttendeeName string
	EventTitle   string
	Venue        string
	Date         string
	TicketID     string
	TicketType   string
	Quantity     int
	AmountPaid   int64
	Currency     string
	StatusURL    string
}

// TicketEmail is the HTML body of the ticket confirmation email. The QR code
// is expected as an inline attachment with Content-ID QRContentID.
func TicketEmail(props TicketEmailProps) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}

		h.raw(`<!DOCTYPE html><html><head><meta charset="UTF-8"><title>`)
		h.text(props.EventTitle)
		h.raw(`</title></head><body style="font-family:Arial,sans-serif;background:#f4f4f7;padding:24px;">`)
		h.raw(`<table width="100%" cellpadding="0" cellspacing="0" style="max-width:560px;margin:0 auto;background:#ffffff;border-radius:8px;">`)
		h.raw(`<tr><td style="padding:24px;">`)

		h.raw(`<h1 style="font-size:22px;margin:0 0 8px;">`)
		h.text(props.EventTitle)
		h.raw(`</h1>`)
		if props.Venue != "" || props.Date != "" {
			h.raw(`<p style="color:#555;margin:0 0 16px;">`)
			h.text(strings.Trim(props.Venue+" · "+props.Date, " ·"))
			h.raw(`</p>`)
		}

		h.raw(`<p>Hi `)
		h.text(props.AttendeeName)
		h.raw(`, your payment was received and your ticket is confirmed.</p>`)

		h.raw(`<p style="text-align:center;"><img src="cid:` + QRContentID + `" alt="Ticket QR code" width="256" height="256"></p>`)

		h.raw(`<table cellpadding="4" style="width:100%;border-collapse:collapse;">`)
		row(h, "Ticket ID", props.TicketID)
		row(h, "Ticket type", props.TicketType)
		row(h, "Quantity", fmt.Sprintf("%d", props.Quantity))
		row(h, "Amount paid", FormatAmount(props.AmountPaid, props.Currency))
		h.raw(`</table>`)

		h.raw(`<p style="color:#555;font-size:13px;">Present the QR code at the entrance. Each code admits the quantity shown above.</p>`)
		if props.StatusURL != "" {
			h.raw(`<p><a href="`)
			h.text(string(templ.URL(props.StatusURL)))
			h.raw(`">View your order</a></p>`)
		}

		h.raw(`</td></tr></table></body></html>`)
		return h.err
	})
}

func row(h *htmlWriter, label, value string) {
	h.raw(`<tr><td style="color:#777;">`)
	h.text(label)
	h.raw(`</td><td style="font-weight:bold;">`)
	h.text(value)
	h.raw(`</td></tr>`)
}

// FormatAmount renders minor units with thousands separators, e.g. "NGN 1,000,000"
func FormatAmount(amount int64, currency string) string {
	digits := fmt.Sprintf("%d", amount)
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := b.String()
	if neg {
		out = "-" + out
	}
	if currency != "" {
		out = currency + " " + out
	}
	return out
}

// TicketWhatsAppMessage is the plain text ticket summary sent over WhatsApp
func TicketWhatsAppMessage(props TicketEmailProps) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s, your ticket for *%s* is confirmed.\n\n", props.AttendeeName, props.EventTitle)
	fmt.Fprintf(&b, "Ticket ID: %s\n", props.TicketID)
	fmt.Fprintf(&b, "Type: %s x%d\n", props.TicketType, props.Quantity)
	fmt.Fprintf(&b, "Paid: %s\n", FormatAmount(props.AmountPaid, props.Currency))
	if props.Venue != "" {
		fmt.Fprintf(&b, "Venue: %s\n", props.Venue)
	}
	if props.Date != "" {
		fmt.Fprintf(&b, "Date: %s\n", props.Date)
	}
	b.WriteString("\nYour QR code has been sent to your email.")
	return b.String()
}
