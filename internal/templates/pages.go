package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

type PaymentResultProps struct {
	Title        string
	EventTitle   string
	OrderID      string
	Status       string
	TicketID     string
	TicketType   string
	Quantity     int
	AmountDue    int64
	Currency     string
	Message      string
	NeedsReview  bool
	RetryPayment bool
}

// PaymentResult is the public page buyers land on after the hosted checkout
func PaymentResult(props PaymentResultProps) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		pageHead(h, props.Title)

		h.raw(`<main class="card"><h1>`)
		h.text(props.EventTitle)
		h.raw(`</h1>`)

		h.raw(`<p class="status status-` + templ.EscapeString(props.Status) + `">`)
		switch props.Status {
		case "paid":
			h.raw(`Payment confirmed`)
		case "failed":
			h.raw(`Payment failed`)
		default:
			h.raw(`Waiting for payment confirmation`)
		}
		h.raw(`</p>`)

		if props.Message != "" {
			h.raw(`<p>`)
			h.text(props.Message)
			h.raw(`</p>`)
		}
		if props.NeedsReview {
			h.raw(`<p class="notice">Our team is reviewing this order and will contact you by email.</p>`)
		}

		h.raw(`<dl><dt>Order</dt><dd>`)
		h.text(props.OrderID)
		h.raw(`</dd><dt>Tickets</dt><dd>`)
		h.text(fmt.Sprintf("%s x%d", props.TicketType, props.Quantity))
		h.raw(`</dd><dt>Amount</dt><dd>`)
		h.text(FormatAmount(props.AmountDue, props.Currency))
		h.raw(`</dd>`)
		if props.TicketID != "" {
			h.raw(`<dt>Ticket ID</dt><dd>`)
			h.text(props.TicketID)
			h.raw(`</dd>`)
		}
		h.raw(`</dl>`)

		if props.Status == "pending" {
			h.raw(`<p><a href="">Refresh</a></p>`)
		}
		h.raw(`</main></body></html>`)
		return h.err
	})
}

type ErrorPageProps struct {
	Title        string
	ErrorTitle   string
	ErrorMessage string
}

// PublicErrorPage renders errors for the public HTML routes
func PublicErrorPage(props ErrorPageProps) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		pageHead(h, props.Title)
		h.raw(`<main class="card"><h1>`)
		h.text(props.ErrorTitle)
		h.raw(`</h1><p>`)
		h.text(props.ErrorMessage)
		h.raw(`</p></main></body></html>`)
		return h.err
	})
}

func pageHead(h *htmlWriter, title string) {
	h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="UTF-8">`)
	h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
	h.raw(`<title>`)
	h.text(title)
	h.raw(`</title><style>`)
	h.raw(`body{font-family:Arial,sans-serif;background:#f4f4f7;margin:0;padding:24px}`)
	h.raw(`.card{max-width:520px;margin:0 auto;background:#fff;border-radius:8px;padding:24px}`)
	h.raw(`.status{font-weight:bold}.status-paid{color:#1a7f37}.status-failed{color:#cf222e}`)
	h.raw(`.notice{background:#fff8c5;padding:8px;border-radius:4px}dt{color:#777}dd{margin:0 0 8px}`)
	h.raw(`</style></head><body>`)
}
