package checkouttest

import (
	"context"
	"fmt"
	"sync"

	"ticketing_app_echo/internal/models"
	"ticketing_app_echo/internal/services"
)

// FakeGateway is a scriptable services.PaymentGateway
type FakeGateway struct {
	mu           sync.Mutex
	transactions map[string]services.GatewayTransaction
	references   []string
	issued       int

	InitErr   error
	VerifyErr error

	InitCalls   int
	VerifyCalls int
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{transactions: make(map[string]services.GatewayTransaction)}
}

// QueueReference sets the references handed out by the next sessions, in order
func (g *FakeGateway) QueueReference(refs ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.references = append(g.references, refs...)
}

// SetTransaction sets what VerifyTransaction reports for txn.Reference
func (g *FakeGateway) SetTransaction(txn services.GatewayTransaction) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transactions[txn.Reference] = txn
}

func (g *FakeGateway) Calls() (initCalls, verifyCalls int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.InitCalls, g.VerifyCalls
}

func (g *FakeGateway) InitializeSession(ctx context.Context, req services.SessionRequest) (*services.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.InitCalls++
	if g.InitErr != nil {
		return nil, g.InitErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ref string
	if len(g.references) > 0 {
		ref, g.references = g.references[0], g.references[1:]
	} else {
		g.issued++
		ref = fmt.Sprintf("ref_%d", g.issued)
	}
	return &services.Session{
		Gateway:     models.PaymentGatewayMidtrans,
		Reference:   ref,
		Token:       "token-" + ref,
		RedirectURL: "https://pay.example.com/" + ref,
		Request:     []byte(fmt.Sprintf(`{"order_id":%q,"amount":%d}`, req.OrderID, req.Amount)),
		Response:    []byte(fmt.Sprintf(`{"token":"token-%s"}`, ref)),
	}, nil
}

func (g *FakeGateway) VerifyTransaction(ctx context.Context, reference string) (*services.GatewayTransaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.VerifyCalls++
	if g.VerifyErr != nil {
		return nil, g.VerifyErr
	}
	txn, ok := g.transactions[reference]
	if !ok {
		return nil, services.ErrOrderNotFound
	}
	return &txn, nil
}

// FakeNotifier records every ticket it is asked to send
type FakeNotifier struct {
	mu   sync.Mutex
	sent []services.TicketNotification
	Err  error
}

func (n *FakeNotifier) SendTicket(ctx context.Context, t services.TicketNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, t)
	return n.Err
}

// SetErr changes the error returned by later sends
func (n *FakeNotifier) SetErr(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Err = err
}

func (n *FakeNotifier) Sent() []services.TicketNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]services.TicketNotification(nil), n.sent...)
}

// RecordingPublisher keeps published events in memory
type RecordingPublisher struct {
	mu     sync.Mutex
	events []services.OrderEvent
}

func (p *RecordingPublisher) Publish(_ context.Context, e services.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

// Types returns the published event types in order
func (p *RecordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// FakeLocker counts lock traffic and fails every Acquire when Err is set
type FakeLocker struct {
	mu       sync.Mutex
	keys     []string
	released int

	Err error
}

func (l *FakeLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	if l.Err != nil {
		return nil, l.Err
	}
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released++
	}, nil
}

// Counts reports the keys asked for and how many locks were released
func (l *FakeLocker) Counts() (keys []string, released int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.keys...), l.released
}
