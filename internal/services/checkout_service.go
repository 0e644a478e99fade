package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"ticketing_app_echo/internal/models"
)

// ReportSource names the pathway a payment report arrived through
type ReportSource string

const (
	SourceVerify  ReportSource = "verify"
	SourceWebhook ReportSource = "webhook"
	SourceSweep   ReportSource = "sweep"
)

// PaymentReport is a claim about the outcome of a gateway transaction.
// Unverified reports are re-queried against the gateway before use.
type PaymentReport struct {
	Reference     string
	Status        TransactionStatus
	RawStatus     string
	Amount        int64
	PaidAt        *time.Time
	OrderID       string
	CustomerEmail string
	Source        ReportSource
	Verified      bool
}

// Outcome tells the caller what a reconciliation call actually did
type Outcome string

const (
	OutcomeApplied          Outcome = "applied"
	OutcomeReplayed         Outcome = "replayed"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeFlagged          Outcome = "flagged"
	OutcomeUnchanged        Outcome = "unchanged"
)

type ReconciliationResult struct {
	OrderID           string               `json:"order_id"`
	Reference         string               `json:"reference"`
	Status            models.PaymentStatus `json:"status"`
	TicketID          string               `json:"ticket_id,omitempty"`
	Outcome           Outcome              `json:"outcome"`
	NotificationSent  bool                 `json:"notification_sent"`
	NotificationError string               `json:"notification_error,omitempty"`
	Warning           string               `json:"warning,omitempty"`
}

type PaymentSessionResult struct {
	OrderID     string `json:"order_id"`
	Reference   string `json:"reference"`
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
	Reused      bool   `json:"reused"`
}

type CreateOrderInput struct {
	EventID       *string
	AttendeeName  string `validate:"required,max=255"`
	AttendeeEmail string `validate:"required,email,max=255"`
	AttendeePhone string `validate:"omitempty,max=50"`
	TicketType    string `validate:"required,max=50"`
	Quantity      int
	AmountDue     int64
}

type CheckoutOptions struct {
	TicketPrices       map[string]int64
	MaxTicketsPerOrder int
	GatewayTimeout     time.Duration
	NotifyTimeout      time.Duration
	AllowEmailFallback bool
	DefaultEvent       EventInfo
}

type CheckoutDeps struct {
	Store     Store
	Gateway   PaymentGateway
	Notifier  Notifier
	Publisher EventPublisher
	Locker    Locker
	Logger    *zap.Logger
	Options   CheckoutOptions
	Now       func() time.Time
}

// CheckoutService owns the order payment state machine. Both the synchronous
// verification path and the webhook path end in ReconcilePayment.
type CheckoutService struct {
	store     Store
	gateway   PaymentGateway
	notifier  Notifier
	publisher EventPublisher
	locker    Locker
	log       *zap.Logger
	opts      CheckoutOptions
	validate  *validator.Validate
	now       func() time.Time
}

func NewCheckoutService(deps CheckoutDeps) *CheckoutService {
	s := &CheckoutService{
		store:     deps.Store,
		gateway:   deps.Gateway,
		notifier:  deps.Notifier,
		publisher: deps.Publisher,
		locker:    deps.Locker,
		log:       deps.Logger,
		opts:      deps.Options,
		validate:  validator.New(),
		now:       deps.Now,
	}
	if s.publisher == nil {
		s.publisher = noopPublisher{}
	}
	if s.locker == nil {
		s.locker = noopLocker{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.opts.MaxTicketsPerOrder <= 0 {
		s.opts.MaxTicketsPerOrder = 10
	}
	if s.opts.GatewayTimeout <= 0 {
		s.opts.GatewayTimeout = 15 * time.Second
	}
	if s.opts.NotifyTimeout <= 0 {
		s.opts.NotifyTimeout = 20 * time.Second
	}
	return s
}

// CreateOrder validates the selection against the trusted price table and
// persists a pending order.
func (s *CheckoutService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	in.AttendeeName = strings.TrimSpace(in.AttendeeName)
	in.AttendeeEmail = strings.ToLower(strings.TrimSpace(in.AttendeeEmail))
	in.AttendeePhone = strings.TrimSpace(in.AttendeePhone)

	if err := s.validate.Struct(in); err != nil {
		return nil, newError(ErrValidation, err.Error(), nil)
	}
	if in.Quantity < 1 || in.Quantity > s.opts.MaxTicketsPerOrder {
		return nil, newError(ErrQuantityOutOfRange, fmt.Sprintf("quantity must be between 1 and %d", s.opts.MaxTicketsPerOrder), nil)
	}

	unitPrice, ok := s.opts.TicketPrices[in.TicketType]
	if !ok {
		return nil, newError(ErrValidation, fmt.Sprintf("unknown ticket type %q", in.TicketType), nil)
	}
	expected := unitPrice * int64(in.Quantity)
	if in.AmountDue != expected {
		return nil, newError(ErrPriceMismatch, fmt.Sprintf("expected %d for %d x %s, got %d", expected, in.Quantity, in.TicketType, in.AmountDue), nil)
	}

	if in.EventID != nil {
		event, err := s.store.GetEvent(ctx, *in.EventID)
		if err != nil {
			return nil, err
		}
		if event.TicketsSold+in.Quantity > event.TotalTickets {
			return nil, newError(ErrSoldOut, fmt.Sprintf("only %d tickets left", event.Remaining()), nil)
		}
	}

	order := &models.Order{
		ID:                 uuid.NewString(),
		CreatedAt:          s.now(),
		EventID:            in.EventID,
		AttendeeName:       in.AttendeeName,
		AttendeeEmail:      in.AttendeeEmail,
		AttendeePhone:      in.AttendeePhone,
		TicketType:         in.TicketType,
		TicketQuantity:     in.Quantity,
		UnitPrice:          unitPrice,
		AmountDue:          expected,
		PaymentStatus:      models.PaymentStatusPending,
		NotificationStatus: models.NotificationStatusNone,
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	s.log.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("ticket_type", order.TicketType),
		zap.Int("quantity", order.TicketQuantity),
		zap.Int64("amount_due", order.AmountDue),
	)
	s.publish(ctx, order, EventOrderCreated, "")
	return order, nil
}

// GetOrder returns an order by id
func (s *CheckoutService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.store.GetOrder(ctx, id)
}

// GetEvent returns an event with its current sales count
func (s *CheckoutService) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	return s.store.GetEvent(ctx, id)
}

// InitiatePaymentSession opens a hosted payment session for a pending order and
// stores the gateway reference. A pending order that already has a session gets
// that session back.
func (s *CheckoutService) InitiatePaymentSession(ctx context.Context, orderID, callbackURL string) (*PaymentSessionResult, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != models.PaymentStatusPending {
		return nil, newError(ErrInvalidState, fmt.Sprintf("order is already %s", order.PaymentStatus), nil)
	}
	if order.GatewayReference != nil {
		return s.resumeSession(ctx, order)
	}

	gctx, cancel := context.WithTimeout(ctx, s.opts.GatewayTimeout)
	defer cancel()

	session, err := s.gateway.InitializeSession(gctx, SessionRequest{
		OrderID:      order.ID,
		AttendeeName: order.AttendeeName,
		Email:        order.AttendeeEmail,
		Phone:        order.AttendeePhone,
		TicketType:   order.TicketType,
		Quantity:     order.TicketQuantity,
		UnitPrice:    order.UnitPrice,
		Amount:       order.AmountDue,
		ItemName:     fmt.Sprintf("%s ticket", order.TicketType),
		CallbackURL:  callbackURL,
	})
	if err != nil {
		s.log.Warn("Failed to open payment session", zap.String("order_id", order.ID), zap.Error(err))
		return nil, asGatewayError(err)
	}

	attached, err := s.store.AttachReference(ctx, order.ID, session.Reference)
	if err != nil {
		// the gateway session still carries the order id, so a later
		// reconciliation can re-link it through metadata
		s.log.Error("Failed to store gateway reference",
			zap.String("order_id", order.ID), zap.String("reference", session.Reference), zap.Error(err))
		return nil, err
	}
	if !attached {
		current, err := s.store.GetOrder(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		if current.PaymentStatus != models.PaymentStatusPending {
			return nil, newError(ErrInvalidState, fmt.Sprintf("order is already %s", current.PaymentStatus), nil)
		}
		return s.resumeSession(ctx, current)
	}

	record := &models.PaymentSession{
		OrderID:          order.ID,
		PaymentGateway:   session.Gateway,
		Reference:        session.Reference,
		Token:            session.Token,
		RedirectURL:      session.RedirectURL,
		IsActive:         true,
		RequestMetadata:  datatypes.JSON(session.Request),
		ResponseMetadata: datatypes.JSON(session.Response),
	}
	if err := s.store.SaveSession(ctx, record); err != nil {
		s.log.Warn("Failed to save payment session record", zap.String("order_id", order.ID), zap.Error(err))
	}

	s.log.Info("Payment session opened", zap.String("order_id", order.ID), zap.String("reference", session.Reference))
	return &PaymentSessionResult{
		OrderID:     order.ID,
		Reference:   session.Reference,
		Token:       session.Token,
		RedirectURL: session.RedirectURL,
	}, nil
}

func (s *CheckoutService) resumeSession(ctx context.Context, order *models.Order) (*PaymentSessionResult, error) {
	session, err := s.store.ActiveSession(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.Reference != order.Reference() {
		return nil, newError(ErrInvalidState, "payment session already initiated", nil)
	}
	return &PaymentSessionResult{
		OrderID:     order.ID,
		Reference:   session.Reference,
		Token:       session.Token,
		RedirectURL: session.RedirectURL,
		Reused:      true,
	}, nil
}

// VerifyPayment is the synchronous path: it queries the gateway for the
// reference and reconciles with the verified answer.
func (s *CheckoutService) VerifyPayment(ctx context.Context, reference string) (*ReconciliationResult, error) {
	return s.verifyAndReconcile(ctx, reference, SourceVerify)
}

// SweepPayment re-verifies a stale pending order's reference in the background
func (s *CheckoutService) SweepPayment(ctx context.Context, reference string) (*ReconciliationResult, error) {
	return s.verifyAndReconcile(ctx, reference, SourceSweep)
}

func (s *CheckoutService) verifyAndReconcile(ctx context.Context, reference string, source ReportSource) (*ReconciliationResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, newError(ErrValidation, "reference is required", nil)
	}
	txn, err := s.queryGateway(ctx, reference)
	if err != nil {
		return nil, err
	}
	return s.ReconcilePayment(ctx, txn.Report(source))
}

// HandleWebhookNotification is the asynchronous path. The reported fields are
// never trusted: the gateway is always re-queried.
func (s *CheckoutService) HandleWebhookNotification(ctx context.Context, report PaymentReport) (*ReconciliationResult, error) {
	report.Source = SourceWebhook
	report.Verified = false
	return s.ReconcilePayment(ctx, report)
}

// ReconcilePayment moves an order to its terminal state at most once for a
// reference. It is safe to call any number of times, concurrently, from any
// path. For AmountMismatch the result is returned together with the error.
func (s *CheckoutService) ReconcilePayment(ctx context.Context, report PaymentReport) (*ReconciliationResult, error) {
	report.Reference = strings.TrimSpace(report.Reference)
	if report.Reference == "" {
		return nil, newError(ErrValidation, "reference is required", nil)
	}

	release, err := s.locker.Acquire(ctx, "reconcile:"+report.Reference)
	if err != nil {
		s.log.Warn("Reconciliation lock unavailable, continuing on conditional update",
			zap.String("reference", report.Reference), zap.Error(err))
	} else {
		defer release()
	}

	if !report.Verified {
		txn, err := s.queryGateway(ctx, report.Reference)
		if err != nil {
			return nil, err
		}
		report = txn.Report(report.Source)
	}

	order, err := s.locateOrder(ctx, report)
	if err != nil {
		return nil, err
	}

	log := s.log.With(
		zap.String("order_id", order.ID),
		zap.String("reference", report.Reference),
		zap.String("source", string(report.Source)),
		zap.String("gateway_status", string(report.Status)),
	)

	if report.Status == TransactionSuccess && report.Amount != order.AmountDue {
		reason := fmt.Sprintf("gateway amount %d does not match amount due %d", report.Amount, order.AmountDue)
		s.flag(ctx, order, reason)
		res := resultFor(order, report.Reference, OutcomeFlagged)
		res.Warning = reason
		return res, newError(ErrAmountMismatch, reason, nil)
	}

	switch order.PaymentStatus {
	case models.PaymentStatusPaid:
		if entry, err := s.store.GetPaymentLog(ctx, report.Reference); err == nil && entry == nil {
			log.Warn("Paid order has no payment log for its reference")
		}
		log.Info("Payment already reconciled, returning issued ticket")
		return resultFor(order, report.Reference, OutcomeReplayed), nil

	case models.PaymentStatusFailed:
		if report.Status == TransactionSuccess {
			reason := "gateway reported success for an order already marked failed"
			s.flag(ctx, order, reason)
			res := resultFor(order, report.Reference, OutcomeFlagged)
			res.Warning = reason
			return res, nil
		}
		return resultFor(order, report.Reference, OutcomeReplayed), nil
	}

	switch report.Status {
	case TransactionSuccess:
		return s.applyPaid(ctx, order, report, log)
	case TransactionFailed:
		return s.applyFailed(ctx, order, report, log)
	default:
		log.Info("Payment still pending at gateway")
		return resultFor(order, report.Reference, OutcomeUnchanged), nil
	}
}

func (s *CheckoutService) applyPaid(ctx context.Context, order *models.Order, report PaymentReport, log *zap.Logger) (*ReconciliationResult, error) {
	paidAt := s.now()
	if report.PaidAt != nil {
		paidAt = *report.PaidAt
	}
	event := s.eventInfo(ctx, order)

	ticketID := GenerateTicketID(order.ID)
	payload, err := GenerateVerificationPayload(order, event.Title, ticketID, paidAt)
	if err != nil {
		return nil, err
	}

	applied, err := s.store.MarkPaid(ctx, PaidTransition{
		OrderID:       order.ID,
		Reference:     report.Reference,
		Amount:        report.Amount,
		GatewayStatus: report.RawStatus,
		Source:        report.Source,
		TicketID:      ticketID,
		QRPayload:     payload,
		PaidAt:        paidAt,
		EventID:       order.EventID,
		Quantity:      order.TicketQuantity,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		current, err := s.store.GetOrder(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		log.Info("Order resolved by a concurrent reconciliation", zap.String("status", string(current.PaymentStatus)))
		return resultFor(current, report.Reference, OutcomeAlreadyProcessed), nil
	}

	order.PaymentStatus = models.PaymentStatusPaid
	order.TicketID = &ticketID
	order.QRPayload = &payload
	order.PaidAt = &paidAt
	log.Info("Order marked as paid", zap.String("ticket_id", ticketID))
	s.publish(ctx, order, EventOrderPaid, "")

	res := resultFor(order, report.Reference, OutcomeApplied)
	s.deliverTicket(ctx, order, event, res)
	return res, nil
}

func (s *CheckoutService) applyFailed(ctx context.Context, order *models.Order, report PaymentReport, log *zap.Logger) (*ReconciliationResult, error) {
	applied, err := s.store.MarkFailed(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if !applied {
		current, err := s.store.GetOrder(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		return resultFor(current, report.Reference, OutcomeAlreadyProcessed), nil
	}

	order.PaymentStatus = models.PaymentStatusFailed
	log.Info("Order marked as failed", zap.String("raw_status", report.RawStatus))
	s.publish(ctx, order, EventOrderFailed, report.RawStatus)
	return resultFor(order, report.Reference, OutcomeApplied), nil
}

// ResendTicket delivers the already issued ticket of a paid order again
func (s *CheckoutService) ResendTicket(ctx context.Context, orderID string) (*ReconciliationResult, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != models.PaymentStatusPaid || order.TicketID == nil {
		return nil, newError(ErrInvalidState, "only paid orders have a ticket to resend", nil)
	}

	res := resultFor(order, order.Reference(), OutcomeReplayed)
	s.deliverTicket(ctx, order, s.eventInfo(ctx, order), res)
	return res, nil
}

// deliverTicket runs after the paid transition has committed. Its failures
// are recorded on the order and reported on res, never returned.
func (s *CheckoutService) deliverTicket(ctx context.Context, order *models.Order, event EventInfo, res *ReconciliationResult) {
	bg := context.WithoutCancel(ctx)
	nctx, cancel := context.WithTimeout(bg, s.opts.NotifyTimeout)
	defer cancel()

	var qr string
	if order.QRPayload != nil {
		qr = *order.QRPayload
	}

	sendErr := s.notifier.SendTicket(nctx, TicketNotification{
		OrderID:      order.ID,
		Recipient:    order.AttendeeEmail,
		AttendeeName: order.AttendeeName,
		Phone:        order.AttendeePhone,
		TicketID:     order.Ticket(),
		QRPayload:    qr,
		TicketType:   order.TicketType,
		Quantity:     order.TicketQuantity,
		AmountPaid:   order.AmountDue,
		Event:        event,
	})

	outcome := NotificationOutcome{
		OrderID:   order.ID,
		Channel:   models.NotificationChannelEmail,
		Recipient: order.AttendeeEmail,
		Err:       sendErr,
		At:        s.now(),
	}
	if err := s.store.RecordNotification(bg, outcome); err != nil {
		s.log.Error("Failed to record notification outcome", zap.String("order_id", order.ID), zap.Error(err))
	}

	if sendErr != nil {
		s.log.Error("Ticket delivery failed", zap.String("order_id", order.ID), zap.Error(sendErr))
		res.NotificationError = sendErr.Error()
		res.Warning = "ticket issued but delivery failed, it will be retried"
		return
	}
	res.NotificationSent = true
}

func (s *CheckoutService) queryGateway(ctx context.Context, reference string) (*GatewayTransaction, error) {
	gctx, cancel := context.WithTimeout(ctx, s.opts.GatewayTimeout)
	defer cancel()

	txn, err := s.gateway.VerifyTransaction(gctx, reference)
	if err != nil {
		s.log.Warn("Gateway verification failed", zap.String("reference", reference), zap.Error(err))
		return nil, asGatewayError(err)
	}
	if txn.Reference == "" {
		txn.Reference = reference
	}
	return txn, nil
}

// locateOrder finds the order for a reference. The stored reference is
// authoritative; the order id from gateway metadata comes next; the buyer's
// email is the last resort and only when it matches exactly one candidate.
func (s *CheckoutService) locateOrder(ctx context.Context, report PaymentReport) (*models.Order, error) {
	order, err := s.store.GetOrderByReference(ctx, report.Reference)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, ErrOrderNotFound) {
		return nil, err
	}

	if report.OrderID != "" {
		order, err := s.attachByMetadata(ctx, report)
		if err == nil || !errors.Is(err, ErrOrderNotFound) {
			return order, err
		}
	}

	if s.opts.AllowEmailFallback && report.CustomerEmail != "" {
		return s.attachByEmail(ctx, report)
	}

	return nil, newError(ErrOrderNotFound, fmt.Sprintf("no order for reference %s", report.Reference), nil)
}

func (s *CheckoutService) attachByMetadata(ctx context.Context, report PaymentReport) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, report.OrderID)
	if err != nil {
		return nil, err
	}

	if stored := order.Reference(); stored != "" {
		if stored == report.Reference {
			return order, nil
		}
		reason := fmt.Sprintf("gateway reference %s does not match stored reference %s", report.Reference, stored)
		s.flag(ctx, order, reason)
		return nil, newError(ErrInvalidState, reason, nil)
	}

	s.log.Warn("Order located through gateway metadata",
		zap.String("order_id", order.ID), zap.String("reference", report.Reference))
	return s.attach(ctx, order, report.Reference)
}

func (s *CheckoutService) attachByEmail(ctx context.Context, report PaymentReport) (*models.Order, error) {
	email := strings.ToLower(strings.TrimSpace(report.CustomerEmail))
	candidates, err := s.store.FindUnreferencedPending(ctx, email, report.Amount)
	if err != nil {
		return nil, err
	}
	if len(candidates) != 1 {
		s.log.Warn("Email fallback found no unique order",
			zap.String("reference", report.Reference), zap.Int("candidates", len(candidates)))
		return nil, newError(ErrOrderNotFound, fmt.Sprintf("no order for reference %s", report.Reference), nil)
	}

	s.log.Warn("Order located through attendee email fallback",
		zap.String("order_id", candidates[0].ID), zap.String("reference", report.Reference))
	return s.attach(ctx, &candidates[0], report.Reference)
}

func (s *CheckoutService) attach(ctx context.Context, order *models.Order, reference string) (*models.Order, error) {
	if _, err := s.store.AttachReference(ctx, order.ID, reference); err != nil {
		return nil, err
	}
	current, err := s.store.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if current.Reference() != reference {
		return nil, newError(ErrInvalidState, "order is linked to a different payment reference", nil)
	}
	return current, nil
}

func (s *CheckoutService) flag(ctx context.Context, order *models.Order, reason string) {
	if err := s.store.FlagForReview(ctx, order.ID, reason); err != nil {
		s.log.Error("Failed to flag order for review", zap.String("order_id", order.ID), zap.Error(err))
	}
	order.NeedsReview = true
	order.ReviewReason = reason
	s.log.Warn("Order flagged for review", zap.String("order_id", order.ID), zap.String("reason", reason))
	s.publish(ctx, order, EventOrderFlagged, reason)
}

func (s *CheckoutService) eventInfo(ctx context.Context, order *models.Order) EventInfo {
	info := s.opts.DefaultEvent
	if order.EventID == nil {
		return info
	}
	info.ID = *order.EventID
	event, err := s.store.GetEvent(ctx, *order.EventID)
	if err != nil {
		s.log.Warn("Event lookup failed, using defaults", zap.String("event_id", *order.EventID), zap.Error(err))
		return info
	}
	info.Title = event.Title
	info.Venue = event.Venue
	if !event.StartsAt.IsZero() {
		info.Date = event.StartsAt.Format("Monday, 2 January 2006 15:04")
	}
	return info
}

func (s *CheckoutService) publish(ctx context.Context, order *models.Order, eventType, reason string) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err := s.publisher.Publish(pctx, OrderEvent{
		Type:       eventType,
		OrderID:    order.ID,
		Reference:  order.Reference(),
		Status:     order.PaymentStatus,
		TicketID:   order.Ticket(),
		Amount:     order.AmountDue,
		Reason:     reason,
		OccurredAt: s.now(),
	})
	if err != nil {
		s.log.Warn("Failed to publish order event", zap.String("order_id", order.ID), zap.String("type", eventType), zap.Error(err))
	}
}

func resultFor(order *models.Order, reference string, outcome Outcome) *ReconciliationResult {
	return &ReconciliationResult{
		OrderID:   order.ID,
		Reference: reference,
		Status:    order.PaymentStatus,
		TicketID:  order.Ticket(),
		Outcome:   outcome,
	}
}

func asGatewayError(err error) error {
	var ce *CheckoutError
	if errors.As(err, &ce) {
		return err
	}
	return newError(ErrGatewayUnavailable, "", err)
}
