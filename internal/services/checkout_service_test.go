package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketing_app_echo/internal/models"
	"ticketing_app_echo/internal/services"
	"ticketing_app_echo/internal/services/checkouttest"
)

var (
	paidAt = time.Date(2026, 2, 14, 18, 30, 0, 0, time.UTC)
	prices = map[string]int64{"regular": 500000, "legend-earlybird": 2500000}
)

type harness struct {
	svc       *services.CheckoutService
	store     *checkouttest.MemoryStore
	gateway   *checkouttest.FakeGateway
	notifier  *checkouttest.FakeNotifier
	publisher *checkouttest.RecordingPublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithLocker(t, nil)
}

func newHarnessWithLocker(t *testing.T, locker services.Locker) *harness {
	t.Helper()
	h := &harness{
		store:     checkouttest.NewMemoryStore(),
		gateway:   checkouttest.NewFakeGateway(),
		notifier:  &checkouttest.FakeNotifier{},
		publisher: &checkouttest.RecordingPublisher{},
	}
	h.svc = services.NewCheckoutService(services.CheckoutDeps{
		Store:     h.store,
		Gateway:   h.gateway,
		Notifier:  h.notifier,
		Publisher: h.publisher,
		Locker:    locker,
		Options: services.CheckoutOptions{
			TicketPrices:       prices,
			MaxTicketsPerOrder: 10,
			GatewayTimeout:     time.Second,
			NotifyTimeout:      time.Second,
			AllowEmailFallback: true,
			DefaultEvent:       services.EventInfo{Title: "Lagos Live"},
		},
	})
	return h
}

func (h *harness) createOrder(t *testing.T, qty int) *models.Order {
	t.Helper()
	order, err := h.svc.CreateOrder(context.Background(), services.CreateOrderInput{
		AttendeeName:  "Ada Obi",
		AttendeeEmail: "ada@example.com",
		AttendeePhone: "08031234567",
		TicketType:    "regular",
		Quantity:      qty,
		AmountDue:     500000 * int64(qty),
	})
	require.NoError(t, err)
	return order
}

// initiated returns a pending order whose session was opened with ref
func (h *harness) initiated(t *testing.T, qty int, ref string) *models.Order {
	t.Helper()
	order := h.createOrder(t, qty)
	h.gateway.QueueReference(ref)
	session, err := h.svc.InitiatePaymentSession(context.Background(), order.ID, "https://tickets.example.com/done")
	require.NoError(t, err)
	require.Equal(t, ref, session.Reference)
	return order
}

func successReport(ref string, amount int64) services.PaymentReport {
	at := paidAt
	return services.PaymentReport{
		Reference: ref,
		Status:    services.TransactionSuccess,
		RawStatus: "settlement",
		Amount:    amount,
		PaidAt:    &at,
		Source:    services.SourceVerify,
		Verified:  true,
	}
}

func (h *harness) order(t *testing.T, id string) models.Order {
	t.Helper()
	o, ok := h.store.Order(id)
	require.True(t, ok)
	return o
}

func TestCreateOrderPersistsPendingOrder(t *testing.T) {
	h := newHarness(t)

	order := h.createOrder(t, 2)

	stored := h.order(t, order.ID)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
	assert.Equal(t, int64(1000000), stored.AmountDue)
	assert.Equal(t, int64(500000), stored.UnitPrice)
	assert.Nil(t, stored.GatewayReference)
	assert.Nil(t, stored.TicketID)
	assert.Nil(t, stored.PaidAt)
	assert.Equal(t, []string{services.EventOrderCreated}, h.publisher.Types())
}

func TestCreateOrderRejectsTamperedAmount(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.CreateOrder(context.Background(), services.CreateOrderInput{
		AttendeeName:  "Ada Obi",
		AttendeeEmail: "ada@example.com",
		TicketType:    "regular",
		Quantity:      2,
		AmountDue:     500000,
	})

	assert.ErrorIs(t, err, services.ErrPriceMismatch)
	assert.Zero(t, h.store.OrderCount())
}

func TestCreateOrderInputRules(t *testing.T) {
	tests := []struct {
		name    string
		in      services.CreateOrderInput
		wantErr error
	}{
		{
			name:    "zero quantity",
			in:      services.CreateOrderInput{AttendeeName: "A", AttendeeEmail: "a@example.com", TicketType: "regular", Quantity: 0, AmountDue: 0},
			wantErr: services.ErrQuantityOutOfRange,
		},
		{
			name:    "above the per-order limit",
			in:      services.CreateOrderInput{AttendeeName: "A", AttendeeEmail: "a@example.com", TicketType: "regular", Quantity: 11, AmountDue: 5500000},
			wantErr: services.ErrQuantityOutOfRange,
		},
		{
			name:    "malformed email",
			in:      services.CreateOrderInput{AttendeeName: "A", AttendeeEmail: "not-an-email", TicketType: "regular", Quantity: 1, AmountDue: 500000},
			wantErr: services.ErrValidation,
		},
		{
			name:    "missing name",
			in:      services.CreateOrderInput{AttendeeName: "  ", AttendeeEmail: "a@example.com", TicketType: "regular", Quantity: 1, AmountDue: 500000},
			wantErr: services.ErrValidation,
		},
		{
			name:    "unknown ticket type",
			in:      services.CreateOrderInput{AttendeeName: "A", AttendeeEmail: "a@example.com", TicketType: "backstage", Quantity: 1, AmountDue: 500000},
			wantErr: services.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.svc.CreateOrder(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, h.store.OrderCount())
		})
	}
}

func TestCreateOrderChecksEventCapacity(t *testing.T) {
	h := newHarness(t)
	h.store.AddEvent(models.Event{ID: "lagos-live", Title: "Lagos Live", TotalTickets: 10, TicketsSold: 9})
	eventID := "lagos-live"
	missing := "nowhere"

	_, err := h.svc.CreateOrder(context.Background(), services.CreateOrderInput{
		EventID: &eventID, AttendeeName: "A", AttendeeEmail: "a@example.com",
		TicketType: "regular", Quantity: 2, AmountDue: 1000000,
	})
	assert.ErrorIs(t, err, services.ErrSoldOut)

	_, err = h.svc.CreateOrder(context.Background(), services.CreateOrderInput{
		EventID: &missing, AttendeeName: "A", AttendeeEmail: "a@example.com",
		TicketType: "regular", Quantity: 1, AmountDue: 500000,
	})
	assert.ErrorIs(t, err, services.ErrEventNotFound)

	order, err := h.svc.CreateOrder(context.Background(), services.CreateOrderInput{
		EventID: &eventID, AttendeeName: "A", AttendeeEmail: "a@example.com",
		TicketType: "regular", Quantity: 1, AmountDue: 500000,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, h.store.OrderCount())

	h.gateway.QueueReference("ref_cap")
	_, err = h.svc.InitiatePaymentSession(context.Background(), order.ID, "")
	require.NoError(t, err)
	_, err = h.svc.ReconcilePayment(context.Background(), successReport("ref_cap", 500000))
	require.NoError(t, err)

	event, _ := h.store.Event("lagos-live")
	assert.Equal(t, 10, event.TicketsSold)
}

func TestInitiatePaymentSessionStoresReference(t *testing.T) {
	h := newHarness(t)
	order := h.createOrder(t, 1)
	h.gateway.QueueReference("ref_abc")

	session, err := h.svc.InitiatePaymentSession(context.Background(), order.ID, "")
	require.NoError(t, err)

	assert.Equal(t, "ref_abc", session.Reference)
	assert.Equal(t, "https://pay.example.com/ref_abc", session.RedirectURL)
	assert.False(t, session.Reused)
	stored := h.order(t, order.ID)
	assert.Equal(t, "ref_abc", stored.Reference())
}

func TestInitiatePaymentSessionGatewayFailureLeavesOrderUntouched(t *testing.T) {
	h := newHarness(t)
	order := h.createOrder(t, 1)
	h.gateway.InitErr = errors.New("connection reset by peer")

	_, err := h.svc.InitiatePaymentSession(context.Background(), order.ID, "")

	assert.ErrorIs(t, err, services.ErrGatewayUnavailable)
	assert.True(t, services.IsRetryable(err))
	stored := h.order(t, order.ID)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
	assert.Nil(t, stored.GatewayReference)
}

func TestInitiatePaymentSessionReusesOpenSession(t *testing.T) {
	h := newHarness(t)
	order := h.initiated(t, 1, "ref_first")

	again, err := h.svc.InitiatePaymentSession(context.Background(), order.ID, "")
	require.NoError(t, err)

	assert.True(t, again.Reused)
	assert.Equal(t, "ref_first", again.Reference)
	initCalls, _ := h.gateway.Calls()
	assert.Equal(t, 1, initCalls)
}

func TestInitiatePaymentSessionRejectsResolvedOrUnknownOrder(t *testing.T) {
	h := newHarness(t)
	order := h.initiated(t, 1, "ref_done")
	_, err := h.svc.ReconcilePayment(context.Background(), successReport("ref_done", 500000))
	require.NoError(t, err)

	_, err = h.svc.InitiatePaymentSession(context.Background(), order.ID, "")
	assert.ErrorIs(t, err, services.ErrInvalidState)

	_, err = h.svc.InitiatePaymentSession(context.Background(), "missing", "")
	assert.ErrorIs(t, err, services.ErrOrderNotFound)
}

func TestReconcileMarksPaidThenReplays(t *testing.T) {
	h := newHarness(t)
	order := h.initiated(t, 2, "ref_123")

	first, err := h.svc.ReconcilePayment(context.Background(), successReport("ref_123", 1000000))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, first.Status)
	assert.Equal(t, services.OutcomeApplied, first.Outcome)
	assert.NotEmpty(t, first.TicketID)
	assert.True(t, first.NotificationSent)

	stored := h.order(t, order.ID)
	require.NotNil(t, stored.PaidAt)
	assert.True(t, paidAt.Equal(*stored.PaidAt))
	require.NotNil(t, stored.QRPayload)
	payload, err := services.DecodeVerificationPayload(*stored.QRPayload)
	require.NoError(t, err)
	assert.Equal(t, first.TicketID, payload.TicketID)
	assert.Equal(t, order.ID, payload.OrderID)

	second, err := h.svc.ReconcilePayment(context.Background(), successReport("ref_123", 1000000))
	require.NoError(t, err)
	assert.Equal(t, first.TicketID, second.TicketID)
	assert.Equal(t, services.OutcomeReplayed, second.Outcome)
	assert.False(t, second.NotificationSent)

	assert.Len(t, h.store.PaymentLogs(), 1)
	assert.Len(t, h.notifier.Sent(), 1)
}

func TestReconcileHoldsAndReleasesReferenceLock(t *testing.T) {
	locker := &checkouttest.FakeLocker{}
	h := newHarnessWithLocker(t, locker)
	h.initiated(t, 1, "ref_lock")

	_, err := h.svc.ReconcilePayment(context.Background(), successReport("ref_lock", 500000))
	require.NoError(t, err)
	_, err = h.svc.ReconcilePayment(context.Background(), successReport("ref_lock", 500000))
	require.NoError(t, err)

	keys, released := locker.Counts()
	assert.Equal(t, []string{"reconcile:ref_lock", "reconcile:ref_lock"}, keys)
	assert.Equal(t, 2, released)
}

func TestReconcileProceedsWhenLockUnavailable(t *testing.T) {
	locker := &checkouttest.FakeLocker{Err: errors.New("redis: connection refused")}
	h := newHarnessWithLocker(t, locker)
	order := h.initiated(t, 1, "ref_nolock")

	const workers = 4
	results := make([]*services.ReconciliationResult, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.svc.ReconcilePayment(context.Background(), successReport("ref_nolock", 500000))
		}(i)
	}
	wg.Wait()

	applied := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		if results[i].Outcome == services.OutcomeApplied {
			applied++
		}
	}
	assert.Equal(t, 1, applied)

	stored := h.order(t, order.ID)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	assert.Len(t, h.store.PaymentLogs(), 1)
	assert.Len(t, h.notifier.Sent(), 1)

	keys, released := locker.Counts()
	assert.Len(t, keys, workers)
	assert.Zero(t, released)
}

func TestReconcileIsIdempotentAcrossPaths(t *testing.T) {
	h := newHarness(t)
	order := h.initiated(t, 1, "ref_idem")
	h.gateway.SetTransaction(services.GatewayTransaction{
		Reference: "ref_idem", Status: services.TransactionSuccess, RawStatus: "settlement",
		Amount: 500000, PaidAt: &paidAt, OrderID: order.ID,
	})

	const calls = 10
	tickets := make(map[string]int)
	applied := 0
	for i := 0; i < calls; i++ {
		var res *services.ReconciliationResult
		var err error
		if i%2 == 0 {
			res, err = h.svc.VerifyPayment(context.Background(), "ref_idem")
		} else {
			res, err = h.svc.HandleWebhookNotification(context.Background(), services.PaymentReport{Reference: "ref_idem"})
		}
		require.NoError(t, err)
		tickets[res.TicketID]++
		if res.Outcome == services.OutcomeApplied {
			applied++
		}
	}

	assert.Len(t, tickets, 1)
	assert.Equal(t, 1, applied)
	assert.Len(t, h.store.PaymentLogs(), 1)
	assert.Len(t, h.notifier.Sent(), 1)
}

func TestConcurrentReconciliationIssuesOneTicket(t *testing.T) {
	h := newHarness(t)
	order := h.initiated(t, 1, "ref_race")
	h.gateway.SetTransaction(services.GatewayTransaction{
		Reference: "ref_race", Status: services.TransactionSuccess, RawStatus: "settlement",
		Amount: 500000, PaidAt: &paidAt, OrderID: order.ID,
	})

	const workers = 24
	results := make([]*services.ReconciliationResult, workers)
	errs := make([]error, workers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			if i%2 == 0 {
				results[i], errs[i] = h.svc.VerifyPayment(context.Background(), "ref_race")
			} else {
				results[i], errs[i] = h.svc.HandleWebhookNotification(context.Background(), services.PaymentReport{Reference: "ref_race"})
			}
		}(i)
	}
	close(start)
	wg.Wait()

	stored := h.order(t, order.ID)
	ticket := stored.Ticket()
	require.NotEmpty(t, ticket)
	applied := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ticket, results[i].TicketID)
		assert.Equal(t, models.PaymentStatusPaid, results[i].Status)
		if results[i].Outcome == services.OutcomeApplied {
			applied++
		}
	}
	assert.Equal(t, 1, applied)
	assert.Len(t, h.notifier.Sent(), 1)
	assert.Len(t, h.store.PaymentLogs(), 1)
}

func TestReconcileUnknownReference(t *testing.T) {
	h := newHarness(t)
	order := h.initiated(t, 1, "ref_123")

	res, err := h.svc.ReconcilePayment(context.Background(), successReport("ref_999", 500000))

	assert.Nil(t, res)
	assert.ErrorIs(t, err, services.ErrOrderNotFound)
	assert.False(t, services.IsRetryable(err))
	stored := h.order(t, order.ID)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
	assert.False(t, stored.NeedsReview)
	assert.Empty(t, h.store.PaymentLogs())
	assert.Empty(t, h.notifier.Sent())
}

func TestReconcileAmountMismatchLeavesOrderPending(t *testing.T) {
	h := newHarness(t)
	order := h.initiated(t, 2, "ref_short")

	res, err := h.svc.ReconcilePayment(context.Background(), successReport("ref_short", 900000))

	assert.ErrorIs(t, err, services.ErrAmountMismatch)
	require.NotNil(t, res)
	assert.Equal(t, services.OutcomeFlagged, res.Outcome)
	assert.Equal(t, models.PaymentStatusPending, res.Status)

	stored := h.order(t, order.ID)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
	assert.True(t, stored.NeedsReview)
	assert.Contains(t, stored.ReviewReason, "900000")
	assert.Nil(t, stored.TicketID)
	assert.Empty(t, h.store.PaymentLogs())
	assert.Empty(t, h.notifier.Sent())
	assert.Contains(t, h.publisher.Types(), services.EventOrderFlagged)
}

func TestPaidOrderNeverMovesBackward(t *testing.T) {
	h := newHarness(t)
	order := h.initiated(t, 1, "ref_paid")
	first, err := h.svc.ReconcilePayment(context.Background(), successReport("ref_paid", 500000))
	require.NoError(t, err)

	failed := services.PaymentReport{Reference: "ref_paid", Status: services.TransactionFailed, RawStatus: "expire", Amount: 500000, Verified: true}
	res, err := h.svc.ReconcilePayment(context.Background(), failed)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, res.Status)

	later := paidAt.Add(time.Hour)
	replay := successReport("ref_paid", 500000)
	replay.PaidAt = &later
	_, err = h.svc.ReconcilePayment(context.Background(), replay)
	require.NoError(t, err)

	stored := h.order(t, order.ID)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, first.TicketID, stored.Ticket())
	assert.True(t, paidAt.Equal(*stored.PaidAt))
}

func TestFailedOrderNeverMovesBackward(t *testing.T) {
	h := newHarness(t)
	order := h.initiated(t, 1, "ref_fail")

	res, err := h.svc.ReconcilePayment(context.Background(), services.PaymentReport{
		Reference: "ref_fail", Status: services.TransactionFailed, RawStatus: "deny", Amount: 500000, Verified: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, res.Status)
	assert.Equal(t, services.OutcomeApplied, res.Outcome)
	assert.Empty(t, res.TicketID)

	late, err := h.svc.ReconcilePayment(context.Background(), successReport("ref_fail", 500000))
	require.NoError(t, err)
	assert.Equal(t, services.OutcomeFlagged, late.Outcome)
	assert.Equal(t, models.PaymentStatusFailed, late.Status)

	stored := h.order(t, order.ID)
	assert.Equal(t, models.PaymentStatusFailed, stored.PaymentStatus)
	assert.Nil(t, stored.TicketID)
	assert.Nil(t, stored.PaidAt)
	assert.True(t, stored.NeedsReview)
	assert.Empty(t, h.notifier.Sent())
	assert.Equal(t, []string{services.EventOrderCreated, services.EventOrderFailed, services.EventOrderFlagged}, h.publisher.Types())
}

func TestNotificationFailureDoesNotRevertPayment(t *testing.T) {
	h := newHarness(t)
	order := h.initiated(t, 1, "ref_mail")
	h.notifier.SetErr(errors.New("smtp: 421 service not available"))

	res, err := h.svc.ReconcilePayment(context.Background(), successReport("ref_mail", 500000))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, res.Status)
	assert.NotEmpty(t, res.TicketID)
	assert.False(t, res.NotificationSent)
	assert.Contains(t, res.NotificationError, "421")

	stored := h.order(t, order.ID)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, res.TicketID, stored.Ticket())
	assert.Equal(t, models.NotificationStatusFailed, stored.NotificationStatus)
	assert.Equal(t, 1, stored.NotificationAttempts)

	h.notifier.SetErr(nil)
	resent, err := h.svc.ResendTicket(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, resent.NotificationSent)
	assert.Equal(t, res.TicketID, resent.TicketID)

	stored = h.order(t, order.ID)
	assert.Equal(t, models.NotificationStatusSent, stored.NotificationStatus)
	assert.Equal(t, 2, stored.NotificationAttempts)
	assert.Len(t, h.store.NotificationLogs(), 2)
}

func TestResendTicketRequiresPaidOrder(t *testing.T) {
	h := newHarness(t)
	order := h.createOrder(t, 1)

	_, err := h.svc.ResendTicket(context.Background(), order.ID)
	assert.ErrorIs(t, err, services.ErrInvalidState)
	assert.Empty(t, h.notifier.Sent())
}

func TestWebhookClaimIsReverifiedWithGateway(t *testing.T) {
	h := newHarness(t)
	order := h.initiated(t, 1, "ref_claim")
	h.gateway.SetTransaction(services.GatewayTransaction{
		Reference: "ref_claim", Status: services.TransactionPending, RawStatus: "pending", Amount: 500000,
	})

	res, err := h.svc.HandleWebhookNotification(context.Background(), successReport("ref_claim", 500000))
	require.NoError(t, err)

	assert.Equal(t, services.OutcomeUnchanged, res.Outcome)
	assert.Equal(t, models.PaymentStatusPending, h.order(t, order.ID).PaymentStatus)
	_, verifyCalls := h.gateway.Calls()
	assert.Equal(t, 1, verifyCalls)
}

func TestGatewayOutageIsRetryableAndChangesNothing(t *testing.T) {
	h := newHarness(t)
	order := h.initiated(t, 1, "ref_down")
	h.gateway.VerifyErr = context.DeadlineExceeded

	_, err := h.svc.VerifyPayment(context.Background(), "ref_down")
	assert.ErrorIs(t, err, services.ErrGatewayUnavailable)
	assert.True(t, services.IsRetryable(err))

	_, err = h.svc.HandleWebhookNotification(context.Background(), services.PaymentReport{Reference: "ref_down"})
	assert.True(t, services.IsRetryable(err))

	stored := h.order(t, order.ID)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
	assert.Empty(t, h.store.PaymentLogs())
}

func TestReconcileRecoversReferenceFromGatewayMetadata(t *testing.T) {
	h := newHarness(t)
	order := h.createOrder(t, 1)

	report := successReport("ref_lost", 500000)
	report.OrderID = order.ID
	res, err := h.svc.ReconcilePayment(context.Background(), report)
	require.NoError(t, err)

	assert.Equal(t, services.OutcomeApplied, res.Outcome)
	stored := h.order(t, order.ID)
	assert.Equal(t, "ref_lost", stored.Reference())
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
}

func TestMetadataPointingAtOtherReferenceIsFlagged(t *testing.T) {
	h := newHarness(t)
	order := h.initiated(t, 1, "ref_original")

	report := successReport("ref_other", 500000)
	report.OrderID = order.ID
	_, err := h.svc.ReconcilePayment(context.Background(), report)

	assert.ErrorIs(t, err, services.ErrInvalidState)
	stored := h.order(t, order.ID)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
	assert.True(t, stored.NeedsReview)
}

func TestEmailFallbackOnlyForUniqueMatch(t *testing.T) {
	t.Run("unique pending order", func(t *testing.T) {
		h := newHarness(t)
		order := h.createOrder(t, 1)

		report := successReport("ref_mailonly", 500000)
		report.CustomerEmail = "ADA@example.com"
		res, err := h.svc.ReconcilePayment(context.Background(), report)
		require.NoError(t, err)
		assert.Equal(t, order.ID, res.OrderID)
		assert.Equal(t, models.PaymentStatusPaid, res.Status)
	})

	t.Run("ambiguous email", func(t *testing.T) {
		h := newHarness(t)
		first := h.createOrder(t, 1)
		second := h.createOrder(t, 1)

		report := successReport("ref_mailonly", 500000)
		report.CustomerEmail = "ada@example.com"
		_, err := h.svc.ReconcilePayment(context.Background(), report)

		assert.ErrorIs(t, err, services.ErrOrderNotFound)
		assert.Equal(t, models.PaymentStatusPending, h.order(t, first.ID).PaymentStatus)
		assert.Equal(t, models.PaymentStatusPending, h.order(t, second.ID).PaymentStatus)
	})
}

func TestStoreOutageDuringTransitionIsRetryable(t *testing.T) {
	h := newHarness(t)
	order := h.initiated(t, 1, "ref_db")
	h.store.FailWith = &services.CheckoutError{Code: services.CodeStoreUnavailable, Message: "db down", Retryable: true}

	_, err := h.svc.ReconcilePayment(context.Background(), successReport("ref_db", 500000))
	assert.True(t, services.IsRetryable(err))

	h.store.FailWith = nil
	stored := h.order(t, order.ID)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
	assert.Empty(t, h.notifier.Sent())
}
