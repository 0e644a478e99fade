package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestOrderStoreAttachReference(t *testing.T) {
	tests := []struct {
		name         string
		rowsAffected int64
		want         bool
	}{
		{name: "first session wins", rowsAffected: 1, want: true},
		{name: "reference already set or order resolved", rowsAffected: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gormDB, mock := setupMockDB(t)
			store := NewOrderStore(gormDB)

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta(`UPDATE "orders" SET "gateway_reference"=`)).
				WillReturnResult(sqlmock.NewResult(0, tt.rowsAffected))
			mock.ExpectCommit()

			ok, err := store.AttachReference(context.Background(), "order-1", "tix-order-1-1700000000")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestOrderStoreMarkPaidAppliesTransition(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := NewOrderStore(gormDB)
	eventID := "lagos-live"

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO payment_logs`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "orders" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "events" SET "tickets_sold"=tickets_sold +`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := store.MarkPaid(context.Background(), PaidTransition{
		OrderID:   "order-1",
		Reference: "ref_123",
		Amount:    1000000,
		Source:    SourceWebhook,
		TicketID:  "TIX-ORDER1-ABC-QWERTYUI",
		QRPayload: "payload",
		PaidAt:    time.Now(),
		EventID:   &eventID,
		Quantity:  2,
	})

	require.NoError(t, err)
	assert.True(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderStoreMarkPaidLosesRace(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := NewOrderStore(gormDB)
	eventID := "lagos-live"

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO payment_logs`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "orders" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	applied, err := store.MarkPaid(context.Background(), PaidTransition{
		OrderID: "order-1", Reference: "ref_123", Amount: 1000000,
		TicketID: "TIX-LOSER", PaidAt: time.Now(), EventID: &eventID, Quantity: 2,
	})

	require.NoError(t, err)
	assert.False(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderStoreMarkPaidRollsBackOnError(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := NewOrderStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO payment_logs`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "orders" SET`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	applied, err := store.MarkPaid(context.Background(), PaidTransition{
		OrderID: "order-1", Reference: "ref_123", Amount: 1000000, TicketID: "TIX-X", PaidAt: time.Now(),
	})

	assert.False(t, applied)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.True(t, IsRetryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderStoreMarkFailedOnlyFromPending(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := NewOrderStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "orders" SET "payment_status"=`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	applied, err := store.MarkFailed(context.Background(), "order-1")
	require.NoError(t, err)
	assert.False(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderStoreLookupsTranslateNotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := NewOrderStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE gateway_reference = $1`)).
		WithArgs("ref_999", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payment_logs" WHERE reference = $1`)).
		WithArgs("ref_999", 1).
		WillReturnRows(sqlmock.NewRows([]string{"reference"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "events" WHERE id = $1`)).
		WithArgs("nowhere", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	order, err := store.GetOrderByReference(context.Background(), "ref_999")
	assert.Nil(t, order)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	entry, err := store.GetPaymentLog(context.Background(), "ref_999")
	assert.Nil(t, entry)
	assert.NoError(t, err)

	event, err := store.GetEvent(context.Background(), "nowhere")
	assert.Nil(t, event)
	assert.ErrorIs(t, err, ErrEventNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderStoreGetOrderByReferenceScansRow(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := NewOrderStore(gormDB)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "attendee_email", "amount_due", "payment_status", "gateway_reference", "created_at"}).
		AddRow("order-1", "ada@example.com", int64(1000000), "pending", "ref_123", now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE gateway_reference = $1`)).
		WithArgs("ref_123", 1).
		WillReturnRows(rows)

	order, err := store.GetOrderByReference(context.Background(), "ref_123")
	require.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)
	assert.Equal(t, "ref_123", order.Reference())
	assert.Equal(t, int64(1000000), order.AmountDue)
}
