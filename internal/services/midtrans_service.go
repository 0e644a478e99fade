package services

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"

	"ticketing_app_echo/internal/config"
	"ticketing_app_echo/internal/models"
)

const referencePrefix = "tix"

// Midtrans reports transaction times in Jakarta time without an offset
var midtransLocation = time.FixedZone("WIB", 7*60*60)

type MidtransService struct {
	SnapClient snap.Client
	CoreClient coreapi.Client
	serverKey  string
}

func NewMidtransService(cfg config.MidtransConfig) *MidtransService {
	env := midtrans.Sandbox
	if cfg.IsProduction {
		env = midtrans.Production
	}

	var s snap.Client
	s.New(cfg.ServerKey, env)

	var c coreapi.Client
	c.New(cfg.ServerKey, env)

	// Set Default Options
	midtrans.ServerKey = cfg.ServerKey
	midtrans.ClientKey = cfg.ClientKey
	midtrans.Environment = env

	return &MidtransService{
		SnapClient: s,
		CoreClient: c,
		serverKey:  cfg.ServerKey,
	}
}

// NewReference builds the gateway order id for a session: tix-<orderID>-<unix>.
// The order id stays recoverable from the reference alone.
func NewReference(orderID string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%d", referencePrefix, orderID, now.Unix())
}

// OrderIDFromReference extracts the order id from a reference built by NewReference
func OrderIDFromReference(reference string) (string, bool) {
	rest, ok := strings.CutPrefix(reference, referencePrefix+"-")
	if !ok {
		return "", false
	}
	idx := strings.LastIndex(rest, "-")
	if idx <= 0 {
		return "", false
	}
	if _, err := strconv.ParseInt(rest[idx+1:], 10, 64); err != nil {
		return "", false
	}
	return rest[:idx], true
}

// InitializeSession creates a Snap transaction for the order
func (s *MidtransService) InitializeSession(ctx context.Context, req SessionRequest) (*Session, error) {
	reference := NewReference(req.OrderID, time.Now())

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  reference,
			GrossAmt: req.Amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.AttendeeName,
			Email: req.Email,
			Phone: req.Phone,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    req.TicketType,
				Name:  req.ItemName,
				Price: req.UnitPrice,
				Qty:   int32(req.Quantity),
			},
		},
	}
	if req.CallbackURL != "" {
		snapReq.Callbacks = &snap.Callbacks{Finish: req.CallbackURL}
	}

	resp, err := callWithContext(ctx, func() (*snap.Response, error) {
		r, merr := s.SnapClient.CreateTransaction(snapReq)
		if merr != nil {
			return nil, merr
		}
		return r, nil
	})
	if err != nil {
		return nil, newError(ErrGatewayUnavailable, "midtrans create transaction failed", err)
	}

	reqBytes, _ := json.Marshal(snapReq)
	respBytes, _ := json.Marshal(resp)

	return &Session{
		Gateway:     models.PaymentGatewayMidtrans,
		Reference:   reference,
		Token:       resp.Token,
		RedirectURL: resp.RedirectURL,
		Request:     reqBytes,
		Response:    respBytes,
	}, nil
}

// VerifyTransaction asks Midtrans for the current status of a reference
func (s *MidtransService) VerifyTransaction(ctx context.Context, reference string) (*GatewayTransaction, error) {
	resp, err := callWithContext(ctx, func() (*coreapi.TransactionStatusResponse, error) {
		r, merr := s.CoreClient.CheckTransaction(reference)
		if merr != nil {
			return nil, merr
		}
		return r, nil
	})
	if err != nil {
		if merr, ok := err.(*midtrans.Error); ok && merr.StatusCode == http.StatusNotFound {
			return nil, newError(ErrOrderNotFound, fmt.Sprintf("midtrans has no transaction %s", reference), err)
		}
		return nil, newError(ErrGatewayUnavailable, "midtrans check transaction failed", err)
	}
	if resp.StatusCode == "404" {
		return nil, newError(ErrOrderNotFound, fmt.Sprintf("midtrans has no transaction %s", reference), nil)
	}

	return buildTransaction(reference, resp.TransactionStatus, resp.FraudStatus, resp.GrossAmount, resp.SettlementTime, resp.TransactionTime)
}

func buildTransaction(reference, status, fraud, grossAmount, settlementTime, transactionTime string) (*GatewayTransaction, error) {
	amount, err := ParseGrossAmount(grossAmount)
	if err != nil {
		return nil, newError(ErrGatewayUnavailable, "unexpected gross amount from midtrans", err)
	}

	txn := &GatewayTransaction{
		Reference: reference,
		Status:    MapTransactionStatus(status, fraud),
		RawStatus: status,
		Amount:    amount,
	}
	if orderID, ok := OrderIDFromReference(reference); ok {
		txn.OrderID = orderID
	}
	if txn.Status == TransactionSuccess {
		txn.PaidAt = parseMidtransTime(settlementTime)
		if txn.PaidAt == nil {
			txn.PaidAt = parseMidtransTime(transactionTime)
		}
	}
	return txn, nil
}

// MapTransactionStatus folds Midtrans transaction and fraud statuses into
// success, pending or failed. Unknown statuses stay pending.
func MapTransactionStatus(status, fraud string) TransactionStatus {
	switch status {
	case "settlement":
		return TransactionSuccess
	case "capture":
		if fraud == "accept" || fraud == "" {
			return TransactionSuccess
		}
		return TransactionPending
	case "deny", "expire", "cancel", "failure":
		return TransactionFailed
	default:
		return TransactionPending
	}
}

// ParseGrossAmount converts "1000000.00" into 1000000 without floating point.
// A non-zero fraction is rejected since amounts are whole minor units.
func ParseGrossAmount(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	whole, frac, _ := strings.Cut(raw, ".")
	if whole == "" {
		return 0, fmt.Errorf("empty gross amount")
	}
	if strings.Trim(frac, "0") != "" {
		return 0, fmt.Errorf("gross amount %q has a fractional part", raw)
	}
	amount, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid gross amount %q: %w", raw, err)
	}
	return amount, nil
}

func parseMidtransTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04:05", raw, midtransLocation)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// MidtransNotification is the HTTP notification body Midtrans posts
type MidtransNotification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	TransactionTime   string `json:"transaction_time"`
	SettlementTime    string `json:"settlement_time"`
	PaymentType       string `json:"payment_type"`
}

// Report converts the notification into an unverified PaymentReport.
// The engine re-queries Midtrans before acting on it.
func (n *MidtransNotification) Report() PaymentReport {
	report := PaymentReport{
		Reference: n.OrderID,
		Status:    MapTransactionStatus(n.TransactionStatus, n.FraudStatus),
		RawStatus: n.TransactionStatus,
		Source:    SourceWebhook,
	}
	if amount, err := ParseGrossAmount(n.GrossAmount); err == nil {
		report.Amount = amount
	}
	if orderID, ok := OrderIDFromReference(n.OrderID); ok {
		report.OrderID = orderID
	}
	return report
}

// ParseNotification decodes a webhook body and checks its signature:
// SHA512(order_id + status_code + gross_amount + server_key)
func (s *MidtransService) ParseNotification(body []byte) (*MidtransNotification, error) {
	var n MidtransNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, newError(ErrValidation, "invalid notification payload", err)
	}
	if n.OrderID == "" {
		return &n, newError(ErrValidation, "notification has no order_id", nil)
	}
	if n.SignatureKey == "" {
		return &n, newError(ErrInvalidSignature, "notification signature is missing", nil)
	}
	if !s.VerifySignature(n.OrderID, n.StatusCode, n.GrossAmount, n.SignatureKey) {
		return &n, ErrInvalidSignature
	}
	return &n, nil
}

// VerifySignature compares a notification signature in constant time
func (s *MidtransService) VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool {
	if s.serverKey == "" {
		return false
	}
	expected := NotificationSignature(orderID, statusCode, grossAmount, s.serverKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(signatureKey))) == 1
}

// NotificationSignature computes the signature Midtrans attaches to notifications
func NotificationSignature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}
