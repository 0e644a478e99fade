package services

import (
	"errors"
	"fmt"
)

// ErrorCode classifies checkout failures for adapters
type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation_failed"
	CodeQuantityOutOfRange ErrorCode = "quantity_out_of_range"
	CodePriceMismatch      ErrorCode = "price_mismatch"
	CodeSoldOut            ErrorCode = "sold_out"
	CodeOrderNotFound      ErrorCode = "order_not_found"
	CodeEventNotFound      ErrorCode = "event_not_found"
	CodeAmountMismatch     ErrorCode = "amount_mismatch"
	CodeInvalidState       ErrorCode = "invalid_state"
	CodeGatewayUnavailable ErrorCode = "gateway_unavailable"
	CodeStoreUnavailable   ErrorCode = "store_unavailable"
	CodeInvalidSignature   ErrorCode = "invalid_signature"
)

// CheckoutError is the error type returned by the checkout engine and its collaborators
type CheckoutError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Err       error
}

func (e *CheckoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

// Is matches any CheckoutError carrying the same code
func (e *CheckoutError) Is(target error) bool {
	var t *CheckoutError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrValidation         = &CheckoutError{Code: CodeValidation, Message: "invalid request"}
	ErrQuantityOutOfRange = &CheckoutError{Code: CodeQuantityOutOfRange, Message: "ticket quantity out of range"}
	ErrPriceMismatch      = &CheckoutError{Code: CodePriceMismatch, Message: "amount does not match ticket price"}
	ErrSoldOut            = &CheckoutError{Code: CodeSoldOut, Message: "not enough tickets left"}
	ErrOrderNotFound      = &CheckoutError{Code: CodeOrderNotFound, Message: "order not found"}
	ErrEventNotFound      = &CheckoutError{Code: CodeEventNotFound, Message: "event not found"}
	ErrAmountMismatch     = &CheckoutError{Code: CodeAmountMismatch, Message: "paid amount does not match amount due"}
	ErrInvalidState       = &CheckoutError{Code: CodeInvalidState, Message: "order is not in a valid state for this operation"}
	ErrGatewayUnavailable = &CheckoutError{Code: CodeGatewayUnavailable, Message: "payment gateway unavailable", Retryable: true}
	ErrStoreUnavailable   = &CheckoutError{Code: CodeStoreUnavailable, Message: "record store unavailable", Retryable: true}
	ErrInvalidSignature   = &CheckoutError{Code: CodeInvalidSignature, Message: "invalid notification signature"}
)

// newError derives a CheckoutError from one of the sentinels above
func newError(base *CheckoutError, message string, err error) *CheckoutError {
	if message == "" {
		message = base.Message
	}
	return &CheckoutError{Code: base.Code, Message: message, Retryable: base.Retryable, Err: err}
}

// CodeOf returns the code of the first CheckoutError in the chain, or an empty code
func CodeOf(err error) ErrorCode {
	var ce *CheckoutError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsRetryable reports whether the caller may safely retry the same call later
func IsRetryable(err error) bool {
	var ce *CheckoutError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}
