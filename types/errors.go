package types

import (
	"errors"
	"fmt"
)

// PaymentError is the typed failure returned across the payment subsystem.
type PaymentError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *PaymentError) Error() string {
	return e.Message
}

// Is matches on Code so wrapped errors compare equal to the sentinels below.
func (e *PaymentError) Is(target error) bool {
	t, ok := target.(*PaymentError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Common error codes
const (
	ErrCodeInvalidAmount      = "INVALID_AMOUNT"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeInvalidPayload     = "INVALID_PAYLOAD"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeInvalidState       = "INVALID_STATE"
	ErrCodeAlreadySettled     = "ALREADY_SETTLED"
	ErrCodeInsufficientAmount = "INSUFFICIENT_AMOUNT"
	ErrCodeNoRoute            = "NO_ROUTE"
	ErrCodeNetworkDegraded    = "NETWORK_DEGRADED"
	ErrCodeTimeout            = "TIMEOUT"
	ErrCodeNetworkError       = "NETWORK_ERROR"
	ErrCodeConfigError        = "CONFIG_ERROR"
)

var (
	ErrInvalidAmount      = &PaymentError{Code: ErrCodeInvalidAmount, Message: "invalid amount"}
	ErrInvalidToken       = &PaymentError{Code: ErrCodeInvalidToken, Message: "invalid token"}
	ErrInvalidPayload     = &PaymentError{Code: ErrCodeInvalidPayload, Message: "invalid payload"}
	ErrNotFound           = &PaymentError{Code: ErrCodeNotFound, Message: "payment request not found"}
	ErrInvalidState       = &PaymentError{Code: ErrCodeInvalidState, Message: "invalid state transition"}
	ErrAlreadySettled     = &PaymentError{Code: ErrCodeAlreadySettled, Message: "payment request already settled"}
	ErrInsufficientAmount = &PaymentError{Code: ErrCodeInsufficientAmount, Message: "settled amount below requested amount"}
	ErrNoRoute            = &PaymentError{Code: ErrCodeNoRoute, Message: "no settlement route"}
	ErrNetworkDegraded    = &PaymentError{Code: ErrCodeNetworkDegraded, Message: "network degraded"}
	ErrTimeout            = &PaymentError{Code: ErrCodeTimeout, Message: "timed out"}
	ErrNetworkError       = &PaymentError{Code: ErrCodeNetworkError, Message: "network error"}
	ErrConfigError        = &PaymentError{Code: ErrCodeConfigError, Message: "configuration error"}
)

// NewError builds a PaymentError with a formatted message.
func NewError(code, format string, args ...interface{}) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewTxReusedError reports a transfer that already settled another request.
func NewTxReusedError(s *Settlement, settledID string) *PaymentError {
	return NewError(ErrCodeAlreadySettled,
		"transaction %s on chain %d already settled payment request %s", s.TxHash, s.ChainID, settledID)
}

// CodeOf returns the PaymentError code carried by err, or "" when err is not
// a PaymentError.
func CodeOf(err error) string {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
