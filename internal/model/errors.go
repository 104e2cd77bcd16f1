package model

import "fmt"

// ErrorKind classifies a trade failure.
type ErrorKind string

const (
	KindInvalidAmount      ErrorKind = "invalid_amount"
	KindUnknownToken       ErrorKind = "unknown_token"
	KindUserNotFound       ErrorKind = "user_not_found"
	KindInsufficientFunds  ErrorKind = "insufficient_funds"
	KindPriceUnavailable   ErrorKind = "price_unavailable"
	KindDegenerateTicks    ErrorKind = "degenerate_tick_range"
	KindUnknownOperation   ErrorKind = "unknown_operation"
	KindArityMismatch      ErrorKind = "arity_mismatch"
	KindApprovalFailed     ErrorKind = "approval_failed"
	KindApprovalTimeout    ErrorKind = "approval_timeout"
	KindProviderError      ErrorKind = "provider_error"
	KindReverted           ErrorKind = "reverted"
)

// TradeError carries a typed failure across the engine boundary.
type TradeError struct {
	Kind    ErrorKind
	Message string
}

func (e *TradeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Errf builds a TradeError with a formatted message.
func Errf(kind ErrorKind, format string, args ...interface{}) *TradeError {
	return &TradeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsTradeError extracts a TradeError, wrapping unknown errors as ProviderError.
func AsTradeError(err error) *TradeError {
	if err == nil {
		return nil
	}
	if te, ok := err.(*TradeError); ok {
		return te
	}
	return &TradeError{Kind: KindProviderError, Message: err.Error()}
}
