package model

import "errors"

// Kind classifies a marketplace error so that transports can map it to a
// status code without knowing every sentinel.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthorization
	KindStateConflict
	KindResourceExhausted
	KindTransferFailure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindStateConflict:
		return "state_conflict"
	case KindResourceExhausted:
		return "resource_exhausted"
	case KindTransferFailure:
		return "transfer_failure"
	}
	return "unknown"
}

// Error is a classified sentinel.  Code is the stable machine-readable
// identifier returned to API clients.
type Error struct {
	Kind Kind
	Code string
	msg  string
}

func (e *Error) Error() string { return e.msg }

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, msg: msg}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf returns the Code of the first *Error in err's chain, or "internal".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}

// Validation errors: malformed or empty input.
var (
	ErrInvalidTierSpec  = newError(KindValidation, "invalid_tier_spec", "invalid ticket tier spec")
	ErrInvalidEventSpec = newError(KindValidation, "invalid_event_spec", "invalid event spec")
	ErrEmptyMetadata    = newError(KindValidation, "empty_metadata", "metadata uri is empty")
	ErrInvalidFee       = newError(KindValidation, "invalid_fee", "fee exceeds 10000 basis points")
	ErrInvalidAmount    = newError(KindValidation, "invalid_amount", "amount must be positive")
	ErrAmountOverflow   = newError(KindValidation, "amount_overflow", "amount overflows 256 bits")
	ErrUnknownEvent     = newError(KindValidation, "unknown_event", "unknown event")
	ErrUnknownTier      = newError(KindValidation, "unknown_tier", "unknown ticket tier")
	ErrUnknownCurrency  = newError(KindValidation, "unknown_currency", "unknown currency")
	ErrOutOfRange       = newError(KindValidation, "out_of_range", "event range out of bounds")
	ErrMalformedMessage = newError(KindValidation, "malformed_message", "malformed use-ticket message")
	ErrIncorrectPayment = newError(KindValidation, "incorrect_payment", "attached value does not equal price plus fee")
	ErrInvalidAddress   = newError(KindValidation, "invalid_address", "invalid address")
)

// Authorization errors: wrong caller or signer.
var (
	ErrUnauthorized       = newError(KindAuthorization, "unauthorized", "caller is not authorized")
	ErrUnauthorizedSigner = newError(KindAuthorization, "unauthorized_signer", "signer does not hold the ticket")
	ErrInvalidSignature   = newError(KindAuthorization, "invalid_signature", "invalid signature")
	ErrUserNotRegistered  = newError(KindAuthorization, "user_not_registered", "user profile not registered")
)

// State conflicts: the operation is not allowed in the current lifecycle state.
var (
	ErrAlreadyUsed       = newError(KindStateConflict, "already_used", "ticket already used")
	ErrAlreadyCancelled  = newError(KindStateConflict, "already_cancelled", "event already cancelled")
	ErrDeadlinePassed    = newError(KindStateConflict, "deadline_passed", "event deadline passed")
	ErrEventCancelled    = newError(KindStateConflict, "event_cancelled", "event is cancelled")
	ErrEventNotCancelled = newError(KindStateConflict, "event_not_cancelled", "event is not cancelled")
	ErrNotConfigured     = newError(KindStateConflict, "not_configured", "platform contract reference not configured")
)

// Exhausted resources: supply, caps and balances.
var (
	ErrSupplyExceeded            = newError(KindResourceExhausted, "supply_exceeded", "ticket supply exceeded")
	ErrWithdrawLimitExceeded     = newError(KindResourceExhausted, "withdraw_limit_exceeded", "withdrawal exceeds pre-deadline limit")
	ErrInsufficientEscrowBalance = newError(KindResourceExhausted, "insufficient_escrow_balance", "insufficient escrow balance")
)

// ErrTransferFailed reports a failed payment leg.  The operation that issued
// the transfer has been rolled back when it is returned.
var ErrTransferFailed = newError(KindTransferFailure, "transfer_failed", "funds transfer failed")
