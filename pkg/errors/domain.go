package errors

import stdErrors "errors"

// Settlement sentinels. They travel as the cause of a typed *Error so
// callers can match on them with errors.Is while the code drives the
// HTTP mapping.
var (
	ErrInsufficientBalance   = stdErrors.New("insufficient balance")
	ErrBelowMinimum          = stdErrors.New("amount below minimum payout")
	ErrInvalidCommission     = stdErrors.New("invalid commission percentage")
	ErrEmptyOrder            = stdErrors.New("order has no items")
	ErrUnknownVendor         = stdErrors.New("order item references unknown vendor")
	ErrVendorNotFound        = stdErrors.New("vendor not found")
	ErrUnauthorizedRequester = stdErrors.New("requester not authorized for vendor")
)
