package payment_service

import (
	"errors"

	"github.com/joy095/staybook/clients"
)

var (
	ErrBookingNotFound    = errors.New("booking not found")
	ErrBookingNotPayable  = errors.New("booking can no longer be paid")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrNotPaymentOwner    = errors.New("payment does not belong to this user")
	ErrAlreadyPaid        = errors.New("payment already completed for this booking")
	ErrInitiateInProgress = errors.New("payment initiation already in progress for this booking")
	ErrMissingReference   = errors.New("transaction reference is required")
	ErrInvalidSignature   = errors.New("invalid callback signature")
)

// ProviderError carries a payment provider failure back to the caller.
// Network is set when the provider could not be reached; the payment is left
// untouched in that case and the request can be retried.
type ProviderError struct {
	Message string
	Network bool
}

func (e *ProviderError) Error() string {
	return e.Message
}

func providerError(res *clients.GatewayResult) *ProviderError {
	msg := res.Error
	if msg == "" {
		msg = "payment provider error"
	}
	return &ProviderError{Message: msg, Network: res.Network}
}
