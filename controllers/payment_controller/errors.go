package payment_controller

import "errors"

var (
	ErrBookingIDRequired = errors.New("booking ID is required")
	ErrInvalidBookingID  = errors.New("invalid booking ID")
	ErrInvalidPaymentID  = errors.New("invalid payment ID")
)
