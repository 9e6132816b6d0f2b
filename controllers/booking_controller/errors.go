package booking_controller

import "errors"

var (
	ErrInvalidBookingID = errors.New("invalid booking ID")
	ErrInvalidListingID = errors.New("invalid listing ID")
	ErrInvalidRequest   = errors.New("invalid request")
)
