package listing_controller

import "errors"

var (
	ErrInvalidListingID = errors.New("invalid listing ID")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidPrice     = errors.New("invalid price filter")
	ErrInvalidType      = errors.New("invalid listing type")
	ErrInappropriate    = errors.New("text contains inappropriate language")
)
