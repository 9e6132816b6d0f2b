package listing_models

import "errors"

var (
	ErrListingNotFound   = errors.New("listing not found")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrLocationNotFound  = errors.New("location not found")
	ErrAlreadyReviewed   = errors.New("you have already reviewed this listing")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrInvalidListing    = errors.New("invalid listing")
	ErrDuplicateCategory = errors.New("a category with this name already exists")
	ErrImageNotFound     = errors.New("listing image not found")
)
