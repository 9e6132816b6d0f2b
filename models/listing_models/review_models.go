package listing_models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Review struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ListingID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_listing_user" json:"listing_id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_listing_user" json:"user_id"`
	Rating     int       `gorm:"not null" json:"rating"`
	Title      string    `gorm:"size:200;not null" json:"title"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	IsVerified bool      `gorm:"not null;default:false" json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

func ValidateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	return nil
}

// CreateReview stores a review. It is marked verified when the reviewer holds a
// confirmed or completed booking for the listing.
func CreateReview(ctx context.Context, db *gorm.DB, r *Review) error {
	if err := ValidateRating(r.Rating); err != nil {
		return err
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stays int64
		err := tx.Table("bookings").
			Where("listing_id = ? AND user_id = ? AND status IN ?", r.ListingID, r.UserID, []string{"confirmed", "completed"}).
			Count(&stays).Error
		if err != nil {
			return fmt.Errorf("failed to check reviewer bookings: %w", err)
		}

		r.ID = uuid.New()
		r.IsVerified = stays > 0
		if err := tx.Create(r).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyReviewed
			}
			return fmt.Errorf("failed to create review: %w", err)
		}
		return nil
	})
}

func ListReviews(ctx context.Context, db *gorm.DB, listingID uuid.UUID) ([]Review, error) {
	var reviews []Review
	err := db.WithContext(ctx).Where("listing_id = ?", listingID).Order("created_at DESC").Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

func GetRatingSummary(ctx context.Context, db *gorm.DB, listingID uuid.UUID) (RatingSummary, error) {
	var summary RatingSummary
	err := db.WithContext(ctx).Model(&Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("listing_id = ?", listingID).
		Scan(&summary).Error
	if err != nil {
		return RatingSummary{}, fmt.Errorf("failed to summarize ratings: %w", err)
	}
	return summary, nil
}
