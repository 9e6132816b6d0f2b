package listing_models

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AddListingImage appends an image after the listing's current last one.
func AddListingImage(ctx context.Context, db *gorm.DB, img *ListingImage) error {
	img.ID = uuid.New()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxOrder *int
		if err := tx.Model(&ListingImage{}).
			Where("listing_id = ?", img.ListingID).
			Select("MAX(sort_order)").Scan(&maxOrder).Error; err != nil {
			return fmt.Errorf("failed to read image order: %w", err)
		}
		if maxOrder != nil {
			img.Order = *maxOrder + 1
		}
		if err := tx.Create(img).Error; err != nil {
			return fmt.Errorf("failed to add listing image: %w", err)
		}
		return nil
	})
}

// DeleteListingImage removes an image and returns the deleted row so the
// caller can release the stored file.
func DeleteListingImage(ctx context.Context, db *gorm.DB, listingID, imageID uuid.UUID) (*ListingImage, error) {
	var img ListingImage
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&img, "id = ? AND listing_id = ?", imageID, listingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrImageNotFound
			}
			return err
		}
		return tx.Delete(&img).Error
	})
	if err != nil {
		if errors.Is(err, ErrImageNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to delete listing image: %w", err)
	}
	return &img, nil
}
